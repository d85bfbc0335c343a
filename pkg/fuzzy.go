package fuzzydirhash

import (
	"fmt"
	"math"
	"strings"
)

// Hash computes the fuzzy hash of a buffer and returns it as an ASCII
// signature string such as "3:aNRn:aNRn".
//
// Hash panics if len(data) exceeds 2^32-1: the native length parameter is a
// 32-bit unsigned integer and silently hashing a truncated view of the
// input would be a correctness hazard, so an oversized buffer is treated as
// a programming error rather than a recoverable failure.
//
// A non-zero native status is returned as a *NativeCallError. Hash also
// panics if libfuzzy reports success but fills the result buffer with
// non-ASCII content; that can only happen when the native library violates
// its own contract and is not something a caller can meaningfully handle.
func Hash(data []byte) (string, error) {
	if uint64(len(data)) > math.MaxUint32 {
		panic(fmt.Sprintf("fuzzydirhash: Hash input of %d bytes exceeds the native 32-bit length limit", len(data)))
	}

	result := make([]byte, FuzzyMaxResult)
	if rc := fuzzyHashBuf(data, result); rc != 0 {
		return "", &NativeCallError{Op: "fuzzy_hash_buf", Code: rc}
	}
	return recoverSignature(result), nil
}

// HashFile computes the fuzzy hash of the named file's contents.
//
// HashFile panics if path contains an embedded NUL byte: the native
// interface takes a NUL-terminated string, so an embedded NUL would
// silently truncate the path actually opened. A failed native call (file
// not found, permission denied, read error - the native layer does not say
// which) is returned as a *NativeCallError.
func HashFile(path string) (string, error) {
	result := make([]byte, FuzzyMaxResult)
	if rc := fuzzyHashFilename(terminate(path, "path"), result); rc != 0 {
		return "", &NativeCallError{Op: "fuzzy_hash_filename", Code: rc}
	}
	return recoverSignature(result), nil
}

// Compare computes the match score between two fuzzy hash signatures.
// The score is an integer from 0 (no similarity) to 100 (identical
// signatures); 0 is a valid result, not an error.
//
// Compare panics if either signature contains an embedded NUL byte, since
// that would silently truncate what the native library compares. A native
// return of -1 (either signature malformed) is returned as a
// *NativeCallError. Any return outside {-1} and [0,100] is undefined by the
// native contract and causes a panic rather than being passed through as a
// score.
func Compare(sig1, sig2 string) (int, error) {
	score := fuzzyCompare(terminate(sig1, "signature"), terminate(sig2, "signature"))
	if score == -1 {
		return 0, &NativeCallError{Op: "fuzzy_compare", Code: -1}
	}
	if score < 0 || score > 100 {
		panic(fmt.Sprintf("fuzzydirhash: fuzzy_compare returned %d, outside the defined range", score))
	}
	return int(score), nil
}

// terminate converts s into a NUL-terminated byte sequence for the native
// boundary, panicking on an embedded NUL. what names the input in the panic
// message.
func terminate(s, what string) []byte {
	if strings.IndexByte(s, 0) != -1 {
		panic(fmt.Sprintf("fuzzydirhash: %s %q contains an embedded NUL byte", what, s))
	}
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}

// recoverSignature recovers the signature string from a result buffer
// populated by a native hashing call. The native side communicates the
// logical length only through the embedded NUL terminator, so the buffer is
// scanned forward from offset 0, bounded by its allocated capacity. Called
// only after a success status; panics if the recovered bytes are not ASCII,
// which would mean libfuzzy broke its output contract.
func recoverSignature(buf []byte) string {
	n := 0
	for n < len(buf) && buf[n] != 0 {
		n++
	}
	sig := buf[:n]
	for i, b := range sig {
		if b >= 0x80 {
			panic(fmt.Sprintf("fuzzydirhash: libfuzzy returned non-ASCII byte 0x%02x at offset %d of a successful hash result", b, i))
		}
	}
	return string(sig)
}
