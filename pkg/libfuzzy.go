package fuzzydirhash

// This file is the raw boundary to libfuzzy (the ssdeep C library). It
// declares the three native entry points and nothing else; all precondition
// checking, buffer lifecycle and error translation live in fuzzy.go.

/*
#cgo LDFLAGS: -lfuzzy
#include <stdint.h>

int fuzzy_compare(const char *sig1, const char *sig2);
int fuzzy_hash_buf(const unsigned char *buf, uint32_t buf_len, char *result);
int fuzzy_hash_filename(const char *filename, char *result);
*/
import "C"

import "unsafe"

// SpamSumLength is the length of an individual fuzzy hash signature component.
const SpamSumLength = 64

// FuzzyMaxResult is the longest possible fuzzy hash signature, including the
// NUL terminator. From fuzzy.h: "The buffer into which the fuzzy hash is
// stored has to be allocated to hold at least FUZZY_MAX_RESULT bytes."
const FuzzyMaxResult = 2*SpamSumLength + 20

// zeroByte exists so fuzzy_hash_buf always receives a valid pointer even for
// a zero-length input.
var zeroByte [1]byte

// fuzzyCompare calls fuzzy_compare. Both arguments must be NUL-terminated.
// Returns -1 on failure or a match score in [0,100].
func fuzzyCompare(sig1, sig2 []byte) int32 {
	return int32(C.fuzzy_compare(
		(*C.char)(unsafe.Pointer(&sig1[0])),
		(*C.char)(unsafe.Pointer(&sig2[0]))))
}

// fuzzyHashBuf calls fuzzy_hash_buf. result must have capacity of at least
// FuzzyMaxResult bytes; len(data) must fit in 32 bits. Returns 0 on success.
func fuzzyHashBuf(data []byte, result []byte) int32 {
	ptr := &zeroByte[0]
	if len(data) > 0 {
		ptr = &data[0]
	}
	return int32(C.fuzzy_hash_buf(
		(*C.uchar)(unsafe.Pointer(ptr)),
		C.uint32_t(len(data)),
		(*C.char)(unsafe.Pointer(&result[0]))))
}

// fuzzyHashFilename calls fuzzy_hash_filename. path must be NUL-terminated;
// result must have capacity of at least FuzzyMaxResult bytes. Returns 0 on
// success.
func fuzzyHashFilename(path []byte, result []byte) int32 {
	return int32(C.fuzzy_hash_filename(
		(*C.char)(unsafe.Pointer(&path[0])),
		(*C.char)(unsafe.Pointer(&result[0]))))
}
