package fuzzydirhash

import "fmt"

// NativeCallError reports a failed call into libfuzzy. Op identifies the
// native entry point ("fuzzy_compare", "fuzzy_hash_buf" or
// "fuzzy_hash_filename") and Code is the raw return value. The native
// library reports a single failure signal per call; it does not distinguish
// causes (a malformed signature, an unreadable file and an I/O error all
// look the same), so neither does this error.
type NativeCallError struct {
	Op   string // native entry point that failed
	Code int32  // raw native return code
}

func (e *NativeCallError) Error() string {
	return fmt.Sprintf("native call %s failed with code %d", e.Op, e.Code)
}
