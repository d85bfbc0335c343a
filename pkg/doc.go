// Package fuzzydirhash provides context-triggered piecewise hashing (fuzzy
// hashing) of buffers, files and directory trees, backed by the libfuzzy C
// library from the ssdeep project, with a cached binary index so unchanged
// files are never rehashed.
//
// # Core API
//
// The three hashing primitives wrap libfuzzy directly:
//
//	sig, err := fuzzydirhash.Hash([]byte("Hello there!")) // "3:aNRn:aNRn"
//	sig, err := fuzzydirhash.HashFile("/path/to/file")
//	score, err := fuzzydirhash.Compare(sig1, sig2)        // 0..100
//
// A failed native call is returned as a *NativeCallError carrying the
// native entry point name and raw status code. Caller misuse (an input
// over 2^32-1 bytes, an embedded NUL in a signature or path) panics rather
// than returning an error; see the individual function docs.
//
// # Directory caching
//
// FuzzyDirCache maintains a signature index for a directory tree:
//
//	fc, err := fuzzydirhash.NewFuzzyDirCache("/path/to/dir")
//	defer fc.Close()
//
//	err = fc.Update()            // hash new/changed files, persist index
//	result, err := fc.Status()   // dry-run change report
//
// # Matching
//
// MatchSet matches signatures against ssdeep-format signature lists:
//
//	set := fuzzydirhash.NewMatchSet()
//	if err := set.LoadSigFile("known.sig"); err != nil { ... }
//	results, err := set.MatchFile("/path/to/suspect", 50)
//
// # Configuration
//
// Enable debug output:
//
//	fuzzydirhash.SetDebugFlags("scan,match,index")
//	fuzzydirhash.SetVerboseLevel(2)
//
// # Note on Internal API
//
// Types like sigEntry, skiplistWrapper and indexHeader are internal
// implementation details and may change. External consumers should use:
//   - Hash, HashFile, Compare and NativeCallError
//   - FuzzyDirCache and its methods
//   - MatchSet, MatchResult, SigRecord and the signature file functions
//   - Configuration functions: SetDebugFlags, SetVerboseLevel
package fuzzydirhash
