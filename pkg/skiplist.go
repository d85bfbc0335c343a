package fuzzydirhash

import (
	"strings"

	zcsl "github.com/mattkeenan/zerocopyskiplist"
)

// sigEntry is the in-memory form of one indexed file. Entries are plain
// heap values: the index file is rewritten wholesale on every save, so
// entries are copied out of the mapping during load and nothing needs to
// stay offset-stable across a remap.
type sigEntry struct {
	RelPath   string // path relative to the cache root, "/" separated
	Signature string // fuzzy hash signature, empty until hashed
	FileSize  uint64 // file size in bytes at hash time
	MTimeNano int64  // modification time at hash time (unix nanoseconds)
	Flags     uint16 // entry flags (none defined yet)
}

// skiplistWrapper wraps the generic zerocopyskiplist with context support,
// keyed by relative path.
type skiplistWrapper struct {
	skiplist *zcsl.ZeroCopySkiplist[sigEntry, string, string]
}

// newSigSkiplist creates a skiplist for sigEntry values
func newSigSkiplist(maxLevels int) *skiplistWrapper {
	if maxLevels < 8 {
		maxLevels = 16 // reasonable default
	}

	getKeyFromItem := func(e *sigEntry) string {
		return e.RelPath
	}

	// Size function for serialization: the on-disk footprint of the entry
	getItemSize := func(e *sigEntry) int {
		return binaryEntrySize(len(e.RelPath))
	}

	cmpKey := func(a, b string) int {
		return strings.Compare(a, b)
	}

	return &skiplistWrapper{
		skiplist: zcsl.MakeZeroCopySkiplist[sigEntry, string, string](
			maxLevels,
			getKeyFromItem,
			getItemSize,
			cmpKey,
		),
	}
}

// Insert adds an entry with a specific context
func (sw *skiplistWrapper) Insert(entry *sigEntry, context string) bool {
	return sw.skiplist.Insert(entry, context)
}

// Find searches for an entry by its relative path
func (sw *skiplistWrapper) Find(relPath string) (*sigEntry, string) {
	itemPtr, context := sw.skiplist.Find(relPath)
	if itemPtr != nil {
		return itemPtr.Item(), context
	}
	return nil, ""
}

// Delete removes an entry by its relative path
func (sw *skiplistWrapper) Delete(relPath string) bool {
	return sw.skiplist.Delete(relPath)
}

// ForEach iterates through all entries in path order
func (sw *skiplistWrapper) ForEach(callback func(*sigEntry, string) bool) {
	for current := sw.skiplist.First(); current != nil; current = current.Next() {
		if !callback(current.Item(), current.Context()) {
			break
		}
	}
}

// Merge merges another skiplist into this one
func (sw *skiplistWrapper) Merge(other *skiplistWrapper, strategy zcsl.MergeStrategy) error {
	if other == nil {
		return nil
	}
	return sw.skiplist.Merge(other.skiplist, strategy)
}

// Length returns the number of entries
func (sw *skiplistWrapper) Length() int {
	return sw.skiplist.Length()
}

// IsEmpty returns true if the skiplist has no entries
func (sw *skiplistWrapper) IsEmpty() bool {
	return sw.skiplist.IsEmpty()
}

// UpdateContext updates the context of an existing entry
func (sw *skiplistWrapper) UpdateContext(relPath string, newContext string) bool {
	return sw.skiplist.UpdateContext(relPath, newContext)
}
