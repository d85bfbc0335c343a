package fuzzydirhash

import (
	zcsl "github.com/mattkeenan/zerocopyskiplist"
)

// Context constants for skiplist entries
const (
	MainContext = "main" // entry carried over from the persisted index
	ScanContext = "scan" // entry hashed during the current scan
)

// State directory and file constants
const (
	StateDirName  = ".fdh"
	IndexFileName = "fuzzy.idx"
	ConfigName    = "config"
)

// Index file format constants
const (
	HeaderSize          = 96 // see indexHeader; includes alignment padding
	ChecksumSize        = 64 // checksum field size (room for 512-bit digests)
	CurrentIndexVersion = 1  // current index file format version
)

// indexSignature is the magic at the start of every index file.
var indexSignature = [4]byte{'f', 'd', 'h', 'i'}

// ByteOrderMagic validates that an index file was written with the host's
// byte order; entries are stored in host order for direct access.
const ByteOrderMagic uint64 = 0x0102030405060708

// Checksum type constants
const (
	ChecksumTypeSHA256 uint16 = 1 // SHA-256 (32 bytes, stored left-aligned)
)

// Index header flags
const (
	IndexFlagClean uint16 = 1 << 0 // index file was written to completion
)

// Entry flags (reserved room in the entry layout; none are defined yet
// beyond format versioning headroom)
const (
	EntryFlagNone uint16 = 0
)

// Import merge strategies from zerocopyskiplist
const (
	MergeTheirs = zcsl.MergeTheirs
	MergeOurs   = zcsl.MergeOurs
	MergeError  = zcsl.MergeError
)

// Match score bounds defined by the native comparison primitive
const (
	MatchScoreMin = 0
	MatchScoreMax = 100
)

// DefaultHashWorkers is the number of concurrent hash workers used when the
// config does not say otherwise.
const DefaultHashWorkers = 4

// DefaultMatchThreshold is the minimum score reported as a match when the
// config does not say otherwise.
const DefaultMatchThreshold = 1
