package fuzzydirhash

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"syscall"
	"unsafe"

	"github.com/google/vectorio"
	"golang.org/x/sys/unix"
)

// Build-time assertions for struct layout assumptions.
// These will cause compilation to fail if the layout assumptions are violated
var (
	// Header must serialize to exactly HeaderSize bytes
	_ = [1]struct{}{}[unsafe.Sizeof(indexHeader{})-HeaderSize]

	// Entries must be 8-byte aligned
	_ = [1]struct{}{}[unsafe.Sizeof(binaryEntry{})%8]

	// Path field must sit in the trailing 8 bytes of the fixed layout
	_ = [1]struct{}{}[unsafe.Sizeof(binaryEntry{})-unsafe.Offsetof(binaryEntry{}.Path)-8]

	// Signature field must hold a maximum-length fuzzy hash
	_ = [1]struct{}{}[unsafe.Sizeof(binaryEntry{}.Signature)-FuzzyMaxResult]
)

// indexHeader is the index file header in host byte order (cast directly
// onto mmap'd memory). Padding is explicit so the struct is exactly
// HeaderSize bytes with no compiler-inserted holes.
type indexHeader struct {
	Signature    [4]byte  // "fdhi" signature
	_            [4]byte  // pad so ByteOrder is 8-byte aligned
	ByteOrder    uint64   // byte order detection magic - MUST be checked before other fields
	Version      uint32   // index format version (host order)
	EntryCount   uint32   // number of entries (host order)
	Flags        uint16   // index flags (host order)
	ChecksumType uint16   // checksum algorithm type
	_            [4]byte  // pad so Checksum starts 8-byte aligned
	Checksum     [64]byte // checksum of entry data
}

// binaryEntry is one file entry in index-file layout (host byte order). The
// Path field marks where the variable-length path bytes begin; the real
// length is PathLen and the entry is padded to an 8-byte boundary.
type binaryEntry struct {
	Size      uint32                // total entry size including padding - MUST BE FIRST
	Flags     uint16                // entry flags
	SigLen    uint16                // logical signature length
	PathLen   uint32                // logical path length
	_         [4]byte               // pad so MTimeNano is 8-byte aligned
	MTimeNano int64                 // modification time (unix nanoseconds)
	FileSize  uint64                // file size in bytes
	Signature [FuzzyMaxResult]byte  // signature bytes, zero-padded
	_         [4]byte               // pad so Path starts 8-byte aligned
	Path      [8]byte               // path bytes, actual length variable but at least 8
}

// binaryEntryPathOffset is where path bytes begin within a serialized entry.
const binaryEntryPathOffset = int(unsafe.Offsetof(binaryEntry{}.Path))

// binaryEntrySize returns the serialized size of an entry with the given
// path length, padded to an 8-byte boundary. The fixed layout already
// reserves 8 path bytes, so the minimum is unsafe.Sizeof(binaryEntry{}).
func binaryEntrySize(pathLen int) int {
	size := binaryEntryPathOffset + pathLen
	if min := int(unsafe.Sizeof(binaryEntry{})); size < min {
		return min
	}
	return (size + 7) &^ 7
}

// serializeEntry renders e into index-file layout. The returned slice is
// allocated as uint64 words so the *binaryEntry cast is always aligned.
func serializeEntry(e *sigEntry) []byte {
	size := binaryEntrySize(len(e.RelPath))
	words := make([]uint64, size/8)
	buf := unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), size)

	be := (*binaryEntry)(unsafe.Pointer(&buf[0]))
	be.Size = uint32(size)
	be.Flags = e.Flags
	be.SigLen = uint16(len(e.Signature))
	be.PathLen = uint32(len(e.RelPath))
	be.MTimeNano = e.MTimeNano
	be.FileSize = e.FileSize
	copy(be.Signature[:], e.Signature)
	copy(buf[binaryEntryPathOffset:], e.RelPath)

	return buf
}

// decodeEntry copies the entry at data[offset:] out of the mapping into a
// heap sigEntry. Every field that bounds a read is validated before use:
// the mapping is file content and cannot be trusted.
func decodeEntry(data []byte, offset int) (*sigEntry, int, error) {
	fixedSize := int(unsafe.Sizeof(binaryEntry{}))
	if offset+fixedSize > len(data) {
		return nil, 0, fmt.Errorf("entry at offset %d truncated: %d bytes left, need at least %d",
			offset, len(data)-offset, fixedSize)
	}

	be := (*binaryEntry)(unsafe.Pointer(&data[offset]))
	size := int(be.Size)
	switch {
	case size < fixedSize || size%8 != 0:
		return nil, 0, fmt.Errorf("entry at offset %d has invalid size %d", offset, size)
	case offset+size > len(data):
		return nil, 0, fmt.Errorf("entry at offset %d overruns index data (size %d, %d bytes left)",
			offset, size, len(data)-offset)
	case int(be.SigLen) > FuzzyMaxResult:
		return nil, 0, fmt.Errorf("entry at offset %d has signature length %d > %d", offset, be.SigLen, FuzzyMaxResult)
	case binaryEntrySize(int(be.PathLen)) != size:
		return nil, 0, fmt.Errorf("entry at offset %d has path length %d inconsistent with size %d",
			offset, be.PathLen, size)
	}

	pathStart := offset + binaryEntryPathOffset
	entry := &sigEntry{
		// string() copies these out of the mapping, which is unmapped
		// before the entries are used
		RelPath:   string(data[pathStart : pathStart+int(be.PathLen)]),
		Signature: string(be.Signature[:be.SigLen]),
		FileSize:  be.FileSize,
		MTimeNano: be.MTimeNano,
		Flags:     be.Flags,
	}
	return entry, size, nil
}

// entryDataChecksum computes the SHA-256 checksum of serialized entry data,
// left-aligned in an index-header checksum field
func entryDataChecksum(chunks [][]byte) [ChecksumSize]byte {
	hasher := sha256.New()
	for _, chunk := range chunks {
		hasher.Write(chunk)
	}
	var checksum [ChecksumSize]byte
	copy(checksum[:], hasher.Sum(nil))
	return checksum
}

// loadIndex reads an index file into a fresh skiplist. The file is mmap'd
// read-only for the duration of the load; all entry data is copied to the
// heap before the mapping is released. A missing file is not an error and
// yields an empty skiplist.
func loadIndex(indexPath string) (*skiplistWrapper, error) {
	defer VerboseEnter()()

	sl := newSigSkiplist(16)

	file, err := os.Open(indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return sl, nil
		}
		return nil, fmt.Errorf("failed to open index file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat index file: %w", err)
	}
	if stat.Size() < HeaderSize {
		return nil, fmt.Errorf("index file too small: %d bytes", stat.Size())
	}

	data, err := unix.Mmap(int(file.Fd()), 0, int(stat.Size()), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("failed to mmap index file: %w", err)
	}
	defer unix.Munmap(data)

	header := (*indexHeader)(unsafe.Pointer(&data[0]))
	if err := validateHeader(header); err != nil {
		return nil, fmt.Errorf("%s: %w", indexPath, err)
	}

	entryData := data[HeaderSize:]
	if err := verifyChecksum(header, entryData); err != nil {
		return nil, fmt.Errorf("%s: %w", indexPath, err)
	}

	offset := 0
	for i := uint32(0); i < header.EntryCount; i++ {
		entry, size, err := decodeEntry(entryData, offset)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", indexPath, err)
		}
		if !sl.Insert(entry, MainContext) {
			return nil, fmt.Errorf("%s: duplicate entry for path %q", indexPath, entry.RelPath)
		}
		offset += size
	}
	if offset != len(entryData) {
		return nil, fmt.Errorf("%s: %d trailing bytes after %d entries", indexPath, len(entryData)-offset, header.EntryCount)
	}

	if IsDebugEnabled("index") {
		VerboseLog(3, "loadIndex: loaded %d entries from %s", sl.Length(), indexPath)
	}
	return sl, nil
}

// validateHeader checks signature, byte order and version, in that order.
// Byte order must be checked before any multi-byte field is interpreted.
func validateHeader(header *indexHeader) error {
	if header.Signature != indexSignature {
		return fmt.Errorf("invalid index signature: got %q, expected %q",
			string(header.Signature[:]), string(indexSignature[:]))
	}
	if header.ByteOrder != ByteOrderMagic {
		return fmt.Errorf("byte order mismatch: index file byte order 0x%016x does not match host byte order 0x%016x",
			header.ByteOrder, ByteOrderMagic)
	}
	if header.Version != CurrentIndexVersion {
		return fmt.Errorf("unsupported index version: got %d, expected %d", header.Version, CurrentIndexVersion)
	}
	if header.Flags&IndexFlagClean == 0 {
		return fmt.Errorf("index file was not written to completion")
	}
	return nil
}

// verifyChecksum validates the header checksum against entry data
func verifyChecksum(header *indexHeader, entryData []byte) error {
	if header.ChecksumType != ChecksumTypeSHA256 {
		return fmt.Errorf("unsupported checksum type %d", header.ChecksumType)
	}
	expected := entryDataChecksum([][]byte{entryData})
	if header.Checksum != expected {
		return fmt.Errorf("index checksum mismatch")
	}
	return nil
}

// writeIndex serializes the skiplist to a temp file in the index directory
// using writev, then atomically renames it over indexPath. Entry order on
// disk is skiplist order, so an index round-trips deterministically.
func writeIndex(indexPath string, sl *skiplistWrapper) error {
	defer VerboseEnter()()

	// Serialize entries and build iovecs. The chunk slice keeps every
	// serialized buffer reachable until the writev calls complete.
	var chunks [][]byte
	var entryIovecs []syscall.Iovec
	entryCount := uint32(0)
	sl.ForEach(func(e *sigEntry, context string) bool {
		buf := serializeEntry(e)
		chunks = append(chunks, buf)
		entryIovecs = append(entryIovecs, syscall.Iovec{
			Base: &buf[0],
			Len:  uint64(len(buf)),
		})
		entryCount++
		return true
	})

	header := indexHeader{
		Signature:    indexSignature,
		ByteOrder:    ByteOrderMagic,
		Version:      CurrentIndexVersion,
		EntryCount:   entryCount,
		Flags:        IndexFlagClean,
		ChecksumType: ChecksumTypeSHA256,
		Checksum:     entryDataChecksum(chunks),
	}
	headerIovec := syscall.Iovec{
		Base: (*byte)(unsafe.Pointer(&header)),
		Len:  uint64(HeaderSize),
	}

	tempPath := fmt.Sprintf("%s.tmp.%d", indexPath, os.Getpid())
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create temp index file %s: %w", tempPath, err)
	}
	defer os.Remove(tempPath) // no-op after a successful rename

	if err := writeIovecs(file, headerIovec, entryIovecs); err != nil {
		file.Close()
		return err
	}
	runtime.KeepAlive(chunks)
	runtime.KeepAlive(&header)

	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("failed to sync temp index: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close temp index: %w", err)
	}

	if err := os.Rename(tempPath, indexPath); err != nil {
		return fmt.Errorf("failed to rename temp index into place: %w", err)
	}

	if IsDebugEnabled("index") {
		VerboseLog(3, "writeIndex: wrote %d entries to %s", entryCount, indexPath)
	}
	return nil
}

// maxIovecsPerCall bounds each writev batch; 1024 is the conservative
// IOV_MAX floor across supported platforms.
const maxIovecsPerCall = 1024

// writeIovecs writes the header followed by entry iovecs, chunked to
// respect the IOV_MAX limit
func writeIovecs(file *os.File, headerIovec syscall.Iovec, entryIovecs []syscall.Iovec) error {
	if nw, err := vectorio.WritevRaw(uintptr(file.Fd()), []syscall.Iovec{headerIovec}); err != nil {
		return fmt.Errorf("failed to write index header with vectorio: %w", err)
	} else if nw != HeaderSize {
		return fmt.Errorf("header write incomplete: wrote %d bytes, expected %d", nw, HeaderSize)
	}

	totalEntrySize := 0
	for _, iovec := range entryIovecs {
		totalEntrySize += int(iovec.Len)
	}

	totalWritten := 0
	for offset := 0; offset < len(entryIovecs); offset += maxIovecsPerCall {
		end := offset + maxIovecsPerCall
		if end > len(entryIovecs) {
			end = len(entryIovecs)
		}

		nw, err := vectorio.WritevRaw(uintptr(file.Fd()), entryIovecs[offset:end])
		if err != nil {
			return fmt.Errorf("failed to write index entries with vectorio: %w", err)
		}
		totalWritten += nw
	}
	if totalWritten != totalEntrySize {
		return fmt.Errorf("entries write incomplete: wrote %d bytes, expected %d", totalWritten, totalEntrySize)
	}
	return nil
}

// indexPathFor returns the index file path for a state directory
func indexPathFor(stateDir string) string {
	return filepath.Join(stateDir, IndexFileName)
}
