package fuzzydirhash

import (
	"os"
	"path/filepath"
	"testing"
)

func sampleEntries() []*sigEntry {
	return []*sigEntry{
		{RelPath: "a.txt", Signature: "3:aNRn:aNRn", FileSize: 12, MTimeNano: 1700000000000000001},
		{RelPath: "sub/dir/b.bin", Signature: "3:AXGBicFlgVNhBGcL6wCrFQEv:AXGHsNhxLsr2C", FileSize: 4096, MTimeNano: 1700000000000000002},
		{RelPath: "z", Signature: "3:u+N:u+N", FileSize: 1, MTimeNano: 1700000000000000003},
	}
}

func TestSerializeDecodeEntry(t *testing.T) {
	for _, entry := range sampleEntries() {
		buf := serializeEntry(entry)

		if len(buf)%8 != 0 {
			t.Errorf("Serialized entry for %s not 8-byte aligned: %d bytes", entry.RelPath, len(buf))
		}
		if len(buf) != binaryEntrySize(len(entry.RelPath)) {
			t.Errorf("Serialized size %d != binaryEntrySize %d", len(buf), binaryEntrySize(len(entry.RelPath)))
		}

		decoded, size, err := decodeEntry(buf, 0)
		if err != nil {
			t.Fatalf("decodeEntry failed for %s: %v", entry.RelPath, err)
		}
		if size != len(buf) {
			t.Errorf("decodeEntry consumed %d bytes, expected %d", size, len(buf))
		}
		if *decoded != *entry {
			t.Errorf("Entry changed in round trip: %+v vs %+v", decoded, entry)
		}
	}
}

func TestDecodeEntryRejectsCorruption(t *testing.T) {
	entry := &sigEntry{RelPath: "file", Signature: "3:abc:def", FileSize: 10, MTimeNano: 1}
	buf := serializeEntry(entry)

	t.Run("Truncated", func(t *testing.T) {
		if _, _, err := decodeEntry(buf[:16], 0); err == nil {
			t.Error("Expected error for truncated entry")
		}
	})

	t.Run("SizeOverrun", func(t *testing.T) {
		corrupt := append([]byte(nil), buf...)
		corrupt[0] = 0xff // Size low byte
		if _, _, err := decodeEntry(corrupt, 0); err == nil {
			t.Error("Expected error for entry size overrunning data")
		}
	})

	t.Run("BadSigLen", func(t *testing.T) {
		corrupt := append([]byte(nil), buf...)
		corrupt[6] = 0xff // SigLen low byte
		corrupt[7] = 0xff
		if _, _, err := decodeEntry(corrupt, 0); err == nil {
			t.Error("Expected error for out-of-range signature length")
		}
	})
}

func TestIndexRoundTrip(t *testing.T) {
	indexPath := filepath.Join(t.TempDir(), IndexFileName)

	original := newSigSkiplist(16)
	for _, entry := range sampleEntries() {
		if !original.Insert(entry, MainContext) {
			t.Fatalf("Failed to insert %s", entry.RelPath)
		}
	}

	if err := writeIndex(indexPath, original); err != nil {
		t.Fatalf("writeIndex failed: %v", err)
	}

	loaded, err := loadIndex(indexPath)
	if err != nil {
		t.Fatalf("loadIndex failed: %v", err)
	}
	if loaded.Length() != original.Length() {
		t.Fatalf("Expected %d entries, got %d", original.Length(), loaded.Length())
	}

	for _, want := range sampleEntries() {
		got, context := loaded.Find(want.RelPath)
		if got == nil {
			t.Fatalf("Entry %s missing after round trip", want.RelPath)
		}
		if context != MainContext {
			t.Errorf("Expected context %q, got %q", MainContext, context)
		}
		if *got != *want {
			t.Errorf("Entry %s changed in round trip: %+v vs %+v", want.RelPath, got, want)
		}
	}
}

func TestLoadIndexMissingFile(t *testing.T) {
	sl, err := loadIndex(filepath.Join(t.TempDir(), "absent.idx"))
	if err != nil {
		t.Fatalf("Expected empty skiplist for missing index, got error: %v", err)
	}
	if !sl.IsEmpty() {
		t.Errorf("Expected empty skiplist, got %d entries", sl.Length())
	}
}

func TestLoadIndexRejectsCorruptFiles(t *testing.T) {
	tempDir := t.TempDir()
	indexPath := filepath.Join(tempDir, IndexFileName)

	sl := newSigSkiplist(16)
	for _, entry := range sampleEntries() {
		sl.Insert(entry, MainContext)
	}
	if err := writeIndex(indexPath, sl); err != nil {
		t.Fatalf("writeIndex failed: %v", err)
	}

	corruptAt := func(t *testing.T, offset int64, value byte) string {
		t.Helper()
		data, err := os.ReadFile(indexPath)
		if err != nil {
			t.Fatalf("Failed to read index: %v", err)
		}
		data[offset] = value
		corruptPath := filepath.Join(tempDir, "corrupt.idx")
		if err := os.WriteFile(corruptPath, data, 0644); err != nil {
			t.Fatalf("Failed to write corrupt index: %v", err)
		}
		return corruptPath
	}

	t.Run("BadSignature", func(t *testing.T) {
		if _, err := loadIndex(corruptAt(t, 0, 'X')); err == nil {
			t.Error("Expected error for bad file signature")
		}
	})

	t.Run("BadEntryData", func(t *testing.T) {
		// Flip a byte inside entry data: the checksum must catch it
		if _, err := loadIndex(corruptAt(t, HeaderSize+40, 0xAA)); err == nil {
			t.Error("Expected checksum error for corrupted entry data")
		}
	})

	t.Run("TooSmall", func(t *testing.T) {
		shortPath := filepath.Join(tempDir, "short.idx")
		if err := os.WriteFile(shortPath, []byte("fdhi"), 0644); err != nil {
			t.Fatalf("Failed to write short index: %v", err)
		}
		if _, err := loadIndex(shortPath); err == nil {
			t.Error("Expected error for undersized index file")
		}
	})
}

func TestBinaryEntrySize(t *testing.T) {
	minSize := binaryEntrySize(0)
	if minSize%8 != 0 {
		t.Errorf("Minimum entry size %d not 8-byte aligned", minSize)
	}
	for pathLen := 0; pathLen < 64; pathLen++ {
		size := binaryEntrySize(pathLen)
		if size%8 != 0 {
			t.Errorf("Entry size %d for path length %d not 8-byte aligned", size, pathLen)
		}
		if size < minSize {
			t.Errorf("Entry size %d for path length %d below minimum %d", size, pathLen, minSize)
		}
		if size < binaryEntryPathOffset+pathLen {
			t.Errorf("Entry size %d cannot hold path of %d bytes", size, pathLen)
		}
	}
}
