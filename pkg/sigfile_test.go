package fuzzydirhash

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseSigList(t *testing.T) {
	t.Run("BasicList", func(t *testing.T) {
		input := SigFileHeader + "\n" +
			"3:aNRn:aNRn,\"hello.txt\"\n" +
			"3:u+N:u+N,\"sub/dir/file.bin\"\n"
		records, err := ParseSigList(strings.NewReader(input))
		if err != nil {
			t.Fatalf("ParseSigList failed: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("Expected 2 records, got %d", len(records))
		}
		if records[0].Signature != "3:aNRn:aNRn" || records[0].Name != "hello.txt" {
			t.Errorf("Unexpected first record: %+v", records[0])
		}
		if records[1].Name != "sub/dir/file.bin" {
			t.Errorf("Unexpected second record name: %q", records[1].Name)
		}
	})

	t.Run("UnquotedFilename", func(t *testing.T) {
		input := "ssdeep,1.0--blocksize:hash:hash,filename\n" +
			"3:aNRn:aNRn,hello.txt\n"
		records, err := ParseSigList(strings.NewReader(input))
		if err != nil {
			t.Fatalf("ParseSigList failed: %v", err)
		}
		if records[0].Name != "hello.txt" {
			t.Errorf("Expected name 'hello.txt', got %q", records[0].Name)
		}
	})

	t.Run("FilenameWithComma", func(t *testing.T) {
		input := SigFileHeader + "\n" +
			"3:aNRn:aNRn,\"a, strange name.txt\"\n"
		records, err := ParseSigList(strings.NewReader(input))
		if err != nil {
			t.Fatalf("ParseSigList failed: %v", err)
		}
		if records[0].Name != "a, strange name.txt" {
			t.Errorf("Expected comma to survive in quoted name, got %q", records[0].Name)
		}
	})

	t.Run("SkipsBlankLines", func(t *testing.T) {
		input := SigFileHeader + "\n\n3:aNRn:aNRn,\"x\"\n\n"
		records, err := ParseSigList(strings.NewReader(input))
		if err != nil {
			t.Fatalf("ParseSigList failed: %v", err)
		}
		if len(records) != 1 {
			t.Errorf("Expected 1 record, got %d", len(records))
		}
	})

	t.Run("MissingHeader", func(t *testing.T) {
		input := "3:aNRn:aNRn,\"hello.txt\"\n"
		if _, err := ParseSigList(strings.NewReader(input)); err == nil {
			t.Error("Expected error for missing header")
		}
	})

	t.Run("EmptyInput", func(t *testing.T) {
		if _, err := ParseSigList(strings.NewReader("")); err == nil {
			t.Error("Expected error for empty input")
		}
	})

	t.Run("MalformedLineReportsNumber", func(t *testing.T) {
		input := SigFileHeader + "\n" +
			"3:aNRn:aNRn,\"ok.txt\"\n" +
			"not-a-signature-line\n"
		_, err := ParseSigList(strings.NewReader(input))
		if err == nil {
			t.Fatal("Expected error for malformed line")
		}
		if !strings.Contains(err.Error(), "line 3") {
			t.Errorf("Expected error to name line 3, got: %v", err)
		}
	})

	t.Run("MalformedSignature", func(t *testing.T) {
		input := SigFileHeader + "\n" +
			"nocolons,\"x\"\n"
		if _, err := ParseSigList(strings.NewReader(input)); err == nil {
			t.Error("Expected error for signature without colons")
		}
	})
}

func TestWriteSigList(t *testing.T) {
	records := []SigRecord{
		{Signature: "3:aNRn:aNRn", Name: "hello.txt"},
		{Signature: "3:u+N:u+N", Name: "with, comma.bin"},
	}

	var buf bytes.Buffer
	if err := WriteSigList(&buf, records); err != nil {
		t.Fatalf("WriteSigList failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header plus 2 lines, got %d lines", len(lines))
	}
	if lines[0] != SigFileHeader {
		t.Errorf("Expected header %q, got %q", SigFileHeader, lines[0])
	}
	if lines[1] != "3:aNRn:aNRn,\"hello.txt\"" {
		t.Errorf("Unexpected first line: %q", lines[1])
	}

	// Round trip
	parsed, err := ParseSigList(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("Round-trip parse failed: %v", err)
	}
	if len(parsed) != len(records) {
		t.Fatalf("Round trip lost records: %d vs %d", len(parsed), len(records))
	}
	for i := range records {
		if parsed[i] != records[i] {
			t.Errorf("Record %d changed in round trip: %+v vs %+v", i, parsed[i], records[i])
		}
	}
}

func TestSigFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known.sig")
	records := []SigRecord{
		{Signature: "3:AXGBicFlgVNhBGcL6wCrFQEv:AXGHsNhxLsr2C", Name: "a"},
		{Signature: "3:OWIXTn:OWQ", Name: "b"},
	}

	if err := WriteSigFile(path, records); err != nil {
		t.Fatalf("WriteSigFile failed: %v", err)
	}
	parsed, err := ReadSigFile(path)
	if err != nil {
		t.Fatalf("ReadSigFile failed: %v", err)
	}
	if len(parsed) != 2 || parsed[0] != records[0] || parsed[1] != records[1] {
		t.Errorf("Round trip mismatch: %+v", parsed)
	}
}
