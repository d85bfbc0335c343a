package fuzzydirhash

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// SigFileHeader is the header line written at the top of signature list
// files, matching the format produced by the ssdeep command line tool.
const SigFileHeader = "ssdeep,1.1--blocksize:hash:hash,filename"

// sigFileHeaderPrefixes are the header variants accepted when reading.
// Version 1.0 files differ only in filename quoting, which the reader
// handles either way.
var sigFileHeaderPrefixes = []string{"ssdeep,1.1--", "ssdeep,1.0--"}

// SigRecord is one named signature from a signature list
type SigRecord struct {
	Signature string // fuzzy hash signature text
	Name      string // filename (or any label) the signature belongs to
}

// ReadSigFile reads an ssdeep-format signature list from the named file
func ReadSigFile(path string) ([]SigRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open signature file: %w", err)
	}
	defer file.Close()

	records, err := ParseSigList(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// ParseSigList parses an ssdeep-format signature list. The first line must
// be a recognised header; each following non-empty line is
// "signature,filename" with the filename optionally double-quoted.
// Malformed lines are reported with their line number.
func ParseSigList(r io.Reader) ([]SigRecord, error) {
	scanner := bufio.NewScanner(r)
	// Signature lines are short but filenames can be long paths
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read header: %w", err)
		}
		return nil, fmt.Errorf("empty signature file")
	}

	header := strings.TrimSpace(scanner.Text())
	if !isSigFileHeader(header) {
		return nil, fmt.Errorf("line 1: unrecognised signature file header %q", header)
	}

	var records []SigRecord
	lineNo := 1
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		record, err := parseSigLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read signature file: %w", err)
	}
	return records, nil
}

// parseSigLine splits "signature,filename" at the first comma. Signatures
// are blocksize:hash:hash text and never contain a comma themselves, so the
// first comma always terminates the signature.
func parseSigLine(line string) (SigRecord, error) {
	idx := strings.IndexByte(line, ',')
	if idx <= 0 {
		return SigRecord{}, fmt.Errorf("malformed signature line %q", line)
	}

	sig := line[:idx]
	if strings.Count(sig, ":") != 2 {
		return SigRecord{}, fmt.Errorf("malformed signature %q", sig)
	}

	name := line[idx+1:]
	if strings.HasPrefix(name, "\"") {
		unquoted, err := strconv.Unquote(name)
		if err != nil {
			return SigRecord{}, fmt.Errorf("malformed quoted filename %s: %w", name, err)
		}
		name = unquoted
	}

	return SigRecord{Signature: sig, Name: name}, nil
}

// WriteSigList writes records as an ssdeep-format signature list, header
// included. Filenames are always quoted, as ssdeep 1.1 does.
func WriteSigList(w io.Writer, records []SigRecord) error {
	bw := bufio.NewWriter(w)

	if _, err := fmt.Fprintln(bw, SigFileHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, record := range records {
		if _, err := fmt.Fprintf(bw, "%s,%s\n", record.Signature, strconv.Quote(record.Name)); err != nil {
			return fmt.Errorf("failed to write signature for %s: %w", record.Name, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush signature list: %w", err)
	}
	return nil
}

// WriteSigFile writes records to the named file in ssdeep format
func WriteSigFile(path string, records []SigRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create signature file: %w", err)
	}

	if err := WriteSigList(file, records); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close signature file: %w", err)
	}
	return nil
}

func isSigFileHeader(line string) bool {
	for _, prefix := range sigFileHeaderPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
