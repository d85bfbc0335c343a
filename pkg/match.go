package fuzzydirhash

import (
	"errors"
	"fmt"
	"sort"
)

// MatchResult is one signature-set member that scored at or above the
// match threshold
type MatchResult struct {
	Name  string // name of the matched signature (usually a filename)
	Score int    // match score in [1,100]
}

// MatchSet is a collection of named signatures that probes can be matched
// against, typically loaded from an ssdeep signature list file.
type MatchSet struct {
	records []SigRecord
}

// NewMatchSet creates an empty match set
func NewMatchSet() *MatchSet {
	return &MatchSet{}
}

// Add adds a named signature to the set. The signature is not validated
// here; an unparseable signature is reported (and skipped) when matching.
func (ms *MatchSet) Add(name, signature string) {
	ms.records = append(ms.records, SigRecord{Signature: signature, Name: name})
}

// LoadSigFile loads an ssdeep-format signature list file into the set
func (ms *MatchSet) LoadSigFile(path string) error {
	records, err := ReadSigFile(path)
	if err != nil {
		return err
	}
	ms.records = append(ms.records, records...)
	return nil
}

// Len returns the number of signatures in the set
func (ms *MatchSet) Len() int {
	return len(ms.records)
}

// Records returns the signatures in the set
func (ms *MatchSet) Records() []SigRecord {
	return ms.records
}

// Match compares sig against every signature in the set and returns the
// members scoring at least threshold, best score first. A score of zero
// never matches, whatever the threshold: zero is the native library's
// "no similarity" answer, not a weak match.
//
// An unparseable probe signature is an error. An unparseable signature
// inside the set is logged and skipped so that one bad list entry cannot
// abort a whole match run.
func (ms *MatchSet) Match(sig string, threshold int) ([]MatchResult, error) {
	if threshold < MatchScoreMin || threshold > MatchScoreMax {
		return nil, fmt.Errorf("match threshold %d outside [%d,%d]", threshold, MatchScoreMin, MatchScoreMax)
	}

	// Validate the probe before scanning the set: fuzzy_compare reports a
	// single failure signal for either input, so a self-compare is the only
	// way to attribute a parse failure to the probe itself.
	if _, err := Compare(sig, sig); err != nil {
		return nil, fmt.Errorf("invalid probe signature %q: %w", sig, err)
	}

	var results []MatchResult
	for _, record := range ms.records {
		score, err := Compare(sig, record.Signature)
		if err != nil {
			var nce *NativeCallError
			if errors.As(err, &nce) {
				// Probe already validated, so the set member is the
				// malformed side.
				VerboseLog(1, "skipping unparseable signature for %s: %v", record.Name, err)
				continue
			}
			return nil, err
		}

		if IsDebugEnabled("match") {
			VerboseLog(3, "match: %s scored %d against %s", sig, score, record.Name)
		}

		if score > 0 && score >= threshold {
			results = append(results, MatchResult{Name: record.Name, Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}

// MatchBuffer hashes data and matches the resulting signature against the
// set
func (ms *MatchSet) MatchBuffer(data []byte, threshold int) ([]MatchResult, error) {
	sig, err := Hash(data)
	if err != nil {
		return nil, fmt.Errorf("failed to hash buffer: %w", err)
	}
	return ms.Match(sig, threshold)
}

// MatchFile hashes the named file and matches the resulting signature
// against the set
func (ms *MatchSet) MatchFile(path string, threshold int) ([]MatchResult, error) {
	sig, err := HashFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return ms.Match(sig, threshold)
}
