package fuzzydirhash

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FuzzyDirCache manages a cached fuzzy hash index for a directory tree.
// State lives under <root>/.fdh: an ini config file and a binary signature
// index. Signatures are only recomputed for files whose size or mtime
// changed since the last update.
type FuzzyDirCache struct {
	RootDir   string // absolute root of the cached tree
	StateDir  string // <root>/.fdh
	IndexFile string // <root>/.fdh/fuzzy.idx

	config      *Config
	hashWorkers int

	mutex        sync.RWMutex // protects index
	index        *skiplistWrapper
	shutdownChan chan struct{}
	closeOnce    sync.Once
}

// StatusResult describes the differences between the directory tree and
// the cached index
type StatusResult struct {
	New      []string // files with no index entry
	Modified []string // files whose size or mtime changed
	Deleted  []string // index entries with no file
}

// HasChanges returns true if any difference was found
func (sr *StatusResult) HasChanges() bool {
	return sr.TotalChanges() > 0
}

// TotalChanges returns the total number of differences
func (sr *StatusResult) TotalChanges() int {
	return len(sr.New) + len(sr.Modified) + len(sr.Deleted)
}

// IndexMatch pairs an indexed file with its matches from a signature set
type IndexMatch struct {
	RelPath string
	Matches []MatchResult
}

// NewFuzzyDirCache opens (or initialises) the cache for rootDir, creating
// the state directory and default config on first use and loading any
// existing index.
func NewFuzzyDirCache(rootDir string) (*FuzzyDirCache, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root directory: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", absRoot)
	}

	stateDir := filepath.Join(absRoot, StateDirName)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	config, err := LoadConfig(stateDir)
	if err != nil {
		return nil, err
	}

	// Config-level verbosity applies unless the caller already raised it
	verboseConfig := config.GetVerboseConfig()
	if verboseConfig.Level > GetVerboseLevel() {
		SetVerboseLevel(verboseConfig.Level)
	}
	if verboseConfig.Debug != "" {
		SetDebugFlags(verboseConfig.Debug)
	}

	indexFile := indexPathFor(stateDir)
	index, err := loadIndex(indexFile)
	if err != nil {
		return nil, err
	}

	return &FuzzyDirCache{
		RootDir:      absRoot,
		StateDir:     stateDir,
		IndexFile:    indexFile,
		config:       config,
		hashWorkers:  config.GetPerformanceConfig().HashWorkers,
		index:        index,
		shutdownChan: make(chan struct{}),
	}, nil
}

// Config returns the cache's configuration
func (fc *FuzzyDirCache) Config() *Config {
	return fc.config
}

// MatchThreshold returns the configured minimum match score
func (fc *FuzzyDirCache) MatchThreshold() int {
	return fc.config.GetMatchConfig().Threshold
}

// Len returns the number of indexed files
func (fc *FuzzyDirCache) Len() int {
	fc.mutex.RLock()
	defer fc.mutex.RUnlock()
	return fc.index.Length()
}

// Update scans the tree, refreshes signatures for new and changed files,
// drops entries for vanished files and persists the index. With no
// arguments the whole tree is rescanned; with arguments only the named
// paths (relative to the root) are rescanned and merged into the index.
func (fc *FuzzyDirCache) Update(paths ...string) error {
	defer VerboseEnter()()

	fc.mutex.Lock()
	defer fc.mutex.Unlock()

	scanned, err := scanToSkiplist(fc.RootDir, paths, fc.index, fc.hashWorkers, fc.shutdownChan)
	if err != nil {
		return err
	}

	if len(paths) == 0 {
		fc.index = scanned
	} else {
		// Deletions inside the scanned subtrees: entries the scan no
		// longer sees must go before the merge, since merging only adds
		// and replaces.
		var stale []string
		fc.index.ForEach(func(entry *sigEntry, context string) bool {
			if underAnyPath(entry.RelPath, paths) {
				if found, _ := scanned.Find(entry.RelPath); found == nil {
					stale = append(stale, entry.RelPath)
				}
			}
			return true
		})
		for _, relPath := range stale {
			fc.index.Delete(relPath)
		}

		if err := fc.index.Merge(scanned, MergeTheirs); err != nil {
			return fmt.Errorf("failed to merge scan results: %w", err)
		}
	}

	return writeIndex(fc.IndexFile, fc.index)
}

// Status walks the tree and reports differences against the index without
// hashing anything
func (fc *FuzzyDirCache) Status() (*StatusResult, error) {
	defer VerboseEnter()()

	fc.mutex.RLock()
	defer fc.mutex.RUnlock()

	result := &StatusResult{}
	seen := make(map[string]bool, fc.index.Length())

	err := walkFiles(fc.RootDir, nil, func(sp *scannedPath) error {
		seen[sp.RelPath] = true
		entry, _ := fc.index.Find(sp.RelPath)
		switch {
		case entry == nil:
			result.New = append(result.New, sp.RelPath)
		case !isEntryCurrent(entry, sp):
			result.Modified = append(result.Modified, sp.RelPath)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fc.index.ForEach(func(entry *sigEntry, context string) bool {
		if !seen[entry.RelPath] {
			result.Deleted = append(result.Deleted, entry.RelPath)
		}
		return true
	})

	return result, nil
}

// Lookup returns the cached signature for a file, by path relative to the
// root
func (fc *FuzzyDirCache) Lookup(relPath string) (string, bool) {
	fc.mutex.RLock()
	defer fc.mutex.RUnlock()

	entry, _ := fc.index.Find(filepath.ToSlash(relPath))
	if entry == nil || entry.Signature == "" {
		return "", false
	}
	return entry.Signature, true
}

// Signatures returns all indexed signatures as records suitable for
// writing with WriteSigFile, in path order
func (fc *FuzzyDirCache) Signatures() []SigRecord {
	fc.mutex.RLock()
	defer fc.mutex.RUnlock()

	records := make([]SigRecord, 0, fc.index.Length())
	fc.index.ForEach(func(entry *sigEntry, context string) bool {
		if entry.Signature != "" {
			records = append(records, SigRecord{Signature: entry.Signature, Name: entry.RelPath})
		}
		return true
	})
	return records
}

// MatchAgainst matches every indexed signature against a signature set and
// returns the files with at least one match scoring >= threshold, in path
// order
func (fc *FuzzyDirCache) MatchAgainst(set *MatchSet, threshold int) ([]IndexMatch, error) {
	defer VerboseEnter()()

	fc.mutex.RLock()
	defer fc.mutex.RUnlock()

	var matches []IndexMatch
	var matchErr error
	fc.index.ForEach(func(entry *sigEntry, context string) bool {
		if entry.Signature == "" {
			return true
		}
		results, err := set.Match(entry.Signature, threshold)
		if err != nil {
			matchErr = fmt.Errorf("failed to match %s: %w", entry.RelPath, err)
			return false
		}
		if len(results) > 0 {
			matches = append(matches, IndexMatch{RelPath: entry.RelPath, Matches: results})
		}
		return true
	})
	if matchErr != nil {
		return nil, matchErr
	}
	return matches, nil
}

// Close signals shutdown to any in-flight scan. It does not wait for the
// scan to finish; Update returns an error once it observes the signal.
func (fc *FuzzyDirCache) Close() error {
	fc.closeOnce.Do(func() {
		close(fc.shutdownChan)
	})
	return nil
}

// underAnyPath reports whether relPath equals or sits below any of the
// given root-relative paths
func underAnyPath(relPath string, paths []string) bool {
	for _, p := range paths {
		p = filepath.ToSlash(filepath.Clean(p))
		if p == "." || relPath == p || strings.HasPrefix(relPath, p+"/") {
			return true
		}
	}
	return false
}
