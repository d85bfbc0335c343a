package fuzzydirhash

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// scannedPath describes one regular file found during a walk
type scannedPath struct {
	RelPath string      // path relative to the cache root, "/" separated
	AbsPath string      // absolute path for hashing
	Info    os.FileInfo // lstat info captured during the walk
}

// hashJob carries one changed or new file to a hash worker. The worker owns
// Entry exclusively until the job completes, so it can fill in the
// signature without locking.
type hashJob struct {
	Entry   *sigEntry
	AbsPath string
}

// hashFailure reports a file a worker could not hash
type hashFailure struct {
	RelPath string
	Err     error
}

// hashManager runs the hash worker pool for one scan
type hashManager struct {
	jobChan      chan *hashJob
	wg           sync.WaitGroup
	shutdownChan <-chan struct{}
	closeMutex   sync.Mutex
	closed       bool

	// Failures accumulate under a mutex rather than a channel so a worker
	// can never block on reporting one, however many files fail.
	failureMutex sync.Mutex
	failures     []hashFailure
}

// newHashManager starts numWorkers hash workers
func newHashManager(numWorkers int, shutdownChan <-chan struct{}) *hashManager {
	if numWorkers < 1 {
		numWorkers = 1
	}
	hm := &hashManager{
		jobChan:      make(chan *hashJob, 100),
		shutdownChan: shutdownChan,
	}
	for i := 0; i < numWorkers; i++ {
		hm.wg.Add(1)
		go hm.hashWorker()
	}
	return hm
}

// Submit queues a hash job. Returns false if shutdown was signalled before
// the job could be queued; the workers may already have exited by then, so
// blocking on the job channel would hang.
func (hm *hashManager) Submit(job *hashJob) bool {
	select {
	case hm.jobChan <- job:
		return true
	case <-hm.shutdownChan:
		return false
	}
}

// FinishSubmitting signals that no more jobs will be submitted
func (hm *hashManager) FinishSubmitting() {
	hm.closeMutex.Lock()
	defer hm.closeMutex.Unlock()

	if !hm.closed {
		close(hm.jobChan)
		hm.closed = true
	}
}

// Wait blocks until all workers have drained the job channel, then returns
// the accumulated failures
func (hm *hashManager) Wait() []hashFailure {
	hm.wg.Wait()
	return hm.failures
}

// reportFailure records a file a worker could not hash
func (hm *hashManager) reportFailure(relPath string, err error) {
	hm.failureMutex.Lock()
	defer hm.failureMutex.Unlock()
	hm.failures = append(hm.failures, hashFailure{RelPath: relPath, Err: err})
}

// hashWorker processes hash jobs until the job channel closes or shutdown
// is signalled. Shutdown is only honoured between jobs; a native hash call
// cannot be interrupted once started.
func (hm *hashManager) hashWorker() {
	defer hm.wg.Done()

	for {
		select {
		case <-hm.shutdownChan:
			return
		case job, ok := <-hm.jobChan:
			if !ok {
				return
			}

			if IsDebugEnabled("scan") {
				VerboseLog(3, "hashWorker: hashing %s", job.Entry.RelPath)
			}

			sig, err := HashFile(job.AbsPath)
			if err != nil {
				hm.reportFailure(job.Entry.RelPath, err)
				continue
			}
			job.Entry.Signature = sig
		}
	}
}

// walkFiles walks the tree under rootDir in lexical order, calling fn for
// every regular file. The state directory and non-regular files (symlinks,
// sockets, devices) are skipped. If paths is non-empty only those subtrees
// or files, given relative to rootDir, are walked.
func walkFiles(rootDir string, paths []string, fn func(*scannedPath) error) error {
	roots := []string{rootDir}
	if len(paths) > 0 {
		roots = make([]string, len(paths))
		for i, p := range paths {
			roots[i] = filepath.Join(rootDir, p)
		}
	}

	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if d.Name() == StateDirName {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				// File vanished between readdir and lstat
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return err
			}

			rel, err := filepath.Rel(rootDir, path)
			if err != nil {
				return err
			}

			return fn(&scannedPath{
				RelPath: filepath.ToSlash(rel),
				AbsPath: path,
				Info:    info,
			})
		})
		if err != nil {
			return fmt.Errorf("failed to walk %s: %w", root, err)
		}
	}
	return nil
}

// isEntryCurrent reports whether a cached entry still describes the scanned
// file. Size and mtime together are the change signal, as in git's stat
// cache; content is only rehashed when either moved.
func isEntryCurrent(entry *sigEntry, sp *scannedPath) bool {
	return entry.Signature != "" &&
		entry.FileSize == uint64(sp.Info.Size()) &&
		entry.MTimeNano == sp.Info.ModTime().UnixNano()
}

// scanToSkiplist walks the tree and produces a fresh skiplist describing
// it. Files whose size and mtime match a base entry keep that entry's
// cached signature (MainContext); new or changed files are hashed on the
// worker pool (ScanContext). Files that fail to hash, typically because
// they vanished mid-scan, are dropped from the result with a verbose note.
func scanToSkiplist(rootDir string, paths []string, base *skiplistWrapper, numWorkers int, shutdownChan <-chan struct{}) (*skiplistWrapper, error) {
	defer VerboseEnter()()

	result := newSigSkiplist(16)
	manager := newHashManager(numWorkers, shutdownChan)

	walkErr := walkFiles(rootDir, paths, func(sp *scannedPath) error {
		select {
		case <-shutdownChan:
			return fmt.Errorf("scan interrupted by shutdown")
		default:
		}

		entry := &sigEntry{
			RelPath:   sp.RelPath,
			FileSize:  uint64(sp.Info.Size()),
			MTimeNano: sp.Info.ModTime().UnixNano(),
		}

		if cached, _ := base.Find(sp.RelPath); cached != nil && isEntryCurrent(cached, sp) {
			entry.Signature = cached.Signature
			result.Insert(entry, MainContext)
			return nil
		}

		result.Insert(entry, ScanContext)
		if !manager.Submit(&hashJob{Entry: entry, AbsPath: sp.AbsPath}) {
			return fmt.Errorf("scan interrupted by shutdown")
		}
		return nil
	})

	manager.FinishSubmitting()
	failures := manager.Wait()

	if walkErr != nil {
		return nil, walkErr
	}

	for _, failure := range failures {
		VerboseLog(1, "dropping %s from index: %v", failure.RelPath, failure.Err)
		result.Delete(failure.RelPath)
	}

	select {
	case <-shutdownChan:
		return nil, fmt.Errorf("scan interrupted by shutdown")
	default:
	}

	if IsDebugEnabled("scan") {
		VerboseLog(3, "scanToSkiplist: %d entries, %d hash failures", result.Length(), len(failures))
	}
	return result, nil
}
