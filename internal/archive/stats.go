package archive

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// RunStats accumulates progress counters across pipeline workers. All
// counters are atomics: workers share nothing else.
type RunStats struct {
	PostsLoaded    atomic.Int64
	CommentsLoaded atomic.Int64
	Conflicts      atomic.Int64
	Orphans        atomic.Int64
	BadRecords     atomic.Int64
	BadSQLRows     atomic.Int64
	FilesProcessed atomic.Int64
	FilesSkipped   atomic.Int64 // already complete per checkpoint

	mu           sync.Mutex
	abortedFiles []string
}

// RecordAbortedFile notes a file that failed with a fatal per-file error.
func (s *RunStats) RecordAbortedFile(path string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.abortedFiles = append(s.abortedFiles, fmt.Sprintf("%s: %v", path, err))
}

// AbortedFiles returns the per-file failures recorded so far.
func (s *RunStats) AbortedFiles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.abortedFiles))
	copy(out, s.abortedFiles)
	return out
}

// Summary renders the end-of-run report: records processed, records skipped
// by category, and files that aborted.
func (s *RunStats) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "posts loaded:      %d\n", s.PostsLoaded.Load())
	fmt.Fprintf(&b, "comments loaded:   %d\n", s.CommentsLoaded.Load())
	fmt.Fprintf(&b, "duplicates skipped: %d\n", s.Conflicts.Load())
	fmt.Fprintf(&b, "orphan comments:   %d\n", s.Orphans.Load())
	fmt.Fprintf(&b, "bad records:       %d\n", s.BadRecords.Load())
	fmt.Fprintf(&b, "bad sql rows:      %d\n", s.BadSQLRows.Load())
	fmt.Fprintf(&b, "files processed:   %d\n", s.FilesProcessed.Load())
	fmt.Fprintf(&b, "files skipped:     %d\n", s.FilesSkipped.Load())
	aborted := s.AbortedFiles()
	fmt.Fprintf(&b, "files aborted:     %d\n", len(aborted))
	for _, f := range aborted {
		fmt.Fprintf(&b, "  %s\n", f)
	}
	return b.String()
}
