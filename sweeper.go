// FILE: lixenwraith/disklog/sweeper.go
package disklog

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Sweeper deletes log files whose date key is older than the retention thresholds.
// Runs are serialized; a Sweeper does not coordinate with the sink's write worker.
type Sweeper struct {
	folder         string
	maxFolderBytes int64
	maxHistoryDays int64
	now            func() time.Time
	report         func(error)
	mu             sync.Mutex
}

// SweeperOption customizes a Sweeper
type SweeperOption func(*Sweeper)

// WithSweepClock sets the clock used to compute today's date
func WithSweepClock(now func() time.Time) SweeperOption {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSweepErrorHandler sets the receiver of per-file failures
func WithSweepErrorHandler(fn func(error)) SweeperOption {
	return func(s *Sweeper) {
		if fn != nil {
			s.report = fn
		}
	}
}

// SweepResult summarizes one Run
type SweepResult struct {
	FolderBytes   int64    // Folder size before deletions
	SizeTriggered bool     // Folder exceeded max folder bytes
	Deleted       []string // File names removed, in deletion order
	Malformed     []string // File names skipped for carrying no date key
	Failed        int      // Removals that returned an error
}

// sweepFile is a dated file found during a scan
type sweepFile struct {
	name    string
	date    time.Time
	deleted bool
}

// NewSweeper creates a sweeper for folder
func NewSweeper(folder string, maxFolderBytes, maxHistoryDays int64, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		folder:         folder,
		maxFolderBytes: maxFolderBytes,
		maxHistoryDays: maxHistoryDays,
		now:            time.Now,
		report:         func(error) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run performs the size-triggered pass followed by the unconditional age pass
func (s *Sweeper) Run() SweepResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var result SweepResult

	files, total, err := s.scan(now.Location(), &result)
	if err != nil {
		s.report(err)
		return result
	}
	result.FolderBytes = total

	if total > s.maxFolderBytes {
		result.SizeTriggered = true
		s.deleteOlderThan(files, dayCutoff(now, s.maxHistoryDays/2), &result)
	}

	s.deleteOlderThan(files, dayCutoff(now, s.maxHistoryDays), &result)

	return result
}

// scan lists regular files, summing every file's size and parsing date keys.
// Malformed names are reported and left out of the returned list.
func (s *Sweeper) scan(loc *time.Location, result *SweepResult) ([]*sweepFile, int64, error) {
	entries, err := os.ReadDir(s.folder)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, nil
		}
		return nil, 0, fmtErrorf("failed to read log folder '%s' for sweep: %w", s.folder, err)
	}

	var files []*sweepFile
	var total int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, errInfo := entry.Info()
		if errInfo != nil {
			continue
		}
		total += info.Size()

		date, errDate := ParseDateKey(entry.Name(), loc)
		if errDate != nil {
			result.Malformed = append(result.Malformed, entry.Name())
			s.report(&MalformedFileNameError{Name: entry.Name(), Err: errDate})
			continue
		}
		files = append(files, &sweepFile{name: entry.Name(), date: date})
	}
	return files, total, nil
}

// deleteOlderThan removes every not yet deleted file dated strictly before cutoff
func (s *Sweeper) deleteOlderThan(files []*sweepFile, cutoff time.Time, result *SweepResult) {
	for _, f := range files {
		if f.deleted || !f.date.Before(cutoff) {
			continue
		}
		path := filepath.Join(s.folder, f.name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			result.Failed++
			s.report(&WriteError{Path: path, Op: "remove", Err: err})
			continue
		}
		f.deleted = true
		result.Deleted = append(result.Deleted, f.name)
	}
}

// dayCutoff returns local midnight of now's day minus days
func dayCutoff(now time.Time, days int64) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, -int(days))
}
