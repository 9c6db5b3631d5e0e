// FILE: lixenwraith/disklog/sink.go
package disklog

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Sink is the asynchronous disk log sink.
// Log never blocks on I/O; a single worker goroutine owns all writes to the folder.
type Sink struct {
	cfg       *Config
	folder    string
	folderKey string
	state     State

	ch      chan logRecord
	closeMu sync.RWMutex  // Guards sends against close(ch)
	done    chan struct{} // Closed by Close before it takes closeMu

	now     func() time.Time
	onError func(error)

	sweeper   *Sweeper
	scheduler *cron.Cron
	sweepWG   sync.WaitGroup

	activePath string // Last file written, owned by the worker
}

// Option customizes a Sink at construction
type Option func(*Sink)

// WithErrorHandler routes worker and sweeper failures to fn instead of stderr.
// fn may be called concurrently from the worker, sweeps and producers.
func WithErrorHandler(fn func(error)) Option {
	return func(s *Sink) {
		s.onError = fn
	}
}

// WithClock sets the clock used for date keys and retention cutoffs
func WithClock(now func() time.Time) Option {
	return func(s *Sink) {
		if now != nil {
			s.now = now
		}
	}
}

// New validates cfg, claims the log folder and starts the worker, the startup sweep and,
// if configured, the sweep schedule
func New(cfg *Config, opts ...Option) (*Sink, error) {
	if cfg == nil {
		return nil, configErrorf("configuration cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Sink{
		cfg:    cfg.Clone(),
		folder: cfg.FolderPath(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	key, err := acquireFolder(s.folder)
	if err != nil {
		return nil, err
	}
	s.folderKey = key

	s.sweeper = NewSweeper(s.folder, s.cfg.MaxFolderBytes, s.cfg.MaxHistoryDays,
		WithSweepClock(s.now),
		WithSweepErrorHandler(s.reportError),
	)

	if s.cfg.SweepSchedule != "" {
		s.scheduler = cron.New()
		if _, err := s.scheduler.AddFunc(s.cfg.SweepSchedule, func() { s.runSweep() }); err != nil {
			releaseFolder(key)
			return nil, configErrorf("invalid sweep_schedule '%s': %v", s.cfg.SweepSchedule, err)
		}
	}

	s.ch = make(chan logRecord, s.cfg.BufferSize)
	s.done = make(chan struct{})
	s.state.ProcessorExited.Store(false)
	s.state.Started.Store(true)
	go s.processRecords()

	s.sweepWG.Add(1)
	go func() {
		defer s.sweepWG.Done()
		s.runSweep()
	}()

	if s.scheduler != nil {
		s.scheduler.Start()
	}

	return s, nil
}

// Log enqueues message for asynchronous persistence.
// It never blocks on I/O and never reports an error; an empty tag means no tag.
func (s *Sink) Log(level int64, tag, message string) {
	s.sendRecord(logRecord{
		Level:   level,
		Tag:     tag,
		Message: message,
	})
}

// Print joins args into a raw space-separated message and logs it
func (s *Sink) Print(level int64, tag string, args ...any) {
	s.Log(level, tag, joinArgs(args))
}

// Flush waits until every record enqueued before the call has been written or dropped
func (s *Sink) Flush(timeout time.Duration) error {
	s.closeMu.RLock()
	if s.state.CloseCalled.Load() {
		s.closeMu.RUnlock()
		return ErrSinkClosed
	}

	confirmChan := make(chan struct{})
	select {
	case s.ch <- logRecord{flushDone: confirmChan}:
		s.closeMu.RUnlock()
	case <-s.done:
		// Release the read lock so Close, and producers queued behind it, can proceed
		s.closeMu.RUnlock()
		return ErrSinkClosed
	case <-time.After(timeout):
		s.closeMu.RUnlock()
		return fmtErrorf("timeout sending flush request (%v)", timeout)
	}

	select {
	case <-confirmChan:
		return nil
	case <-time.After(timeout):
		return fmtErrorf("timeout waiting for flush confirmation (%v)", timeout)
	}
}

// Sweep runs both retention passes now and waits for them
func (s *Sink) Sweep() (SweepResult, error) {
	s.closeMu.RLock()
	if s.state.CloseCalled.Load() {
		s.closeMu.RUnlock()
		return SweepResult{}, ErrSinkClosed
	}
	s.sweepWG.Add(1)
	s.closeMu.RUnlock()

	defer s.sweepWG.Done()
	return s.runSweep(), nil
}

// Close stops the sweep schedule, drains queued records and waits for the worker and running
// sweeps. If no timeout is provided, a default of 2 seconds is used. Safe to call more than once.
func (s *Sink) Close(timeout ...time.Duration) error {
	if !s.state.CloseCalled.CompareAndSwap(false, true) {
		return nil
	}

	effectiveTimeout := defaultCloseTimeout
	if len(timeout) > 0 {
		effectiveTimeout = timeout[0]
	}
	deadline := time.Now().Add(effectiveTimeout)

	var schedulerDone context.Context
	if s.scheduler != nil {
		schedulerDone = s.scheduler.Stop()
	}

	close(s.done)

	s.closeMu.Lock()
	close(s.ch)
	s.closeMu.Unlock()
	s.state.Started.Store(false)

	var finalErr error

	processorCleanlyExited := false
	for time.Now().Before(deadline) {
		if s.state.ProcessorExited.Load() {
			processorCleanlyExited = true
			break
		}
		time.Sleep(minWaitTime)
	}
	if !processorCleanlyExited {
		finalErr = combineErrors(finalErr, fmtErrorf("worker did not exit within timeout (%v)", effectiveTimeout))
	}

	sweepsDone := make(chan struct{})
	go func() {
		s.sweepWG.Wait()
		if schedulerDone != nil {
			<-schedulerDone.Done()
		}
		close(sweepsDone)
	}()

	select {
	case <-sweepsDone:
	case <-time.After(time.Until(deadline)):
		finalErr = combineErrors(finalErr, fmtErrorf("sweeps did not finish within timeout (%v)", effectiveTimeout))
	}

	return finalErr
}

// Config returns a copy of the sink configuration
func (s *Sink) Config() *Config {
	return s.cfg.Clone()
}

// Folder returns the folder the sink writes to
func (s *Sink) Folder() string {
	return s.folder
}

// runSweep runs the sweeper and folds its result into the counters
func (s *Sink) runSweep() SweepResult {
	result := s.sweeper.Run()
	s.state.TotalSweeps.Add(1)
	s.state.TotalDeletions.Add(uint64(len(result.Deleted)))
	s.state.TotalMalformed.Add(uint64(len(result.Malformed)))
	return result
}
