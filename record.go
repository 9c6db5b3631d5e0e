// FILE: lixenwraith/disklog/record.go
package disklog

import (
	"fmt"
	"os"
	"strings"
)

// logRecord represents a single queued entry
type logRecord struct {
	Level   int64
	Tag     string
	Message string

	flushDone chan struct{} // Non-nil marks a flush barrier instead of a record
}

// sendRecord hands a record to the worker without blocking
func (s *Sink) sendRecord(record logRecord) {
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()

	if s.state.CloseCalled.Load() {
		s.state.TotalDroppedRecords.Add(1)
		return
	}

	select {
	case s.ch <- record:
		if s.state.DropReported.Load() {
			s.state.DropReported.Store(false)
		}
	default:
		s.state.TotalDroppedRecords.Add(1)
		if !s.state.DropReported.Swap(true) {
			s.reportError(fmtErrorf("queue full (buffer_size %d), records are being dropped", s.cfg.BufferSize))
		}
	}
}

// reportError delivers a failure to the error handler, or to stderr if enabled.
// A panicking handler is contained so logging stays infallible.
func (s *Sink) reportError(err error) {
	if err == nil {
		return
	}
	if s.onError != nil {
		defer func() {
			if r := recover(); r != nil {
				s.internalLog("error handler panicked: %v (while reporting: %v)\n", r, err)
			}
		}()
		s.onError(err)
		return
	}
	s.internalLog("%v\n", err)
}

// internalLog handles writing internal sink diagnostics to stderr, if enabled.
func (s *Sink) internalLog(format string, args ...any) {
	if !s.cfg.InternalErrorsToStderr {
		return
	}

	msg := fmt.Sprintf(format, args...)
	if !strings.HasPrefix(msg, "disklog: ") {
		msg = "disklog: " + msg
	}

	fmt.Fprint(os.Stderr, msg)
}
