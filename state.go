// FILE: lixenwraith/disklog/state.go
package disklog

import (
	"sync/atomic"
)

// State encapsulates the runtime state of the sink
type State struct {
	Started         atomic.Bool
	CloseCalled     atomic.Bool
	ProcessorExited atomic.Bool // Tracks if the worker goroutine is running or has exited
	DropReported    atomic.Bool // A full-queue drop was reported and no send has succeeded since

	// Statistics
	TotalRecordsWritten atomic.Uint64 // Records appended to a file
	TotalDroppedRecords atomic.Uint64 // Records rejected by a full or closed queue
	TotalWriteFailures  atomic.Uint64 // Records lost to an I/O failure in the worker
	TotalRotations      atomic.Uint64 // Writes that opened a new sequence for an existing date
	TotalDeletions      atomic.Uint64 // Files removed by sweeps
	TotalSweeps         atomic.Uint64 // Completed sweep runs
	TotalMalformed      atomic.Uint64 // Malformed file names met during sweeps
}

// Stats is a point-in-time snapshot of the sink counters
type Stats struct {
	RecordsWritten uint64
	RecordsDropped uint64
	WriteFailures  uint64
	Rotations      uint64
	Deletions      uint64
	Sweeps         uint64
	MalformedNames uint64
}

// Stats returns a snapshot of the sink counters
func (s *Sink) Stats() Stats {
	return Stats{
		RecordsWritten: s.state.TotalRecordsWritten.Load(),
		RecordsDropped: s.state.TotalDroppedRecords.Load(),
		WriteFailures:  s.state.TotalWriteFailures.Load(),
		Rotations:      s.state.TotalRotations.Load(),
		Deletions:      s.state.TotalDeletions.Load(),
		Sweeps:         s.state.TotalSweeps.Load(),
		MalformedNames: s.state.TotalMalformed.Load(),
	}
}
