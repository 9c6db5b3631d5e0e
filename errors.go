// FILE: lixenwraith/disklog/errors.go
package disklog

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is wrapped by every configuration validation failure
	ErrInvalidConfig = errors.New("disklog: invalid configuration")
	// ErrFolderInUse is returned when another open sink in this process owns the folder
	ErrFolderInUse = errors.New("disklog: log folder already in use by another sink")
	// ErrSinkClosed is returned by operations that need a running sink
	ErrSinkClosed = errors.New("disklog: sink is closed")
)

// WriteError reports a failed open, write, sync or close of a log file.
// The record being written is dropped.
type WriteError struct {
	Path string
	Op   string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("disklog: %s '%s' failed: %v", e.Op, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// DirectoryError reports that the log folder could not be created
type DirectoryError struct {
	Path string
	Err  error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("disklog: failed to create log folder '%s': %v", e.Path, e.Err)
}

func (e *DirectoryError) Unwrap() error { return e.Err }

// MalformedFileNameError reports a file in the log folder whose name carries no valid date key
type MalformedFileNameError struct {
	Name string
	Err  error
}

func (e *MalformedFileNameError) Error() string {
	return fmt.Sprintf("disklog: malformed log file name '%s': %v", e.Name, e.Err)
}

func (e *MalformedFileNameError) Unwrap() error { return e.Err }

// configErrorf wraps ErrInvalidConfig with a formatted detail
func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
