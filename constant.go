// FILE: lixenwraith/disklog/constant.go
package disklog

import (
	"time"
)

// Log level constants
const (
	LevelDebug int64 = -4
	LevelInfo  int64 = 0
	LevelWarn  int64 = 4
	LevelError int64 = 8
)

// File naming
const (
	// Layout of the date key used as file name prefix and retention unit
	dateKeyLayout = "2006-01-02"
	// Extension of every file written by the sink
	fileExtension = ".csv"
	// Separator between date key and sequence
	sequenceSeparator = "_"
)

// Storage
const (
	dirPermissions  = 0755
	filePermissions = 0644
)

// Timers
const (
	// Minimum wait time used throughout the package
	minWaitTime = 10 * time.Millisecond
	// Default time Close waits for the worker to drain when no timeout is given
	defaultCloseTimeout = 2 * time.Second
)
