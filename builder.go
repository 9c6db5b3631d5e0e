// FILE: lixenwraith/disklog/builder.go
package disklog

import (
	"time"
)

// Builder provides a fluent API for building sink configurations.
// It wraps a Config instance and provides chainable methods for setting values.
type Builder struct {
	cfg  *Config
	opts []Option
	err  error // Accumulate errors for deferred handling
}

// NewBuilder creates a new configuration builder with default values.
func NewBuilder() *Builder {
	return &Builder{
		cfg: DefaultConfig(),
	}
}

// Build validates the configuration and starts a new Sink.
func (b *Builder) Build() (*Sink, error) {
	if b.err != nil {
		return nil, b.err
	}
	return New(b.cfg, b.opts...)
}

// Config returns a copy of the configuration built so far.
func (b *Builder) Config() (*Config, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}
	return b.cfg.Clone(), nil
}

// Directory sets the root log directory.
func (b *Builder) Directory(dir string) *Builder {
	b.cfg.Directory = dir
	return b
}

// FolderName sets the folder created under the root directory.
func (b *Builder) FolderName(name string) *Builder {
	b.cfg.FolderName = name
	return b
}

// MaxFileBytes sets the size at which the active file is superseded.
func (b *Builder) MaxFileBytes(size int64) *Builder {
	b.cfg.MaxFileBytes = size
	return b
}

// MaxFileKB sets the per-file limit in KiB. Convenience.
func (b *Builder) MaxFileKB(size int64) *Builder {
	b.cfg.MaxFileBytes = size * 1024
	return b
}

// MaxFolderBytes sets the folder size that triggers the size sweep.
func (b *Builder) MaxFolderBytes(size int64) *Builder {
	b.cfg.MaxFolderBytes = size
	return b
}

// MaxHistoryDays sets the retention in days.
func (b *Builder) MaxHistoryDays(days int64) *Builder {
	b.cfg.MaxHistoryDays = days
	return b
}

// BufferSize sets the channel buffer size.
func (b *Builder) BufferSize(size int64) *Builder {
	b.cfg.BufferSize = size
	return b
}

// SweepSchedule sets a cron spec for periodic sweeps.
func (b *Builder) SweepSchedule(spec string) *Builder {
	b.cfg.SweepSchedule = spec
	return b
}

// InternalErrorsToStderr enables writing internal failures to stderr.
func (b *Builder) InternalErrorsToStderr(enable bool) *Builder {
	b.cfg.InternalErrorsToStderr = enable
	return b
}

// Overrides applies "key=value" strings on top of the current values.
func (b *Builder) Overrides(overrides ...string) *Builder {
	if b.err != nil {
		return b
	}
	cfg, err := ApplyOverrides(b.cfg, overrides...)
	if err != nil {
		b.err = err
		return b
	}
	b.cfg = cfg
	return b
}

// ErrorHandler routes internal failures to fn.
func (b *Builder) ErrorHandler(fn func(error)) *Builder {
	b.opts = append(b.opts, WithErrorHandler(fn))
	return b
}

// Clock sets the clock used for date keys and retention.
func (b *Builder) Clock(now func() time.Time) *Builder {
	b.opts = append(b.opts, WithClock(now))
	return b
}

// Example usage:
// sink, err := disklog.NewBuilder().
//
//	Directory("/var/log/app").
//	FolderName("audit").
//	MaxFileKB(500).
//	MaxHistoryDays(30).
//	SweepSchedule("@daily").
//	Build()
//
// if err == nil {
//
//	 defer sink.Close()
//	 sink.Log(disklog.LevelInfo, "boot", "2024-01-01T00:00:00Z,INFO,boot,started\n")
//
// }
