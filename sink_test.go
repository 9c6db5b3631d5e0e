package disklog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestSink creates a sink in a temp directory with small limits
func createTestSink(tb testing.TB, opts ...Option) (*Sink, string) {
	tb.Helper()
	tmpDir := tb.TempDir()

	cfg := DefaultConfig()
	cfg.Directory = tmpDir
	cfg.BufferSize = 100

	sink, err := New(cfg, opts...)
	require.NoError(tb, err)

	return sink, filepath.Join(tmpDir, cfg.FolderName)
}

func readFile(t testing.TB, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// TestSinkWritesTodayFile verifies the folder is created and the first record lands in sequence 0
func TestSinkWritesTodayFile(t *testing.T) {
	sink, folder := createTestSink(t)
	defer sink.Close()

	assert.Equal(t, folder, sink.Folder())

	sink.Log(LevelInfo, "boot", "2024-01-01T00:00:00Z,INFO,boot,started\n")
	require.NoError(t, sink.Flush(time.Second))

	path := FilePath(folder, DateKey(time.Now()), 0)
	assert.Equal(t, "2024-01-01T00:00:00Z,INFO,boot,started\n", readFile(t, path))

	stats := sink.Stats()
	assert.Equal(t, uint64(1), stats.RecordsWritten)
	assert.Zero(t, stats.RecordsDropped)
}

// TestSinkCreatesNestedDirectory verifies missing parents are created on the first write
func TestSinkCreatesNestedDirectory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Directory = filepath.Join(t.TempDir(), "a", "b")

	sink, err := New(cfg)
	require.NoError(t, err)
	defer sink.Close()

	sink.Log(LevelInfo, "", "x\n")
	require.NoError(t, sink.Flush(time.Second))

	info, err := os.Stat(filepath.Join(cfg.Directory, "logger"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

// TestSinkRollover verifies the active file is superseded once the next record would not fit
func TestSinkRollover(t *testing.T) {
	now := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.Local)
	tmpDir := t.TempDir()

	sink, err := NewBuilder().
		Directory(tmpDir).
		MaxFileBytes(100).
		Clock(fixedClock(now)).
		Build()
	require.NoError(t, err)

	record := strings.Repeat("r", 39) + "\n"
	for i := 0; i < 3; i++ {
		sink.Log(LevelInfo, "", record)
	}
	require.NoError(t, sink.Close())

	folder := filepath.Join(tmpDir, "logger")
	assert.Equal(t, record+record, readFile(t, FilePath(folder, "2024-03-10", 0)))
	assert.Equal(t, record, readFile(t, FilePath(folder, "2024-03-10", 1)))
	assert.False(t, fileExists(t, FilePath(folder, "2024-03-10", 2)))

	stats := sink.Stats()
	assert.Equal(t, uint64(3), stats.RecordsWritten)
	assert.Equal(t, uint64(1), stats.Rotations)
}

// TestSinkOversizedRecord verifies a record larger than the limit is written whole to a fresh file
func TestSinkOversizedRecord(t *testing.T) {
	now := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.Local)
	tmpDir := t.TempDir()

	sink, err := NewBuilder().Directory(tmpDir).MaxFileBytes(10).Clock(fixedClock(now)).Build()
	require.NoError(t, err)

	big := strings.Repeat("b", 50)
	sink.Log(LevelInfo, "", big)
	sink.Log(LevelInfo, "", "small")
	require.NoError(t, sink.Close())

	folder := filepath.Join(tmpDir, "logger")
	assert.Equal(t, big, readFile(t, FilePath(folder, "2024-03-10", 0)))
	assert.Equal(t, "small", readFile(t, FilePath(folder, "2024-03-10", 1)))
}

// TestSinkResumesExistingSequence verifies a restarted sink appends to the highest sequence of today
func TestSinkResumesExistingSequence(t *testing.T) {
	now := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.Local)
	tmpDir := t.TempDir()
	folder := filepath.Join(tmpDir, "logger")
	writeSizedFile(t, folder, "2024-03-10_0.csv", 100)
	writeSizedFile(t, folder, "2024-03-10_1.csv", 5)

	sink, err := NewBuilder().Directory(tmpDir).MaxFileBytes(100).Clock(fixedClock(now)).Build()
	require.NoError(t, err)

	sink.Log(LevelInfo, "", "abc")
	require.NoError(t, sink.Close())

	assert.Equal(t, "xxxxxabc", readFile(t, FilePath(folder, "2024-03-10", 1)))
	assert.Zero(t, sink.Stats().Rotations)
}

// TestSinkDateChange verifies a new calendar day starts over at sequence 0
func TestSinkDateChange(t *testing.T) {
	var current atomic.Pointer[time.Time]
	day1 := time.Date(2024, time.March, 10, 23, 59, 0, 0, time.Local)
	day2 := day1.Add(2 * time.Minute)
	current.Store(&day1)

	tmpDir := t.TempDir()
	sink, err := NewBuilder().
		Directory(tmpDir).
		Clock(func() time.Time { return *current.Load() }).
		Build()
	require.NoError(t, err)

	sink.Log(LevelInfo, "", "before midnight\n")
	require.NoError(t, sink.Flush(time.Second))
	current.Store(&day2)
	sink.Log(LevelInfo, "", "after midnight\n")
	require.NoError(t, sink.Close())

	folder := filepath.Join(tmpDir, "logger")
	assert.Equal(t, "before midnight\n", readFile(t, FilePath(folder, "2024-03-10", 0)))
	assert.Equal(t, "after midnight\n", readFile(t, FilePath(folder, "2024-03-11", 0)))
	assert.Zero(t, sink.Stats().Rotations)
}

// TestSinkOrdering verifies records from one producer are persisted in call order
func TestSinkOrdering(t *testing.T) {
	sink, folder := createTestSink(t)
	defer sink.Close()

	var expected strings.Builder
	for i := 0; i < 50; i++ {
		line := fmt.Sprintf("line-%03d\n", i)
		expected.WriteString(line)
		sink.Log(LevelDebug, "order", line)
	}
	require.NoError(t, sink.Flush(time.Second))

	assert.Equal(t, expected.String(), readFile(t, FilePath(folder, DateKey(time.Now()), 0)))
}

// TestSinkPrint verifies arguments are joined into a raw message
func TestSinkPrint(t *testing.T) {
	sink, folder := createTestSink(t)
	defer sink.Close()

	sink.Print(LevelWarn, "print", "disk", 42, true, 1.5)
	sink.Log(LevelWarn, "print", "\n")
	require.NoError(t, sink.Flush(time.Second))

	assert.Equal(t, "disk 42 true 1.5\n", readFile(t, FilePath(folder, DateKey(time.Now()), 0)))
}

// TestSinkConcurrentProducers verifies no record is lost or torn with many producers
func TestSinkConcurrentProducers(t *testing.T) {
	tmpDir := t.TempDir()
	sink, err := NewBuilder().Directory(tmpDir).BufferSize(2000).Build()
	require.NoError(t, err)

	const producers, perProducer = 10, 100
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				sink.Log(LevelInfo, "p", fmt.Sprintf("producer=%d,seq=%d\n", p, i))
			}
		}(p)
	}
	wg.Wait()
	require.NoError(t, sink.Close())

	content := readFile(t, FilePath(filepath.Join(tmpDir, "logger"), DateKey(time.Now()), 0))
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	assert.Len(t, lines, producers*perProducer)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "producer="), "torn line: %q", line)
	}

	stats := sink.Stats()
	assert.Equal(t, uint64(producers*perProducer), stats.RecordsWritten)
	assert.Zero(t, stats.RecordsDropped)
}

// TestSinkDirectoryFailure verifies an unusable directory is reported while Log stays silent
func TestSinkDirectoryFailure(t *testing.T) {
	blocker := writeSizedFile(t, t.TempDir(), "blocker", 1)
	collector := &errorCollector{}

	sink, err := NewBuilder().Directory(blocker).ErrorHandler(collector.handle).Build()
	require.NoError(t, err)

	sink.Log(LevelError, "", "lost\n")
	require.NoError(t, sink.Flush(time.Second))
	require.NoError(t, sink.Close())

	var dirErr *DirectoryError
	found := false
	for _, err := range collector.all() {
		if errors.As(err, &dirErr) {
			found = true
		}
	}
	assert.True(t, found, "expected a DirectoryError, got %v", collector.all())
	assert.Equal(t, uint64(1), sink.Stats().WriteFailures)
	assert.Zero(t, sink.Stats().RecordsWritten)
}

// TestSinkErrorHandlerPanic verifies a panicking handler does not stop the worker
func TestSinkErrorHandlerPanic(t *testing.T) {
	blocker := writeSizedFile(t, t.TempDir(), "blocker", 1)
	var calls atomic.Int64

	sink, err := NewBuilder().
		Directory(blocker).
		ErrorHandler(func(error) {
			calls.Add(1)
			panic("handler failure")
		}).
		Build()
	require.NoError(t, err)

	sink.Log(LevelError, "", "one\n")
	sink.Log(LevelError, "", "two\n")
	require.NoError(t, sink.Flush(time.Second))
	require.NoError(t, sink.Close())

	assert.GreaterOrEqual(t, calls.Load(), int64(2))
	assert.Equal(t, uint64(2), sink.Stats().WriteFailures)
}

// TestSinkQueueFull verifies records are dropped instead of blocking when the worker falls behind
func TestSinkQueueFull(t *testing.T) {
	blocker := writeSizedFile(t, t.TempDir(), "blocker", 1)
	release := make(chan struct{})
	var queueFull atomic.Int64

	sink, err := NewBuilder().
		Directory(blocker).
		BufferSize(1).
		ErrorHandler(func(err error) {
			var dirErr *DirectoryError
			if errors.As(err, &dirErr) {
				// Stall the worker on its first record
				<-release
				return
			}
			if strings.Contains(err.Error(), "queue full") {
				queueFull.Add(1)
			}
		}).
		Build()
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		sink.Log(LevelInfo, "", "flood\n")
	}

	close(release)
	require.NoError(t, sink.Close())

	stats := sink.Stats()
	assert.GreaterOrEqual(t, stats.RecordsDropped, uint64(8))
	assert.Equal(t, uint64(10), stats.RecordsDropped+stats.WriteFailures)
	assert.GreaterOrEqual(t, queueFull.Load(), int64(1))
}

// TestSinkClose verifies behavior of every operation once the sink is closed
func TestSinkClose(t *testing.T) {
	sink, _ := createTestSink(t)

	require.NoError(t, sink.Close())
	assert.True(t, sink.state.ProcessorExited.Load())
	assert.False(t, sink.state.Started.Load())

	assert.NotPanics(t, func() {
		sink.Log(LevelInfo, "", "after close\n")
		sink.Print(LevelInfo, "", "after", "close")
	})
	assert.Equal(t, uint64(2), sink.Stats().RecordsDropped)

	assert.ErrorIs(t, sink.Flush(time.Second), ErrSinkClosed)

	_, err := sink.Sweep()
	assert.ErrorIs(t, err, ErrSinkClosed)

	// Idempotent
	assert.NoError(t, sink.Close())
}

// TestSinkCloseDrains verifies records queued before Close are persisted
func TestSinkCloseDrains(t *testing.T) {
	sink, folder := createTestSink(t)

	for i := 0; i < 20; i++ {
		sink.Log(LevelInfo, "", "queued\n")
	}
	require.NoError(t, sink.Close(5*time.Second))

	assert.Equal(t, strings.Repeat("queued\n", 20), readFile(t, FilePath(folder, DateKey(time.Now()), 0)))
}

// TestSinkFolderInUse verifies one folder is owned by one open sink at a time
func TestSinkFolderInUse(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Directory = t.TempDir()

	first, err := New(cfg)
	require.NoError(t, err)

	// Same folder spelled differently
	other := cfg.Clone()
	other.Directory = cfg.Directory + string(filepath.Separator) + "."
	_, err = New(other)
	assert.ErrorIs(t, err, ErrFolderInUse)

	// A sibling folder is fine
	sibling := cfg.Clone()
	sibling.FolderName = "other"
	second, err := New(sibling)
	require.NoError(t, err)
	require.NoError(t, second.Close())

	require.NoError(t, first.Close())

	third, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, third.Close())
}

// TestSinkInvalidConfig verifies New rejects invalid input without claiming the folder
func TestSinkInvalidConfig(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg := DefaultConfig()
	cfg.Directory = t.TempDir()
	cfg.MaxHistoryDays = 0
	_, err = New(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg.MaxHistoryDays = 60
	sink, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, sink.Close())
}

// TestSinkStartupSweep verifies expired files are removed when the sink starts
func TestSinkStartupSweep(t *testing.T) {
	tmpDir := t.TempDir()
	folder := filepath.Join(tmpDir, "logger")
	expired := writeSizedFile(t, folder, "2020-01-01_0.csv", 10)
	kept := writeSizedFile(t, folder, "2021-01-01_0.csv", 10)

	now := time.Date(2021, time.January, 2, 8, 0, 0, 0, time.Local)
	sink, err := NewBuilder().Directory(tmpDir).Clock(fixedClock(now)).Build()
	require.NoError(t, err)

	// Close waits for the startup sweep
	require.NoError(t, sink.Close())

	assert.False(t, fileExists(t, expired))
	assert.True(t, fileExists(t, kept))

	stats := sink.Stats()
	assert.Equal(t, uint64(1), stats.Sweeps)
	assert.Equal(t, uint64(1), stats.Deletions)
}

// TestSinkSweep verifies on-demand sweeps and their counters
func TestSinkSweep(t *testing.T) {
	now := time.Date(2021, time.January, 2, 8, 0, 0, 0, time.Local)
	tmpDir := t.TempDir()
	sink, err := NewBuilder().Directory(tmpDir).Clock(fixedClock(now)).Build()
	require.NoError(t, err)
	defer sink.Close()

	folder := filepath.Join(tmpDir, "logger")
	expired := writeSizedFile(t, folder, "2020-01-01_0.csv", 10)
	writeSizedFile(t, folder, "stray.tmp", 10)

	result, err := sink.Sweep()
	require.NoError(t, err)
	assert.Contains(t, result.Malformed, "stray.tmp")

	// The startup sweep may have raced us to the expired file
	assert.False(t, fileExists(t, expired))
	stats := sink.Stats()
	assert.Equal(t, uint64(1), stats.Deletions)
	assert.GreaterOrEqual(t, stats.Sweeps, uint64(1))
	assert.GreaterOrEqual(t, stats.MalformedNames, uint64(1))
}

// TestSinkSweepSchedule verifies the cron schedule triggers periodic sweeps
func TestSinkSweepSchedule(t *testing.T) {
	tmpDir := t.TempDir()
	sink, err := NewBuilder().Directory(tmpDir).SweepSchedule("@every 1s").Build()
	require.NoError(t, err)
	defer sink.Close()

	expired := writeSizedFile(t, filepath.Join(tmpDir, "logger"), "2020-01-01_0.csv", 10)

	assert.Eventually(t, func() bool {
		_, err := os.Stat(expired)
		return os.IsNotExist(err) && sink.Stats().Sweeps >= 2
	}, 5*time.Second, 50*time.Millisecond)
}

// TestSinkConfig verifies the sink holds its own copy of the configuration
func TestSinkConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Directory = t.TempDir()

	sink, err := New(cfg)
	require.NoError(t, err)
	defer sink.Close()

	cfg.MaxFileBytes = 1
	got := sink.Config()
	assert.Equal(t, int64(500*1024), got.MaxFileBytes)

	got.FolderName = "changed"
	assert.Equal(t, "logger", sink.Config().FolderName)
}

// TestSinkFlushTimeout verifies Flush gives up when the worker cannot reach the barrier
func TestSinkFlushTimeout(t *testing.T) {
	blocker := writeSizedFile(t, t.TempDir(), "blocker", 1)
	release := make(chan struct{})

	sink, err := NewBuilder().
		Directory(blocker).
		ErrorHandler(func(err error) {
			var dirErr *DirectoryError
			if errors.As(err, &dirErr) {
				<-release
			}
		}).
		Build()
	require.NoError(t, err)

	sink.Log(LevelInfo, "", "stall\n")
	err = sink.Flush(50 * time.Millisecond)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")

	close(release)
	require.NoError(t, sink.Close())
}

// TestSinkCloseDuringBlockedFlush verifies a Flush stuck on a full queue does not stall producers once Close starts
func TestSinkCloseDuringBlockedFlush(t *testing.T) {
	blocker := writeSizedFile(t, t.TempDir(), "blocker", 1)
	stalled := make(chan struct{}, 1)
	release := make(chan struct{})

	sink, err := NewBuilder().
		Directory(blocker).
		BufferSize(1).
		ErrorHandler(func(err error) {
			var dirErr *DirectoryError
			if errors.As(err, &dirErr) {
				select {
				case stalled <- struct{}{}:
				default:
				}
				<-release
			}
		}).
		Build()
	require.NoError(t, err)

	// Worker holds the first record, the second fills the queue
	sink.Log(LevelInfo, "", "first\n")
	select {
	case <-stalled:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not pick up the first record")
	}
	sink.Log(LevelInfo, "", "second\n")

	flushErr := make(chan error, 1)
	go func() { flushErr <- sink.Flush(2 * time.Second) }()
	time.Sleep(50 * time.Millisecond)

	closeErr := make(chan error, 1)
	go func() { closeErr <- sink.Close(3 * time.Second) }()
	time.Sleep(50 * time.Millisecond)

	start := time.Now()
	sink.Log(LevelInfo, "", "late\n")
	assert.Less(t, time.Since(start), 200*time.Millisecond, "Log blocked behind a pending flush")

	select {
	case err := <-flushErr:
		assert.ErrorIs(t, err, ErrSinkClosed)
	case <-time.After(time.Second):
		t.Fatal("Flush did not return after Close started")
	}

	close(release)
	require.NoError(t, <-closeErr)
	assert.GreaterOrEqual(t, sink.Stats().RecordsDropped, uint64(1))
}

// TestSinkWriteFailureRecovers verifies a failed open is reported and later records still persist
func TestSinkWriteFailureRecovers(t *testing.T) {
	var current atomic.Pointer[time.Time]
	day1 := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.Local)
	day2 := day1.AddDate(0, 0, 1)
	current.Store(&day1)

	tmpDir := t.TempDir()
	folder := filepath.Join(tmpDir, "logger")
	require.NoError(t, os.MkdirAll(folder, dirPermissions))

	// Dangling link whose target directory is missing, so opening it for append fails
	brokenPath := FilePath(folder, "2024-03-10", 0)
	require.NoError(t, os.Symlink(filepath.Join(tmpDir, "missing", "target.csv"), brokenPath))

	collector := &errorCollector{}
	sink, err := NewBuilder().
		Directory(tmpDir).
		Clock(func() time.Time { return *current.Load() }).
		ErrorHandler(collector.handle).
		Build()
	require.NoError(t, err)

	sink.Log(LevelError, "", "lost\n")
	require.NoError(t, sink.Flush(time.Second))

	stats := sink.Stats()
	assert.Equal(t, uint64(1), stats.WriteFailures)
	assert.Zero(t, stats.RecordsWritten)

	var writeErr *WriteError
	found := false
	for _, err := range collector.all() {
		if errors.As(err, &writeErr) {
			found = true
			assert.Equal(t, "open", writeErr.Op)
			assert.Equal(t, brokenPath, writeErr.Path)
		}
	}
	assert.True(t, found, "expected a WriteError, got %v", collector.all())

	current.Store(&day2)
	sink.Log(LevelInfo, "", "kept\n")
	require.NoError(t, sink.Close())

	assert.Equal(t, "kept\n", readFile(t, FilePath(folder, "2024-03-11", 0)))
	assert.Equal(t, uint64(1), sink.Stats().RecordsWritten)
	assert.Equal(t, uint64(1), sink.Stats().WriteFailures)
}

// TestSinkSkipsDirectoryNamedLikeLogFile verifies a directory holding today's name is stepped over
func TestSinkSkipsDirectoryNamedLikeLogFile(t *testing.T) {
	now := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.Local)
	tmpDir := t.TempDir()
	folder := filepath.Join(tmpDir, "logger")
	require.NoError(t, os.MkdirAll(FilePath(folder, "2024-03-10", 0), dirPermissions))

	collector := &errorCollector{}
	sink, err := NewBuilder().
		Directory(tmpDir).
		Clock(fixedClock(now)).
		ErrorHandler(collector.handle).
		Build()
	require.NoError(t, err)

	sink.Log(LevelInfo, "", "a\n")
	sink.Log(LevelInfo, "", "b\n")
	require.NoError(t, sink.Close())

	assert.Equal(t, "a\nb\n", readFile(t, FilePath(folder, "2024-03-10", 1)))
	assert.Equal(t, uint64(2), sink.Stats().RecordsWritten)
	assert.Empty(t, collector.all())
}
