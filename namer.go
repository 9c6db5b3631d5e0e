// FILE: lixenwraith/disklog/namer.go
package disklog

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DateKey returns the calendar-day key of t, in t's location
func DateKey(t time.Time) string {
	return t.Format(dateKeyLayout)
}

// FileName builds "<dateKey>_<seq>.csv"
func FileName(dateKey string, seq int) string {
	return dateKey + sequenceSeparator + strconv.Itoa(seq) + fileExtension
}

// FilePath joins folder and FileName
func FilePath(folder, dateKey string, seq int) string {
	return filepath.Join(folder, FileName(dateKey, seq))
}

// ParseFileName splits a file name produced by FileName back into its date key and sequence
func ParseFileName(name string) (string, int, error) {
	base, ok := strings.CutSuffix(name, fileExtension)
	if !ok {
		return "", 0, fmtErrorf("'%s' does not have extension %s", name, fileExtension)
	}

	idx := strings.LastIndex(base, sequenceSeparator)
	if idx < 0 {
		return "", 0, fmtErrorf("'%s' has no sequence separator", name)
	}
	dateKey, seqStr := base[:idx], base[idx+1:]

	t, err := time.Parse(dateKeyLayout, dateKey)
	if err != nil || t.Format(dateKeyLayout) != dateKey {
		return "", 0, fmtErrorf("'%s' has invalid date key '%s'", name, dateKey)
	}

	seq, err := strconv.Atoi(seqStr)
	if err != nil || seq < 0 || strconv.Itoa(seq) != seqStr {
		return "", 0, fmtErrorf("'%s' has invalid sequence '%s'", name, seqStr)
	}

	return dateKey, seq, nil
}

// ParseDateKey parses the date key a file name starts with, as midnight in loc
func ParseDateKey(name string, loc *time.Location) (time.Time, error) {
	if len(name) < len(dateKeyLayout) {
		return time.Time{}, fmtErrorf("'%s' is too short to carry a date key", name)
	}
	t, err := time.ParseInLocation(dateKeyLayout, name[:len(dateKeyLayout)], loc)
	if err != nil {
		return time.Time{}, fmtErrorf("'%s' does not start with a date key: %w", name, err)
	}
	return t, nil
}

// ResolveActiveFile returns the path the next record of incoming bytes for dateKey must be appended to.
// The highest existing sequence for dateKey is reused unless it is already at maxFileBytes or the
// record would push it past the limit; then the next sequence is returned. A missing folder
// resolves to sequence 0. An empty file always accepts the record, however large. A directory
// holding the highest sequence name is never a target.
func ResolveActiveFile(folder, dateKey string, maxFileBytes, incoming int64) (string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		if os.IsNotExist(err) {
			return FilePath(folder, dateKey, 0), nil
		}
		return "", fmtErrorf("failed to read log folder '%s': %w", folder, err)
	}

	highest := -1
	// Directories carrying a log file name still occupy their sequence
	for _, entry := range entries {
		key, seq, err := ParseFileName(entry.Name())
		if err != nil || key != dateKey {
			continue
		}
		if seq > highest {
			highest = seq
		}
	}

	if highest < 0 {
		return FilePath(folder, dateKey, 0), nil
	}

	current := FilePath(folder, dateKey, highest)
	info, err := os.Stat(current)
	if err != nil {
		if os.IsNotExist(err) {
			// Removed since the listing, the append recreates it
			return current, nil
		}
		return "", fmtErrorf("failed to stat log file '%s': %w", current, err)
	}

	if info.IsDir() {
		return FilePath(folder, dateKey, highest+1), nil
	}

	size := info.Size()
	if size >= maxFileBytes || (size > 0 && size+incoming > maxFileBytes) {
		return FilePath(folder, dateKey, highest+1), nil
	}
	return current, nil
}
