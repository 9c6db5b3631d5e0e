// FILE: lixenwraith/disklog/processor.go
package disklog

import (
	"os"
	"path/filepath"
)

// processRecords is the worker loop, the only goroutine writing to the folder
func (s *Sink) processRecords() {
	defer func() {
		releaseFolder(s.folderKey)
		s.state.ProcessorExited.Store(true)
	}()

	for record := range s.ch {
		if record.flushDone != nil {
			close(record.flushDone)
			continue
		}
		s.processRecord(record)
	}
}

// processRecord appends one record to the active file of today.
// Any failure drops the record; the worker keeps running.
func (s *Sink) processRecord(record logRecord) {
	defer func() {
		if r := recover(); r != nil {
			s.state.TotalWriteFailures.Add(1)
			s.reportError(fmtErrorf("recovered panic while writing record: %v", r))
		}
	}()

	if err := os.MkdirAll(s.folder, dirPermissions); err != nil {
		s.state.TotalWriteFailures.Add(1)
		s.reportError(&DirectoryError{Path: s.folder, Err: err})
		return
	}

	dateKey := DateKey(s.now())
	path, err := ResolveActiveFile(s.folder, dateKey, s.cfg.MaxFileBytes, int64(len(record.Message)))
	if err != nil {
		s.state.TotalWriteFailures.Add(1)
		s.reportError(&WriteError{Path: s.folder, Op: "resolve", Err: err})
		return
	}

	if path != s.activePath {
		// Same date, new sequence
		if prevKey, _, errName := ParseFileName(filepath.Base(s.activePath)); errName == nil && prevKey == dateKey {
			s.state.TotalRotations.Add(1)
		}
		s.activePath = path
	}

	if err := appendToFile(path, record.Message); err != nil {
		s.state.TotalWriteFailures.Add(1)
		s.reportError(err)
		return
	}
	s.state.TotalRecordsWritten.Add(1)
}

// appendToFile opens path for append, writes data, syncs and closes.
// No handle outlives the call, so the next size check always sees the file on disk.
func appendToFile(path, data string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePermissions)
	if err != nil {
		return &WriteError{Path: path, Op: "open", Err: err}
	}

	if _, err := file.WriteString(data); err != nil {
		_ = file.Close()
		return &WriteError{Path: path, Op: "write", Err: err}
	}

	if err := file.Sync(); err != nil {
		_ = file.Close()
		return &WriteError{Path: path, Op: "sync", Err: err}
	}

	if err := file.Close(); err != nil {
		return &WriteError{Path: path, Op: "close", Err: err}
	}
	return nil
}
