// Package disklog is an asynchronous, disk-backed log sink.
//
// Records handed to Sink.Log are queued and appended by a single worker goroutine to
// <directory>/<folder_name>/<YYYY-MM-DD>_<sequence>.csv. When the active file for today
// would exceed max_file_bytes, the next sequence becomes active. A retention sweep runs at
// construction, on demand and optionally on a cron schedule: files dated before
// today - max_history_days/2 go when the folder exceeds max_folder_bytes, and files dated
// before today - max_history_days always go.
//
// Messages are written verbatim; callers supply ready CSV lines including the newline.
//
// A folder may be owned by only one open Sink per process. Sinks in separate processes
// sharing a folder race on rotation and are not supported.
package disklog
