// FILE: lixenwraith/disklog/registry.go
package disklog

import (
	"path/filepath"
	"sync"
)

// folderRegistry tracks folders owned by open sinks in this process.
// Sinks in other processes are not seen; sharing a folder across processes is unsupported.
var folderRegistry = struct {
	mu      sync.Mutex
	folders map[string]struct{}
}{folders: make(map[string]struct{})}

// acquireFolder claims folder for one sink and returns the key to release it with
func acquireFolder(folder string) (string, error) {
	key, err := filepath.Abs(folder)
	if err != nil {
		return "", fmtErrorf("failed to resolve log folder '%s': %w", folder, err)
	}
	key = filepath.Clean(key)

	folderRegistry.mu.Lock()
	defer folderRegistry.mu.Unlock()

	if _, taken := folderRegistry.folders[key]; taken {
		return "", ErrFolderInUse
	}
	folderRegistry.folders[key] = struct{}{}
	return key, nil
}

// releaseFolder gives up a claim made by acquireFolder
func releaseFolder(key string) {
	folderRegistry.mu.Lock()
	delete(folderRegistry.folders, key)
	folderRegistry.mu.Unlock()
}
