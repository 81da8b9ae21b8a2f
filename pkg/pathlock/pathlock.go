// Package pathlock hands out one RWMutex per file path so that every
// store opened on the same file in this process serialises its writes.
package pathlock

import (
	"path/filepath"
	"sync"
)

var (
	registryMu sync.Mutex
	locks      = map[string]*sync.RWMutex{}
)

// For returns the lock shared by every caller using path. Relative paths
// are resolved first so "a.json" and "./a.json" map to the same lock.
func For(path string) *sync.RWMutex {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if mu, ok := locks[path]; ok {
		return mu
	}
	mu := &sync.RWMutex{}
	locks[path] = mu
	return mu
}
