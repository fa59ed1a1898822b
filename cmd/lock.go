package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/surge-downloader/gamedash/internal/config"
)

var instanceLock *flock.Flock

// AcquireLock takes the single-instance dashboard lock. It returns false,
// without error, if another process already holds it.
func AcquireLock() (bool, error) {
	dir := config.GetRuntimeDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, err
	}

	lock := flock.New(filepath.Join(dir, "gamedash.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to lock %s: %w", lock.Path(), err)
	}
	if locked {
		instanceLock = lock
	}
	return locked, nil
}

// ReleaseLock releases the lock taken by AcquireLock.
func ReleaseLock() {
	if instanceLock == nil {
		return
	}
	_ = instanceLock.Unlock()
	instanceLock = nil
}
