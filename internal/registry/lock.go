package registry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockName is the lock file created in the data directory.
const LockName = ".registry.lock"

// dirLock is a cross-process lock on the data directory. One registry owns
// a data directory at a time.
type dirLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

func newDirLock(dir string) *dirLock {
	path := filepath.Join(dir, LockName)
	return &dirLock{path: path, flock: flock.New(path)}
}

// tryLock attempts to take the lock without blocking. It reports false if
// another process holds it.
func (l *dirLock) tryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// unlock is safe to call when not locked.
func (l *dirLock) unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
