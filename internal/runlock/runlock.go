// Package runlock keeps two pipeline processes from working on the same
// cache directory at once.
package runlock

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileName is the lock file created inside the cache directory.
const FileName = ".coverspectrum.lock"

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("another coverspectrum run is using this cache")

// Lock is a held advisory lock.
type Lock struct {
	lock *flock.Flock
}

// Acquire takes the lock for cacheDir without blocking.
func Acquire(cacheDir string) (*Lock, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	path := filepath.Join(cacheDir, FileName)
	l := flock.New(path)

	ok, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrLocked, path)
	}

	slog.Debug("Acquired run lock", "path", path)
	return &Lock{lock: l}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.lock.Path()
}

// Release unlocks. The lock file itself is left in place.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	slog.Debug("Released run lock", "path", l.lock.Path())
	return nil
}
