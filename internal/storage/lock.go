package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/starford/tagtracker/internal/checksum"
)

// RunLock is a cross-process lock that serializes report runs over one
// search root. The lock file lives in the temp directory so that it never
// shows up inside the tree being indexed.
type RunLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewRunLock creates the lock for the given absolute root.
func NewRunLock(root string) *RunLock {
	name := "tagtracker-" + checksum.Short([]byte(root), 16) + ".lock"
	lockPath := filepath.Join(os.TempDir(), name)
	return &RunLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// Path returns the lock file location.
func (l *RunLock) Path() string {
	return l.path
}

// Lock acquires the lock, blocking until it is available.
func (l *RunLock) Lock() error {
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("storage: acquire run lock: %w", err)
	}
	l.locked = true
	return nil
}

// TryLock attempts to acquire the lock without blocking.
func (l *RunLock) TryLock() (bool, error) {
	ok, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("storage: try run lock: %w", err)
	}
	if ok {
		l.locked = true
	}
	return ok, nil
}

// Unlock releases the lock. Calling it on an unlocked RunLock is a no-op.
func (l *RunLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("storage: release run lock: %w", err)
	}
	return nil
}
