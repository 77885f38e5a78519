package checkpoint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFileName is created inside the docs root while a run holds it.
const LockFileName = ".codesummary.lock"

// ErrLocked is returned when another process holds the docs root.
var ErrLocked = errors.New("docs directory is locked by another analysis run")

// RunLock is an exclusive lock on a docs root.
type RunLock struct {
	lock *flock.Flock
}

// Lock acquires the docs root lock without blocking.
func Lock(docsRoot string) (*RunLock, error) {
	if err := os.MkdirAll(docsRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create docs root: %w", err)
	}
	lock := flock.New(filepath.Join(docsRoot, LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return &RunLock{lock: lock}, nil
}

// Path returns the lock file location.
func (l *RunLock) Path() string { return l.lock.Path() }

// Unlock releases the lock.
func (l *RunLock) Unlock() error {
	if l == nil {
		return nil
	}
	return l.lock.Unlock()
}
