// Package lock keeps two savesyncd instances from reconciling the same
// backup directory at once.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another instance holds the lock
var ErrLocked = errors.New("another savesyncd instance is already running")

// Lock is an exclusive advisory file lock
type Lock struct {
	flock *flock.Flock
}

// New creates an unlocked lock backed by path
func New(path string) *Lock {
	return &Lock{flock: flock.New(path)}
}

// Acquire creates and takes the lock at path without blocking
func Acquire(path string) (*Lock, error) {
	l := New(path)
	if err := l.TryLock(); err != nil {
		return nil, err
	}
	return l, nil
}

// TryLock takes the lock, creating its directory if needed
func (l *Lock) TryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.flock.Path()), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	locked, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock %s: %w", l.flock.Path(), err)
	}
	if !locked {
		return ErrLocked
	}
	return nil
}

// Path returns the lock file path
func (l *Lock) Path() string {
	return l.flock.Path()
}

// Unlock releases the lock and removes the lock file. It is a no-op if this
// process does not hold the lock.
func (l *Lock) Unlock() error {
	if !l.flock.Locked() {
		return nil
	}

	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}

	if err := os.Remove(l.flock.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}
