package io

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFileName is the name of the lock file created inside a locked directory.
const LockFileName = ".lock"

// FileLock is an exclusive, advisory lock on a directory held for the lifetime of a
// process. A second process trying to acquire it fails instead of waiting.
type FileLock struct {
	lockFile *flock.Flock
	path     string
}

// NewFileLock creates a lock for the directory dir. Nothing is acquired until Lock.
func NewFileLock(dir string) *FileLock {
	lockPath := filepath.Join(dir, LockFileName)
	return &FileLock{
		lockFile: flock.New(lockPath),
		path:     lockPath,
	}
}

// Lock acquires the lock, creating the directory if needed. It returns an error if
// another process holds it.
func (fl *FileLock) Lock() error {
	err := os.MkdirAll(filepath.Dir(fl.path), 0o700)
	if err != nil {
		return fmt.Errorf("could not create directory for lock file %s: %w", fl.path, err)
	}

	locked, err := fl.lockFile.TryLock()
	if err != nil {
		return fmt.Errorf("could not acquire file lock at %s: %w", fl.path, err)
	}
	if !locked {
		return fmt.Errorf("cannot acquire exclusive lock on %s: directory is used by another process", fl.path)
	}
	return nil
}

func (fl *FileLock) Unlock() error {
	err := fl.lockFile.Unlock()
	if err != nil {
		return fmt.Errorf("could not release file lock at %s: %w", fl.path, err)
	}
	return nil
}

func (fl *FileLock) Path() string {
	return fl.path
}
