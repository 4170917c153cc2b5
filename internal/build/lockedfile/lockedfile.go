// Package lockedfile provides an exclusive lock backed by a file, shared
// between processes.
package lockedfile

import (
	"fmt"
	"os"
)

// A Mutex provides mutual exclusion within and across processes by locking
// a well-known file.
type Mutex struct {
	Path string
}

// MutexAt returns a new Mutex with Path set to the given non-empty path.
func MutexAt(path string) *Mutex {
	if path == "" {
		panic("lockedfile.MutexAt: path must be non-empty")
	}
	return &Mutex{Path: path}
}

// Lock attempts to lock the Mutex. It blocks until the lock is held and
// returns a function that releases it.
func (mu *Mutex) Lock() (unlock func(), err error) {
	f, err := os.OpenFile(mu.Path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, err
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock %s: %w", mu.Path, err)
	}
	return func() {
		unlockFile(f)
		f.Close()
	}, nil
}
