// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package state

import (
	"fmt"
	"os"
	"path/filepath"
)

const lockFile = "kbsync.lock"

// RunLock is an exclusive lock over the state directory. Runs must not
// overlap: a second process attempting to acquire the lock fails fast
// instead of waiting.
type RunLock struct {
	path string
}

// AcquireLock takes the run lock for stateDir. It fails when another run
// already holds it.
func AcquireLock(stateDir string) (*RunLock, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	path := filepath.Join(stateDir, lockFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("another run holds the lock (%s); remove it if no sync is running", path)
		}
		return nil, fmt.Errorf("acquiring run lock: %w", err)
	}

	fmt.Fprintf(f, "%d\n", os.Getpid())
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("acquiring run lock: %w", err)
	}
	return &RunLock{path: path}, nil
}

// Release drops the lock. Safe to call once per acquired lock.
func (l *RunLock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("releasing run lock: %w", err)
	}
	return nil
}
