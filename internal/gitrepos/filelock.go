package gitrepos

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// LockFilename is the run lock kept in the destination folder
const LockFilename = ".heline.lock"

// ErrLockTimeout indicates another run kept the destination locked past the timeout
var ErrLockTimeout = errors.New("lock acquisition timed out")

// FileLock is an exclusive flock(2) lock on a file. It guards a destination
// folder against concurrent indexing runs and is released by the kernel when
// the process exits.
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock creates a lock backed by the file at path.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// TryLock attempts to take the lock without blocking. It reports false when
// another holder owns it.
func (l *FileLock) TryLock() (bool, error) {
	if err := l.open(); err != nil {
		return false, err
	}

	err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err == nil {
		return true, nil
	}

	l.closeFile()
	if errors.Is(err, syscall.EWOULDBLOCK) {
		return false, nil
	}
	return false, fmt.Errorf("flock failed: %w", err)
}

// Acquire takes the lock, polling until it is free, the timeout expires or
// ctx is canceled.
func (l *FileLock) Acquire(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	wait := 10 * time.Millisecond

	for {
		ok, err := l.TryLock()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			return ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
			wait = min(wait*2, 500*time.Millisecond)
		}
	}
}

// Unlock releases the lock. Unlocking an unlocked FileLock is a no-op.
func (l *FileLock) Unlock() error {
	if l.file == nil {
		return nil
	}

	err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil

	if err != nil {
		return fmt.Errorf("flock unlock failed: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("close failed: %w", closeErr)
	}
	return nil
}

// IsLocked returns true if the lock is currently held by this instance.
func (l *FileLock) IsLocked() bool {
	return l.file != nil
}

// Path returns the path to the lock file.
func (l *FileLock) Path() string {
	return l.path
}

func (l *FileLock) open() error {
	if l.file != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}
	l.file = file
	return nil
}

func (l *FileLock) closeFile() {
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
}
