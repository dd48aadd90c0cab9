package daemon

import (
	"errors"
	"fmt"
	"os"
)

var ErrLockHeld = errors.New("daemon already running (lock held)")

// LockFile guards a base directory against a second daemon instance.
type LockFile struct {
	path string
	file *os.File
}

func NewLockFile(path string) *LockFile {
	return &LockFile{path: path}
}

func (l *LockFile) Acquire() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	if err := l.platformLock(f); err != nil {
		f.Close()
		return err
	}

	l.file = f
	return nil
}

func (l *LockFile) Release() error {
	if l.file == nil {
		return nil
	}

	l.platformUnlock(l.file)
	err := l.file.Close()
	l.file = nil

	os.Remove(l.path)
	return err
}

func (l *LockFile) IsLocked() bool {
	return l.file != nil
}
