//go:build unix

package daemon

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

func (l *LockFile) platformLock(f *os.File) error {
	err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return ErrLockHeld
		}
		return fmt.Errorf("acquire lock: %w", err)
	}
	return nil
}

func (l *LockFile) platformUnlock(f *os.File) {
	syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}
