package daemon

import (
	"fmt"
	"os"
	"path/filepath"
)

// Lifecycle owns the lock and PID files kept next to the socket.
type Lifecycle struct {
	lockFile *LockFile
	pidFile  *PIDFile
}

func NewLifecycle(baseDir string) *Lifecycle {
	return &Lifecycle{
		lockFile: NewLockFile(filepath.Join(baseDir, "daemon.lock")),
		pidFile:  NewPIDFile(filepath.Join(baseDir, "daemon.pid")),
	}
}

// Acquire takes the instance lock and records our PID.
func (lc *Lifecycle) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(lc.lockFile.path), 0700); err != nil {
		return fmt.Errorf("create daemon dir: %w", err)
	}

	if err := lc.lockFile.Acquire(); err != nil {
		if pid, rerr := lc.pidFile.Read(); rerr == nil && pid > 0 && processExists(pid) {
			return fmt.Errorf("%w: pid %d", err, pid)
		}
		return err
	}

	if err := lc.pidFile.Write(); err != nil {
		lc.lockFile.Release()
		return err
	}
	return nil
}

func (lc *Lifecycle) Release() {
	if err := lc.pidFile.Remove(); err != nil {
		log.Warn("failed to remove pid file", "path", lc.pidFile.Path(), "error", err)
	}
	lc.lockFile.Release()
}

func (lc *Lifecycle) PIDFile() *PIDFile {
	return lc.pidFile
}
