package daemon

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

type SocketListener struct {
	path     string
	listener net.Listener
}

func NewSocketListener(socketPath string) *SocketListener {
	return &SocketListener{path: socketPath}
}

// Start replaces any stale socket file and restricts the new one to the
// owner.
func (sl *SocketListener) Start() error {
	if err := os.MkdirAll(filepath.Dir(sl.path), 0700); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}

	if err := os.Remove(sl.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	listener, err := net.Listen("unix", sl.path)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", sl.path, err)
	}
	sl.listener = listener

	if err := os.Chmod(sl.path, 0700); err != nil {
		listener.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}
	return nil
}

func (sl *SocketListener) Accept() (net.Conn, error) {
	if sl.listener == nil {
		return nil, errors.New("listener not started")
	}
	return sl.listener.Accept()
}

// Close stops listening and removes the socket file.
func (sl *SocketListener) Close() error {
	if sl.listener == nil {
		return nil
	}
	err := sl.listener.Close()
	os.Remove(sl.path)
	return err
}

func (sl *SocketListener) Path() string {
	return sl.path
}

// IsSocketResponsive reports whether something accepts connections on path.
func IsSocketResponsive(path string) bool {
	conn, err := net.DialTimeout("unix", path, 500*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
