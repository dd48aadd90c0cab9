// Package daemon serves the MCP server to local clients over a unix socket.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"sync"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/alucardeht/spfpack/internal/logger"
	"github.com/alucardeht/spfpack/internal/mcp"
)

var log = logger.ForComponent("daemon")

type Daemon struct {
	socketPath string
	server     *mcp.Server
	listener   *SocketListener
	lifecycle  *Lifecycle

	connMu      sync.Mutex
	connections map[*jsonrpc2.Conn]struct{}
	wg          sync.WaitGroup

	startTime time.Time
	ready     chan struct{}
}

func New(socketPath string, server *mcp.Server) *Daemon {
	return &Daemon{
		socketPath:  socketPath,
		server:      server,
		listener:    NewSocketListener(socketPath),
		lifecycle:   NewLifecycle(filepath.Dir(socketPath)),
		connections: make(map[*jsonrpc2.Conn]struct{}),
		ready:       make(chan struct{}),
	}
}

// Run listens until ctx is cancelled, then closes every client connection
// and removes the socket, lock and PID files.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.lifecycle.Acquire(); err != nil {
		return err
	}
	defer d.lifecycle.Release()

	if err := d.listener.Start(); err != nil {
		return err
	}

	d.startTime = time.Now()
	log.Info("daemon listening", "socket", d.socketPath, "tools", len(d.server.Registry().Names()))
	close(d.ready)

	acceptErr := make(chan error, 1)
	go func() { acceptErr <- d.acceptConnections(ctx) }()

	var err error
	select {
	case <-ctx.Done():
	case err = <-acceptErr:
	}

	d.shutdown()
	if err != nil {
		return fmt.Errorf("accept: %w", err)
	}
	return nil
}

// Ready is closed once the socket accepts connections.
func (d *Daemon) Ready() <-chan struct{} {
	return d.ready
}

func (d *Daemon) acceptConnections(ctx context.Context) error {
	for {
		netConn, err := d.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return err
		}

		conn := d.server.NewConn(ctx, netConn)
		d.track(conn)
		log.Debug("client connected", "clients", d.ClientCount())

		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			<-conn.DisconnectNotify()
			d.untrack(conn)
			log.Debug("client disconnected", "clients", d.ClientCount())
		}()
	}
}

func (d *Daemon) track(conn *jsonrpc2.Conn) {
	d.connMu.Lock()
	d.connections[conn] = struct{}{}
	d.connMu.Unlock()
}

func (d *Daemon) untrack(conn *jsonrpc2.Conn) {
	d.connMu.Lock()
	delete(d.connections, conn)
	d.connMu.Unlock()
}

func (d *Daemon) shutdown() {
	d.listener.Close()

	d.connMu.Lock()
	conns := make([]*jsonrpc2.Conn, 0, len(d.connections))
	for conn := range d.connections {
		conns = append(conns, conn)
	}
	d.connMu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
	d.wg.Wait()

	log.Info("daemon stopped", "uptime", d.Uptime().Round(time.Second))
}

func (d *Daemon) ClientCount() int {
	d.connMu.Lock()
	defer d.connMu.Unlock()
	return len(d.connections)
}

func (d *Daemon) SocketPath() string {
	return d.socketPath
}

func (d *Daemon) Uptime() time.Duration {
	if d.startTime.IsZero() {
		return 0
	}
	return time.Since(d.startTime)
}
