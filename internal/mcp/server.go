package mcp

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/alucardeht/spfpack/internal/tools"
	"github.com/alucardeht/spfpack/pkg/version"
)

type Options struct {
	Name        string
	Version     string
	ToolTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		Name:        "spfpack",
		Version:     version.Version,
		ToolTimeout: 2 * time.Minute,
	}
}

// Server speaks MCP over newline-delimited JSON-RPC 2.0 objects.
type Server struct {
	registry *tools.Registry
	opts     Options
}

func NewServer(registry *tools.Registry, opts Options) *Server {
	if opts.Name == "" {
		opts.Name = "spfpack"
	}
	if opts.Version == "" {
		opts.Version = version.Version
	}
	return &Server{
		registry: registry,
		opts:     opts,
	}
}

func (s *Server) Registry() *tools.Registry {
	return s.registry
}

// NewConn starts serving rwc and returns the connection. Each connection
// gets its own Handler.
func (s *Server) NewConn(ctx context.Context, rwc io.ReadWriteCloser) *jsonrpc2.Conn {
	handler := NewHandler(s.registry, s.opts)
	return jsonrpc2.NewConn(ctx,
		jsonrpc2.NewPlainObjectStream(rwc),
		jsonrpc2.HandlerWithError(handler.Handle).SuppressErrClosed(),
		jsonrpc2.SetLogger(log.StdLogger(slog.LevelWarn)),
	)
}

// Serve blocks until the peer disconnects or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	conn := s.NewConn(ctx, rwc)

	select {
	case <-conn.DisconnectNotify():
		return nil
	case <-ctx.Done():
		conn.Close()
		return ctx.Err()
	}
}

// ServeStdio serves a single client on in/out, typically os.Stdin and
// os.Stdout.
func (s *Server) ServeStdio(ctx context.Context, in io.ReadCloser, out io.Writer) error {
	log.Info("serving MCP on stdio")
	err := s.Serve(ctx, &stdioConn{in: in, out: out})
	if err == context.Canceled {
		return nil
	}
	return err
}

type stdioConn struct {
	in  io.ReadCloser
	out io.Writer
}

func (c *stdioConn) Read(p []byte) (int, error)  { return c.in.Read(p) }
func (c *stdioConn) Write(p []byte) (int, error) { return c.out.Write(p) }
func (c *stdioConn) Close() error                { return c.in.Close() }
