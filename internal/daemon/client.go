package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/alucardeht/spfpack/pkg/protocol"
	"github.com/alucardeht/spfpack/pkg/version"
)

// Client is a minimal MCP client for a running daemon.
type Client struct {
	conn *jsonrpc2.Conn
}

func Dial(ctx context.Context, socketPath string) (*Client, error) {
	var d net.Dialer
	netConn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon at %s: %w", socketPath, err)
	}

	conn := jsonrpc2.NewConn(ctx,
		jsonrpc2.NewPlainObjectStream(netConn),
		noopHandler{},
		jsonrpc2.SetLogger(log.StdLogger(slog.LevelDebug)),
	)
	return &Client{conn: conn}, nil
}

type noopHandler struct{}

func (noopHandler) Handle(context.Context, *jsonrpc2.Conn, *jsonrpc2.Request) {}

func (c *Client) Initialize(ctx context.Context) (*protocol.InitializeResult, error) {
	params := protocol.InitializeParams{
		ProtocolVersion: version.ProtocolVersion,
		ClientInfo:      protocol.ClientInfo{Name: "spfpack", Version: version.Version},
	}

	var result protocol.InitializeResult
	if err := c.conn.Call(ctx, "initialize", params, &result); err != nil {
		return nil, err
	}
	if err := c.conn.Notify(ctx, "notifications/initialized", nil); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ListTools(ctx context.Context) (*protocol.ListToolsResult, error) {
	var result protocol.ListToolsResult
	if err := c.conn.Call(ctx, "tools/list", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) CallTool(ctx context.Context, name string, args []byte) (*protocol.CallToolResult, error) {
	params := protocol.CallToolParams{Name: name, Arguments: args}

	var result protocol.CallToolResult
	if err := c.conn.Call(ctx, "tools/call", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Ping(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var result map[string]interface{}
	return c.conn.Call(ctx, "ping", nil, &result)
}

func (c *Client) Close() error {
	return c.conn.Close()
}
