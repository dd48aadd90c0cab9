package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/alucardeht/spfpack/internal/logger"
	"github.com/alucardeht/spfpack/internal/tools"
	"github.com/alucardeht/spfpack/pkg/protocol"
	"github.com/alucardeht/spfpack/pkg/version"
)

var log = logger.ForComponent("mcp")

// Handler serves one client connection.
type Handler struct {
	registry    *tools.Registry
	toolTimeout time.Duration
	serverInfo  protocol.ServerInfo

	mu          sync.Mutex
	initialized bool
	clientInfo  protocol.ClientInfo
}

func NewHandler(registry *tools.Registry, opts Options) *Handler {
	return &Handler{
		registry:    registry,
		toolTimeout: opts.ToolTimeout,
		serverInfo:  protocol.ServerInfo{Name: opts.Name, Version: opts.Version},
	}
}

// Handle dispatches one JSON-RPC request. Panics become internal errors.
func (h *Handler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("handler panic recovered",
				"method", req.Method,
				"panic", r,
				"stack", string(debug.Stack()))
			result = nil
			err = &jsonrpc2.Error{
				Code:    jsonrpc2.CodeInternalError,
				Message: fmt.Sprintf("internal error: %v", r),
			}
		}
	}()

	log.Debug("request", "method", req.Method, "notification", req.Notif)

	switch req.Method {
	case "initialize":
		return h.handleInitialize(req)
	case "notifications/initialized":
		h.mu.Lock()
		h.initialized = true
		h.mu.Unlock()
		return nil, nil
	case "notifications/cancelled":
		return nil, nil
	case "ping":
		return map[string]interface{}{}, nil
	case "tools/list":
		return h.handleListTools(), nil
	case "tools/call":
		return h.handleCallTool(ctx, req)
	default:
		return nil, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeMethodNotFound,
			Message: fmt.Sprintf("Method not found: %s", req.Method),
		}
	}
}

func (h *Handler) Initialized() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.initialized
}

func (h *Handler) ClientInfo() protocol.ClientInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clientInfo
}

func invalidParams(format string, args ...interface{}) *jsonrpc2.Error {
	return &jsonrpc2.Error{
		Code:    jsonrpc2.CodeInvalidParams,
		Message: fmt.Sprintf(format, args...),
	}
}

func decodeParams(req *jsonrpc2.Request, v interface{}) error {
	if req.Params == nil {
		return nil
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return invalidParams("invalid params for %s: %v", req.Method, err)
	}
	return nil
}

func (h *Handler) handleInitialize(req *jsonrpc2.Request) (interface{}, error) {
	var params protocol.InitializeParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.clientInfo = params.ClientInfo
	h.mu.Unlock()

	negotiated := negotiateProtocolVersion(params.ProtocolVersion)
	log.Info("client connected",
		"client", params.ClientInfo.Name,
		"client_version", params.ClientInfo.Version,
		"protocol", negotiated)

	return &protocol.InitializeResult{
		ProtocolVersion: negotiated,
		ServerInfo:      h.serverInfo,
		Instructions:    "Tools for navigating and maintaining an SPF pack: list and read entities, search, lint and regenerate the MAP.",
	}, nil
}

func negotiateProtocolVersion(clientVersion string) string {
	for _, v := range version.SupportedProtocolVersions {
		if clientVersion == v {
			return v
		}
	}

	return version.ProtocolVersion
}

func (h *Handler) handleListTools() *protocol.ListToolsResult {
	list := h.registry.List()
	result := &protocol.ListToolsResult{Tools: make([]protocol.Tool, 0, len(list))}

	for _, t := range list {
		desc := protocol.Tool{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.Schema(),
		}
		if annotated, ok := t.(tools.AnnotatedTool); ok {
			desc.Title = annotated.Title()
			desc.Annotations = annotated.Annotations()
		}
		result.Tools = append(result.Tools, desc)
	}

	return result
}

// handleCallTool reports tool failures inside the result with isError so
// the model can see them; only a malformed call is a protocol error.
func (h *Handler) handleCallTool(ctx context.Context, req *jsonrpc2.Request) (interface{}, error) {
	var params protocol.CallToolParams
	if req.Params == nil {
		return nil, invalidParams("tools/call requires params")
	}
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	if params.Name == "" {
		return nil, invalidParams("tool name is required")
	}
	if _, ok := h.registry.Get(params.Name); !ok {
		return nil, invalidParams("Unknown tool: %s", params.Name)
	}

	start := time.Now()
	result, err := h.registry.ExecuteWithTimeout(ctx, params.Name, params.Arguments, h.toolTimeout)
	if err != nil {
		te := tools.AsToolError(params.Name, err)
		log.Warn("tool failed", "tool", params.Name, "code", te.Code, "error", te.Message)
		return protocol.ErrorResult(te.Message), nil
	}

	log.Debug("tool executed", "tool", params.Name, "duration", time.Since(start))

	if text, ok := result.(string); ok {
		return protocol.TextResult(text), nil
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return protocol.ErrorResult(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}

	return protocol.TextResult(string(resultJSON)), nil
}
