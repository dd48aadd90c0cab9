package mcp

import (
	"encoding/json"

	"github.com/sourcegraph/jsonrpc2"
)

func newRequest(method string, params *json.RawMessage) *jsonrpc2.Request {
	return &jsonrpc2.Request{Method: method, Params: params}
}
