package tools

import (
	"errors"
	"fmt"
	"time"
)

const (
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32004
	CodeTimeout        = -32001
)

type ToolError struct {
	Code    int
	Message string
}

func (e *ToolError) Error() string {
	return e.Message
}

func NewToolNotFoundError(name string) *ToolError {
	return &ToolError{
		Code:    CodeMethodNotFound,
		Message: fmt.Sprintf("Tool not found: %s", name),
	}
}

func NewToolExecutionError(name string, err error) *ToolError {
	return &ToolError{
		Code:    CodeInternalError,
		Message: fmt.Sprintf("Error executing tool %s: %v", name, err),
	}
}

func NewInvalidParamsError(format string, args ...any) *ToolError {
	return &ToolError{
		Code:    CodeInvalidParams,
		Message: "Invalid params: " + fmt.Sprintf(format, args...),
	}
}

func NewNotFoundError(what string) *ToolError {
	return &ToolError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("Not found: %s", what),
	}
}

func NewToolTimeoutError(name string, timeout time.Duration) *ToolError {
	return &ToolError{
		Code:    CodeTimeout,
		Message: fmt.Sprintf("Tool %s timed out after %s", name, timeout),
	}
}

// AsToolError unwraps err into a ToolError, wrapping unknown errors as
// execution errors of tool name.
func AsToolError(name string, err error) *ToolError {
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	return NewToolExecutionError(name, err)
}
