package tools

import (
	"context"
	"encoding/json"
	"time"
)

// StatusFunc reports extra health fields, such as the pack being served.
type StatusFunc func(ctx context.Context) map[string]interface{}

type HealthTool struct {
	startTime time.Time
	version   string
	status    StatusFunc
}

func NewHealthTool(version string, status StatusFunc) *HealthTool {
	return &HealthTool{
		startTime: time.Now(),
		version:   version,
		status:    status,
	}
}

func (t *HealthTool) Name() string {
	return "health"
}

func (t *HealthTool) Description() string {
	return "Check server health and the state of the served pack"
}

func (t *HealthTool) Title() string {
	return "Health"
}

func (t *HealthTool) Annotations() map[string]bool {
	return ReadOnlyAnnotations()
}

func (t *HealthTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {},
		"required": []
	}`)
}

func (t *HealthTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	result := map[string]interface{}{
		"status":  "healthy",
		"version": t.version,
		"uptime":  int64(time.Since(t.startTime).Seconds()),
	}
	if t.status != nil {
		for k, v := range t.status(ctx) {
			result[k] = v
		}
	}
	return result, nil
}
