package packtools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/alucardeht/spfpack/internal/index"
	"github.com/alucardeht/spfpack/internal/lint"
	"github.com/alucardeht/spfpack/internal/mapgen"
	"github.com/alucardeht/spfpack/internal/pack"
	"github.com/alucardeht/spfpack/internal/service"
	"github.com/alucardeht/spfpack/internal/tools"
)

func GetTools(svc *service.Service) []tools.Tool {
	return []tools.Tool{
		&EntitiesTool{svc: svc},
		&EntityTool{svc: svc},
		&ReadTool{svc: svc},
		&MapTool{svc: svc},
		&EntityIndexTool{svc: svc},
		&LintTool{svc: svc},
		&SearchTool{svc: svc},
		&RefreshTool{svc: svc},
	}
}

// Status feeds the health tool.
func Status(svc *service.Service) tools.StatusFunc {
	return func(ctx context.Context) map[string]interface{} {
		status := map[string]interface{}{
			"pack_dir": svc.Dir(),
		}
		if snap := svc.Snapshot(); snap != nil {
			status["domain"] = snap.Pack.Domain
			status["entities"] = len(snap.Pack.Entities)
			status["refreshed_at"] = snap.RefreshedAt
		}
		if stats, err := svc.Stats(ctx); err == nil && stats != nil {
			status["index"] = stats
		}
		return status
	}
}

func decode(input json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(input, v); err != nil {
		return tools.NewInvalidParamsError("%v", err)
	}
	return nil
}

type EntitySummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	KindLabel   string `json:"kind_label"`
	Summary     string `json:"summary,omitempty"`
	Status      string `json:"status,omitempty"`
	LastUpdated string `json:"last_updated,omitempty"`
	Path        string `json:"path"`
}

func summarize(e *pack.Entity) EntitySummary {
	s := EntitySummary{
		ID:        e.ID,
		Name:      e.Name,
		Kind:      e.Kind,
		KindLabel: pack.KindLabel(e.Kind),
		Summary:   e.Summary,
		Status:    e.Status,
		Path:      e.Path,
	}
	if e.LastUpdated != nil {
		s.LastUpdated = e.LastUpdated.Format("2006-01-02")
	}
	return s
}

type EntitiesTool struct {
	svc *service.Service
}

func (t *EntitiesTool) Name() string {
	return "pack_entities"
}

func (t *EntitiesTool) Description() string {
	return "List pack entities sorted by ID, optionally filtered by kind code (D, R, M, WP, FM, SOTA, MAP, CHR, OA or a domain-specific kind)"
}

func (t *EntitiesTool) Title() string                { return "List Entities" }
func (t *EntitiesTool) Annotations() map[string]bool { return tools.ReadOnlyAnnotations() }

func (t *EntitiesTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"kind": {
				"type": "string",
				"description": "Kind code to filter by"
			}
		},
		"required": []
	}`)
}

func (t *EntitiesTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var req struct {
		Kind string `json:"kind"`
	}
	if err := decode(input, &req); err != nil {
		return nil, err
	}

	entities, err := t.svc.Entities(ctx, strings.ToUpper(strings.TrimSpace(req.Kind)))
	if err != nil {
		return nil, err
	}

	out := make([]EntitySummary, 0, len(entities))
	for _, e := range entities {
		out = append(out, summarize(e))
	}
	return map[string]interface{}{
		"count":    len(out),
		"entities": out,
	}, nil
}

type EntityTool struct {
	svc *service.Service
}

func (t *EntityTool) Name() string {
	return "pack_entity"
}

func (t *EntityTool) Description() string {
	return "Get one entity by ID with all of its frontmatter fields"
}

func (t *EntityTool) Title() string                { return "Get Entity" }
func (t *EntityTool) Annotations() map[string]bool { return tools.ReadOnlyAnnotations() }

func (t *EntityTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"id": {
				"type": "string",
				"description": "Entity ID, e.g. DP.M.001"
			}
		},
		"required": ["id"]
	}`)
}

func (t *EntityTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var req struct {
		ID string `json:"id"`
	}
	if err := decode(input, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ID) == "" {
		return nil, tools.NewInvalidParamsError("id is required")
	}

	e, err := t.svc.Entity(ctx, strings.TrimSpace(req.ID))
	if errors.Is(err, index.ErrNotFound) {
		return nil, tools.NewNotFoundError(req.ID)
	}
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"entity":      summarize(e),
		"name_source": e.NameSource,
		"fields":      jsonSafe(e.Fields),
	}, nil
}

// jsonSafe converts YAML-decoded values into values encoding/json accepts.
func jsonSafe(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = jsonSafe(item)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = jsonSafe(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = jsonSafe(item)
		}
		return out
	default:
		return val
	}
}

type MapTool struct {
	svc *service.Service
}

func (t *MapTool) Name() string {
	return "pack_map"
}

func (t *MapTool) Description() string {
	return "Generate the pack navigation MAP from frontmatter; with write=true it is saved to the map directory when it changed"
}

func (t *MapTool) Title() string                { return "Generate MAP" }
func (t *MapTool) Annotations() map[string]bool { return tools.SafeWriteAnnotations() }

func (t *MapTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"write": {
				"type": "boolean",
				"description": "Write the MAP file"
			},
			"refresh": {
				"type": "boolean",
				"description": "Rescan the pack first"
			}
		},
		"required": []
	}`)
}

func (t *MapTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var req struct {
		Write   bool `json:"write"`
		Refresh bool `json:"refresh"`
	}
	if err := decode(input, &req); err != nil {
		return nil, err
	}

	if req.Refresh {
		if _, err := t.svc.Refresh(ctx); err != nil {
			return nil, err
		}
	}

	var result *service.MapResult
	var err error
	if req.Write {
		result, err = t.svc.WriteMap(ctx)
	} else {
		result, err = t.svc.GenerateMap(ctx)
	}
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"domain":  result.Domain,
		"path":    result.Path,
		"written": result.Written,
		"content": result.Content,
	}, nil
}

type EntityIndexTool struct {
	svc *service.Service
}

func (t *EntityIndexTool) Name() string {
	return "pack_entity_index"
}

func (t *EntityIndexTool) Description() string {
	return "Render the manifest Entity Index table; with update_manifest=true it is spliced into the pack manifest"
}

func (t *EntityIndexTool) Title() string                { return "Entity Index" }
func (t *EntityIndexTool) Annotations() map[string]bool { return tools.SafeWriteAnnotations() }

func (t *EntityIndexTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"update_manifest": {
				"type": "boolean",
				"description": "Replace the Entity Index section of the manifest"
			}
		},
		"required": []
	}`)
}

func (t *EntityIndexTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var req struct {
		UpdateManifest bool `json:"update_manifest"`
	}
	if err := decode(input, &req); err != nil {
		return nil, err
	}

	idx, err := t.svc.EntityIndex(ctx)
	if err != nil {
		return nil, err
	}

	result := map[string]interface{}{
		"entity_index": idx,
	}
	if req.UpdateManifest {
		changed, err := t.svc.UpdateManifest(ctx)
		if err != nil {
			return nil, err
		}
		result["manifest"] = t.svc.ManifestPath()
		result["manifest_changed"] = changed
	}
	return result, nil
}

type LintTool struct {
	svc *service.Service
}

func (t *LintTool) Name() string {
	return "pack_lint"
}

func (t *LintTool) Description() string {
	return "Lint the pack: missing summaries, stale entities, duplicate or malformed IDs, invalid dates and F-G-R fields"
}

func (t *LintTool) Title() string                { return "Lint Pack" }
func (t *LintTool) Annotations() map[string]bool { return tools.ReadOnlyAnnotations() }

func (t *LintTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"severity": {
				"type": "string",
				"enum": ["error", "warning", "info"],
				"description": "Only report findings at least this severe"
			}
		},
		"required": []
	}`)
}

func (t *LintTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var req struct {
		Severity string `json:"severity"`
	}
	if err := decode(input, &req); err != nil {
		return nil, err
	}

	threshold := lint.SeverityInfo
	switch req.Severity {
	case "", "info":
	case "warning", "error":
		threshold = lint.Severity(req.Severity)
	default:
		return nil, tools.NewInvalidParamsError("unknown severity %q", req.Severity)
	}

	snap, err := t.svc.Current(ctx)
	if err != nil {
		return nil, err
	}

	findings := make([]lint.Finding, 0, len(snap.Lint.Findings))
	for _, f := range snap.Lint.Findings {
		if f.Severity.Rank() <= threshold.Rank() {
			findings = append(findings, f)
		}
	}

	return map[string]interface{}{
		"summary":  snap.Lint.Summary(),
		"errors":   snap.Lint.Errors,
		"warnings": snap.Lint.Warnings,
		"infos":    snap.Lint.Infos,
		"findings": findings,
	}, nil
}

type SearchTool struct {
	svc *service.Service
}

func (t *SearchTool) Name() string {
	return "pack_search"
}

func (t *SearchTool) Description() string {
	return "Full-text search over entity IDs, names and summaries; a trailing * matches prefixes"
}

func (t *SearchTool) Title() string                { return "Search Entities" }
func (t *SearchTool) Annotations() map[string]bool { return tools.ReadOnlyAnnotations() }

func (t *SearchTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {
				"type": "string",
				"description": "Words to search for"
			},
			"limit": {
				"type": "integer",
				"description": "Maximum results (default 20)"
			}
		},
		"required": ["query"]
	}`)
}

func (t *SearchTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var req struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := decode(input, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, tools.NewInvalidParamsError("query is required")
	}

	results, err := t.svc.Search(ctx, req.Query, req.Limit)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"query":   req.Query,
		"count":   len(results),
		"results": results,
	}, nil
}

type RefreshTool struct {
	svc *service.Service
}

func (t *RefreshTool) Name() string {
	return "pack_refresh"
}

func (t *RefreshTool) Description() string {
	return "Rescan the pack directory, re-run lint and rebuild the entity index"
}

func (t *RefreshTool) Title() string                { return "Refresh Pack" }
func (t *RefreshTool) Annotations() map[string]bool { return tools.SafeWriteAnnotations() }

func (t *RefreshTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {},
		"required": []
	}`)
}

func (t *RefreshTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	snap, err := t.svc.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	byKind := mapgen.GroupByKind(snap.Pack.Entities)
	counts := make(map[string]int, len(byKind))
	for kind, group := range byKind {
		counts[kind] = len(group)
	}

	return map[string]interface{}{
		"domain":      snap.Pack.Domain,
		"entities":    len(snap.Pack.Entities),
		"by_kind":     counts,
		"skipped":     len(snap.Pack.Skipped) + len(snap.Pack.Invalid),
		"scan_id":     snap.ScanID,
		"lint":        snap.Lint.Summary(),
		"duration_ms": snap.Duration.Milliseconds(),
	}, nil
}
