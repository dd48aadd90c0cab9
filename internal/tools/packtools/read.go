package packtools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/alucardeht/spfpack/internal/frontmatter"
	"github.com/alucardeht/spfpack/internal/index"
	"github.com/alucardeht/spfpack/internal/service"
	"github.com/alucardeht/spfpack/internal/tools"
)

const maxReadLines = 2000

type ReadRequest struct {
	ID                 string `json:"id"`
	Offset             int    `json:"offset,omitempty"`
	Limit              int    `json:"limit,omitempty"`
	IncludeFrontmatter bool   `json:"include_frontmatter,omitempty"`
}

type ReadResponse struct {
	ID         string `json:"id"`
	Path       string `json:"path"`
	Content    string `json:"content"`
	Encoding   string `json:"encoding"`
	Lines      int    `json:"lines"`
	TotalLines int    `json:"total_lines"`
	Truncated  bool   `json:"truncated,omitempty"`
}

// ReadTool returns the Markdown of an entity document, decoded to UTF-8.
type ReadTool struct {
	svc *service.Service
}

func (t *ReadTool) Name() string {
	return "pack_read"
}

func (t *ReadTool) Description() string {
	return "Read the Markdown of an entity document by ID, optionally a line range"
}

func (t *ReadTool) Title() string                { return "Read Entity" }
func (t *ReadTool) Annotations() map[string]bool { return tools.ReadOnlyAnnotations() }

func (t *ReadTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"id": {
				"type": "string",
				"description": "Entity ID, e.g. DP.M.001"
			},
			"offset": {
				"type": "integer",
				"description": "First line to return, 0-based (default: 0)",
				"minimum": 0
			},
			"limit": {
				"type": "integer",
				"description": "Maximum lines to return (default and max: 2000)",
				"minimum": 0
			},
			"include_frontmatter": {
				"type": "boolean",
				"description": "Return the whole file instead of the body after the frontmatter"
			}
		},
		"required": ["id"]
	}`)
}

func (t *ReadTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var req ReadRequest
	if err := decode(input, &req); err != nil {
		return nil, err
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		return nil, tools.NewInvalidParamsError("id is required")
	}
	if req.Offset < 0 || req.Limit < 0 {
		return nil, tools.NewInvalidParamsError("offset and limit must be >= 0")
	}

	e, err := t.svc.Entity(ctx, req.ID)
	if errors.Is(err, index.ErrNotFound) {
		return nil, tools.NewNotFoundError(req.ID)
	}
	if err != nil {
		return nil, err
	}

	doc, err := frontmatter.ParseFile(e.Path)
	if err != nil {
		return nil, err
	}

	text := doc.Body
	if req.IncludeFrontmatter {
		text = doc.Content
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	if text == "" {
		lines = nil
	}

	limit := req.Limit
	if limit == 0 || limit > maxReadLines {
		limit = maxReadLines
	}
	start := min(req.Offset, len(lines))
	end := min(start+limit, len(lines))

	return ReadResponse{
		ID:         e.ID,
		Path:       e.Path,
		Content:    strings.Join(lines[start:end], "\n"),
		Encoding:   doc.Encoding,
		Lines:      end - start,
		TotalLines: len(lines),
		Truncated:  end < len(lines),
	}, nil
}
