package pack

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/alucardeht/spfpack/internal/frontmatter"
)

const UnknownKind = "UNKNOWN"

var kindLabels = map[string]string{
	"D":    "Distinctions",
	"R":    "Roles",
	"M":    "Methods",
	"WP":   "Work Products",
	"FM":   "Failure Modes",
	"SOTA": "SoTA Annotations",
	"MAP":  "Maps",
	"CHR":  "Characteristics",
	"OA":   "Objects of Attention",
}

// CoreKinds is the order in which base kinds get their own MAP section.
var CoreKinds = []string{"D", "R", "M", "WP", "FM", "SOTA", "MAP", "CHR", "OA"}

func IsBaseKind(kind string) bool {
	_, ok := kindLabels[kind]
	return ok
}

// KindLabel returns the plural label of a kind code, or the code itself.
func KindLabel(kind string) string {
	if label, ok := kindLabels[kind]; ok {
		return label
	}
	return kind
}

// ClassifyKind extracts the kind code from an entity ID: DP.M.001 -> M.
func ClassifyKind(id string) string {
	parts := strings.Split(id, ".")
	if len(parts) >= 3 {
		return parts[1]
	}
	return UnknownKind
}

// DomainOf returns the first segment of an entity ID: DP.M.001 -> DP.
func DomainOf(id string) string {
	parts := strings.Split(id, ".")
	if len(parts) >= 2 {
		return parts[0]
	}
	return ""
}

type NameSource string

const (
	NameFromFrontmatter NameSource = "frontmatter"
	NameFromHeading     NameSource = "heading"
	NameFromFilename    NameSource = "filename"
	NameMissing         NameSource = "missing"
)

type Entity struct {
	ID          string         `json:"id"`
	Name        string         `json:"name,omitempty"`
	NameSource  NameSource     `json:"name_source"`
	Kind        string         `json:"kind"`
	Summary     string         `json:"summary,omitempty"`
	HasSummary  bool           `json:"has_summary"`
	Status      string         `json:"status,omitempty"`
	LastUpdated *time.Time     `json:"last_updated,omitempty"`
	Path        string         `json:"path"`
	Hash        string         `json:"hash"`
	Fields      map[string]any `json:"fields,omitempty"`
}

// FileName is the base name of the entity's source file.
func (e *Entity) FileName() string {
	return filepath.Base(e.Path)
}

var (
	headingPattern  = regexp.MustCompile(`(?m)^##\s+\[.*?\]\s+(.+)$`)
	idPrefixPattern = regexp.MustCompile(`^[A-Z]+\.[A-Z]+\.\d+-?`)
	titleCaser      = cases.Title(language.Und)
)

// EntityFromDocument returns nil for documents that do not declare an id.
func EntityFromDocument(doc *frontmatter.Document) *Entity {
	if doc == nil || !doc.HasFrontmatter() {
		return nil
	}

	id := strings.TrimSpace(doc.String("id"))
	if id == "" {
		return nil
	}

	e := &Entity{
		ID:         id,
		Kind:       ClassifyKind(id),
		Summary:    doc.String("summary"),
		HasSummary: doc.Has("summary"),
		Status:     doc.String("status"),
		Path:       doc.Path,
		Hash:       doc.Hash,
		Fields:     doc.Frontmatter,
	}

	if lastUpdated, ok, err := doc.Date("last_updated"); err == nil && ok {
		e.LastUpdated = &lastUpdated
	}

	e.Name, e.NameSource = deriveName(doc)
	return e
}

func deriveName(doc *frontmatter.Document) (string, NameSource) {
	if doc.Has("name") {
		return doc.String("name"), NameFromFrontmatter
	}

	if m := headingPattern.FindStringSubmatch(doc.Content); m != nil {
		return strings.TrimSpace(m[1]), NameFromHeading
	}

	stem := strings.TrimSuffix(filepath.Base(doc.Path), filepath.Ext(doc.Path))
	slug := idPrefixPattern.ReplaceAllString(stem, "")
	if slug == "" {
		return "", NameMissing
	}

	return titleCaser.String(strings.ReplaceAll(slug, "-", " ")), NameFromFilename
}
