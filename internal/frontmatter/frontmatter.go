// Package frontmatter splits pack Markdown documents into their YAML
// frontmatter block and body.
package frontmatter

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DateLayout is the layout of created/last_updated frontmatter values.
const DateLayout = "2006-01-02"

// The block must open the file; the closing delimiter is the first line
// that starts with ---.
var frontmatterPattern = regexp.MustCompile(`(?s)^---\s*\n(.*?)\n---[^\n]*(?:\n|$)`)

type Document struct {
	Path        string
	Content     string
	Body        string
	Frontmatter map[string]any
	Encoding    string
	Hash        string
	// ParseError is set when a frontmatter block exists but is not a YAML
	// mapping. The document is still returned, without frontmatter.
	ParseError error
}

func ParseFile(path string) (*Document, error) {
	content, detected, err := ReadFileAsUTF8(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	doc := Parse(path, content)
	doc.Encoding = detected.Encoding
	return doc, nil
}

func Parse(path, content string) *Document {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	normalized = strings.TrimPrefix(normalized, "\uFEFF")

	sum := sha256.Sum256([]byte(content))
	doc := &Document{
		Path:     path,
		Content:  normalized,
		Body:     normalized,
		Encoding: "utf-8",
		Hash:     hex.EncodeToString(sum[:]),
	}

	loc := frontmatterPattern.FindStringSubmatchIndex(normalized)
	if loc == nil {
		return doc
	}

	block := normalized[loc[2]:loc[3]]
	var fm map[string]any
	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		doc.ParseError = fmt.Errorf("parse frontmatter: %w", err)
		return doc
	}

	doc.Frontmatter = fm
	doc.Body = normalized[loc[1]:]
	return doc
}

func (d *Document) HasFrontmatter() bool {
	return d.Frontmatter != nil
}

func (d *Document) Has(key string) bool {
	if d.Frontmatter == nil {
		return false
	}
	_, ok := d.Frontmatter[key]
	return ok
}

// String returns the frontmatter value for key as text, or "" when absent.
func (d *Document) String(key string) string {
	if d.Frontmatter == nil {
		return ""
	}
	return Stringify(d.Frontmatter[key])
}

func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format(DateLayout)
		}
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}

// Date reads a YYYY-MM-DD value. ok is false when the key is absent or
// empty; err is set when a value is present but not a date.
func (d *Document) Date(key string) (date time.Time, ok bool, err error) {
	if !d.Has(key) {
		return time.Time{}, false, nil
	}
	return ParseDate(d.Frontmatter[key])
}

func ParseDate(v any) (time.Time, bool, error) {
	switch val := v.(type) {
	case nil:
		return time.Time{}, false, nil
	case time.Time:
		return time.Date(val.Year(), val.Month(), val.Day(), 0, 0, 0, 0, time.UTC), true, nil
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return time.Time{}, false, nil
		}
		t, err := time.Parse(DateLayout, s)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("invalid date %q: want %s", s, DateLayout)
		}
		return t, true, nil
	default:
		return time.Time{}, false, fmt.Errorf("invalid date %v: want %s", val, DateLayout)
	}
}
