package frontmatter

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_NoFrontmatter(t *testing.T) {
	content := "# Pack notes\n\nJust prose.\n"

	doc := Parse("notes.md", content)

	assert.False(t, doc.HasFrontmatter())
	assert.Nil(t, doc.ParseError)
	assert.Equal(t, content, doc.Body)
	assert.Len(t, doc.Hash, 64)
}

func TestParse_WithFrontmatter(t *testing.T) {
	content := `---
id: DP.M.001
name: Knowledge Extraction
summary: Turning interviews into distinctions
status: draft
last_updated: 2024-03-01
tags:
  - elicitation
---
## [DP.M.001] Knowledge Extraction

Body text.
`

	doc := Parse("DP.M.001-knowledge-extraction.md", content)
	require.True(t, doc.HasFrontmatter())

	assert.Equal(t, "DP.M.001", doc.String("id"))
	assert.Equal(t, "Knowledge Extraction", doc.String("name"))
	assert.Equal(t, "draft", doc.String("status"))
	assert.Equal(t, "2024-03-01", doc.String("last_updated"))
	assert.True(t, doc.Has("tags"))
	assert.False(t, doc.Has("missing"))
	assert.Equal(t, "", doc.String("missing"))

	assert.True(t, len(doc.Body) < len(doc.Content))
	assert.Contains(t, doc.Body, "## [DP.M.001] Knowledge Extraction")
	assert.NotContains(t, doc.Body, "summary:")
}

func TestParse_CRLFAndBOM(t *testing.T) {
	content := "\uFEFF---\r\nid: DP.D.002\r\nsummary: x\r\n---\r\nBody\r\n"

	doc := Parse("a.md", content)
	require.True(t, doc.HasFrontmatter())
	assert.Equal(t, "DP.D.002", doc.String("id"))
	assert.Equal(t, "Body\n", doc.Body)
}

func TestParse_InvalidYAML(t *testing.T) {
	doc := Parse("bad.md", "---\nid: [unclosed\n---\nbody\n")

	assert.False(t, doc.HasFrontmatter())
	assert.Error(t, doc.ParseError)
}

func TestParse_NonMappingFrontmatter(t *testing.T) {
	doc := Parse("list.md", "---\n- a\n- b\n---\n")

	assert.False(t, doc.HasFrontmatter())
	assert.Error(t, doc.ParseError)
}

func TestParse_UnclosedFrontmatter(t *testing.T) {
	doc := Parse("open.md", "---\nid: DP.D.001\nno closing line\n")

	assert.False(t, doc.HasFrontmatter())
	assert.Nil(t, doc.ParseError)
}

func TestParse_FrontmatterMustOpenFile(t *testing.T) {
	doc := Parse("late.md", "intro\n---\nid: DP.D.001\n---\n")

	assert.False(t, doc.HasFrontmatter())
}

func TestStringify(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "x", "x"},
		{"int", 42, "42"},
		{"bool", true, "true"},
		{"date", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "2024-01-02"},
		{"timestamp", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "2024-01-02T03:04:05Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Stringify(tt.in))
		})
	}
}

func TestParseDate(t *testing.T) {
	d, ok, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.February, d.Month())

	_, ok, err = ParseDate("")
	assert.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = ParseDate("29/02/2024")
	assert.Error(t, err)
	assert.False(t, ok)

	_, _, err = ParseDate(12)
	assert.Error(t, err)

	d, ok, err = ParseDate(time.Date(2024, 5, 6, 13, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, d.Hour())
}

func TestDocumentDate(t *testing.T) {
	doc := Parse("a.md", "---\nid: X.D.001\nlast_updated: 2023-12-31\n---\n")

	d, ok, err := doc.Date("last_updated")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2023, d.Year())

	_, ok, err = doc.Date("created")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestParseFile_Windows1252(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "legacy.md")
	// "café" with 0xE9 as Windows-1252 é
	data := []byte("---\nid: DP.D.003\nname: caf\xe9\n---\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	doc, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "windows-1252", doc.Encoding)
	assert.Equal(t, "café", doc.String("name"))
}

func TestParseFile_UTF16(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "utf16.md")
	text := "---\nid: DP.D.004\n---\n"
	data := []byte{0xFF, 0xFE}
	for _, r := range text {
		data = append(data, byte(r), 0)
	}
	require.NoError(t, os.WriteFile(path, data, 0644))

	doc, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "utf-16le", doc.Encoding)
	assert.Equal(t, "DP.D.004", doc.String("id"))
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "nope.md"))
	assert.Error(t, err)
}

func TestDetectEncoding(t *testing.T) {
	assert.Equal(t, "utf-8", DetectEncoding(nil).Encoding)
	assert.Equal(t, "ascii", DetectEncoding([]byte("plain")).Encoding)
	assert.Equal(t, "utf-8", DetectEncoding([]byte("naïve")).Encoding)

	bom := DetectEncoding([]byte{0xEF, 0xBB, 0xBF, 'a'})
	assert.True(t, bom.HasBOM)
	assert.Equal(t, "utf-8", bom.Encoding)
}
