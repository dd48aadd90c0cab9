package mapgen

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alucardeht/spfpack/internal/frontmatter"
	"github.com/alucardeht/spfpack/internal/pack"
)

func entity(t *testing.T, path, content string) *pack.Entity {
	t.Helper()
	e := pack.EntityFromDocument(frontmatter.Parse(path, content))
	require.NotNil(t, e, path)
	return e
}

func fixture(t *testing.T) []*pack.Entity {
	return []*pack.Entity{
		entity(t, "/p/01-distinctions/DP.D.002.md",
			"---\nid: DP.D.002\nname: B\nsummary: b\nstatus: stable\nlast_updated: 2024-01-01\n---\n"),
		entity(t, "/p/01-distinctions/DP.D.001.md",
			"---\nid: DP.D.001\nname: \"A | B\"\n---\n"),
		entity(t, "/p/03-methods/DP.M.001-knowledge-extraction.md",
			"---\nid: DP.M.001\nsummary: m\nstatus: draft\nlast_updated: 2025-05-01\n---\n"),
		entity(t, "/p/x/DP.BIO.001.md",
			"---\nid: DP.BIO.001\nname: Cell\nsummary: c\n---\n"),
		entity(t, "/p/x/DP.ZZ.md",
			"---\nid: DP.ZZ\nname: Loose\nsummary: u\n---\n"),
	}
}

var testOpts = Options{
	Today:          time.Date(2025, 6, 1, 15, 30, 0, 0, time.UTC),
	StaleAfterDays: 90,
}

func TestGenerateMap(t *testing.T) {
	want := strings.Join([]string{
		"---",
		"id: DP.MAP.001",
		"name: Pack Navigation Map",
		"scope: full-pack",
		"created: 2025-06-01",
		"last_updated: 2025-06-01",
		"generated: true",
		"---",
		"",
		"# [DP.MAP.001] Pack Navigation Map",
		"",
		"> Auto-generated from frontmatter on 2025-06-01. Do not edit manually.",
		"",
		"---",
		"",
		"## Statistics",
		"",
		"| Kind | Count |",
		"|------|-------|",
		"| BIO (BIO) | 1 |",
		"| Distinctions (D) | 2 |",
		"| Methods (M) | 1 |",
		"| UNKNOWN (UNKNOWN) | 1 |",
		"| **Total** | **5** |",
		"",
		"## Distinctions",
		"",
		"| ID | Name | Summary | Status |",
		"|----|------|---------|--------|",
		`| DP.D.001 | A \| B | — | — |`,
		"| DP.D.002 | B | b | stable |",
		"",
		"## Methods",
		"",
		"| ID | Name | Summary | Status |",
		"|----|------|---------|--------|",
		"| DP.M.001 | Knowledge Extraction | m | draft |",
		"",
		"## Domain-Specific Entities",
		"",
		"### BIO",
		"",
		"| ID | Name | Summary | Status |",
		"|----|------|---------|--------|",
		"| DP.BIO.001 | Cell | c | — |",
		"",
		"### UNKNOWN",
		"",
		"| ID | Name | Summary | Status |",
		"|----|------|---------|--------|",
		"| DP.ZZ | Loose | u | — |",
		"",
		"## Warnings",
		"",
		"- Missing `summary`: DP.D.001 (DP.D.001.md)",
		"",
		"## Staleness Warnings (>90 days since update)",
		"",
		"| ID | Days Since Update |",
		"|----|-------------------|",
		"| DP.D.002 | 517 |",
		"",
		"---",
		"",
		"*Generated by `spfpack map` on 2025-06-01*",
	}, "\n")

	got := GenerateMap("DP", fixture(t), testOpts)
	assert.Equal(t, want, got)
}

func TestGenerateMap_Empty(t *testing.T) {
	got := GenerateMap("EV", nil, Options{Today: testOpts.Today, Generator: "gen"})

	assert.Contains(t, got, "| **Total** | **0** |\n\n---\n\n*Generated by `gen` on 2025-06-01*")
	assert.NotContains(t, got, "## Warnings")
	assert.NotContains(t, got, "## Staleness")
	assert.NotContains(t, got, "## Domain-Specific Entities")
	assert.False(t, strings.HasSuffix(got, "\n"))
}

func TestGenerateMap_CoreKindOrder(t *testing.T) {
	entities := []*pack.Entity{
		entity(t, "a.md", "---\nid: DP.OA.001\nsummary: x\n---\n"),
		entity(t, "b.md", "---\nid: DP.CHR.001\nsummary: x\n---\n"),
		entity(t, "c.md", "---\nid: DP.R.001\nsummary: x\n---\n"),
		entity(t, "d.md", "---\nid: DP.SOTA.001\nsummary: x\n---\n"),
	}

	got := GenerateMap("DP", entities, testOpts)

	roles := strings.Index(got, "## Roles")
	sota := strings.Index(got, "## SoTA Annotations")
	chr := strings.Index(got, "## Characteristics")
	oa := strings.Index(got, "## Objects of Attention")
	require.True(t, roles > 0 && sota > 0 && chr > 0 && oa > 0)
	assert.True(t, roles < sota && sota < chr && chr < oa)
	assert.NotContains(t, got, "## Domain-Specific Entities")
}

func TestGenerateMap_StaleThreshold(t *testing.T) {
	opts := testOpts
	opts.StaleAfterDays = 30

	got := GenerateMap("DP", fixture(t), opts)

	assert.Contains(t, got, "## Staleness Warnings (>30 days since update)")
	assert.Contains(t, got, "| DP.D.002 | 517 |\n| DP.M.001 | 31 |")
}

func TestGenerateEntityIndex(t *testing.T) {
	want := strings.Join([]string{
		"## Entity Index",
		"",
		"| ID | Name | Kind | Summary | Status |",
		"|----|------|------|---------|--------|",
		"| DP.BIO.001 | Cell | BIO | c | — |",
		`| DP.D.001 | A \| B | D | — | — |`,
		"| DP.D.002 | B | D | b | stable |",
		"| DP.M.001 | Knowledge Extraction | M | m | draft |",
		"| DP.ZZ | Loose | UNKNOWN | u | — |",
	}, "\n")

	assert.Equal(t, want, GenerateEntityIndex(fixture(t)))
}

func TestStaleEntities(t *testing.T) {
	today := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	day := func(s string) *time.Time {
		d, err := time.Parse(frontmatter.DateLayout, s)
		require.NoError(t, err)
		return &d
	}

	entities := []*pack.Entity{
		{ID: "A", LastUpdated: day("2025-03-03")},
		{ID: "B", LastUpdated: day("2025-03-02")},
		{ID: "C"},
		{ID: "D", LastUpdated: day("2020-01-01")},
	}

	stale := StaleEntities(entities, today, 90)
	require.Len(t, stale, 2)
	assert.Equal(t, "D", stale[0].ID)
	assert.Equal(t, "B", stale[1].ID)
	assert.Equal(t, 91, stale[1].Days)
}

func TestCellEscaping(t *testing.T) {
	assert.Equal(t, `a \| b`, cell("a | b"))
	assert.Equal(t, "line one line two", cell("line one\nline two\n"))
}

func TestMapPath(t *testing.T) {
	assert.Equal(t, filepath.Join("pack", "07-map", "DP.MAP.001.md"), MapPath("pack", "", "DP"))
	assert.Equal(t, filepath.Join("pack", "maps", "EV.MAP.001.md"), MapPath("pack", "maps", "EV"))
}

func TestDaysBetween_BeyondDurationRange(t *testing.T) {
	first := time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
	today := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 739402, DaysBetween(first, today))
	assert.Equal(t, 1, DaysBetween(time.Date(2025, 5, 31, 23, 0, 0, 0, time.UTC), today))
}

func TestKindCellEscaping(t *testing.T) {
	entities := []*pack.Entity{
		entity(t, "/p/x/pipe.md", "---\nid: DP.A|B.001\nname: Pipe\nsummary: p\n---\n"),
	}

	idx := GenerateEntityIndex(entities)
	assert.Contains(t, idx, `| DP.A\|B.001 | Pipe | A\|B | p | — |`)

	content := GenerateMap("DP", entities, testOpts)
	assert.Contains(t, content, `| A\|B (A\|B) | 1 |`)
}
