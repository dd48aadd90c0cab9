package index

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alucardeht/spfpack/internal/frontmatter"
	"github.com/alucardeht/spfpack/internal/pack"
)

func newTestStore(t *testing.T) *IndexStore {
	t.Helper()
	store, err := NewIndexStore(filepath.Join(t.TempDir(), "nested", "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testPack(t *testing.T) *pack.Pack {
	t.Helper()
	docs := []struct{ path, content string }{
		{"/p/01/DP.D.001.md", "---\nid: DP.D.001\nname: Boundary\nsummary: Where the system ends\nstatus: stable\nlast_updated: 2025-01-02\n---\n"},
		{"/p/03/DP.M.001.md", "---\nid: DP.M.001\nname: Card Sorting\nsummary: Grouping concepts with users\n---\n"},
		{"/p/03/DP.M.002.md", "---\nid: DP.M.002\nname: Interviewing\nsummary: Structured conversations\n---\n"},
		{"/p/x/DP.D.001-dup.md", "---\nid: DP.D.001\nname: Duplicate\n---\n"},
	}

	p := &pack.Pack{Dir: "/p", Domain: "DP", ScannedAt: time.Now()}
	for _, d := range docs {
		e := pack.EntityFromDocument(frontmatter.Parse(d.path, d.content))
		require.NotNil(t, e)
		p.Entities = append(p.Entities, e)
	}
	return p
}

func TestReplacePackAndGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	scanID, err := store.ReplacePack(ctx, testPack(t))
	require.NoError(t, err)
	assert.Len(t, scanID, 36)

	rec, err := store.Get(ctx, "DP.D.001")
	require.NoError(t, err)
	assert.Equal(t, "Boundary", rec.Name)
	assert.Equal(t, "D", rec.Kind)
	assert.Equal(t, "stable", rec.Status)
	assert.Equal(t, "2025-01-02", rec.LastUpdated)
	assert.Equal(t, "/p/01/DP.D.001.md", rec.Path)
	assert.Equal(t, scanID, rec.ScanID)
	assert.Len(t, rec.ContentHash, 64)
	assert.False(t, rec.IndexedAt.IsZero())

	_, err = store.Get(ctx, "DP.D.404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReplacePackReplaces(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.ReplacePack(ctx, testPack(t))
	require.NoError(t, err)

	smaller := testPack(t)
	smaller.Entities = smaller.Entities[:1]
	_, err = store.ReplacePack(ctx, smaller)
	require.NoError(t, err)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	results, err := store.Search(ctx, "interviewing", 10)
	require.NoError(t, err)
	assert.Empty(t, results, "deleted rows must leave the FTS index")

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalScans)
	require.NotNil(t, stats.LastScan)
	assert.Equal(t, 1, stats.LastScan.EntityCount)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	_, err := store.ReplacePack(ctx, testPack(t))
	require.NoError(t, err)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "DP.D.001", all[0].ID)
	assert.Equal(t, "DP.D.001", all[1].ID)
	assert.Equal(t, "DP.M.002", all[3].ID)

	methods, err := store.List(ctx, "M")
	require.NoError(t, err)
	assert.Len(t, methods, 2)

	none, err := store.List(ctx, "SOTA")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	_, err := store.ReplacePack(ctx, testPack(t))
	require.NoError(t, err)

	tests := []struct {
		query string
		want  []string
	}{
		{"sorting", []string{"DP.M.001"}},
		{"system ends", []string{"DP.D.001"}},
		{"DP.M.002", []string{"DP.M.002"}},
		{"inter*", []string{"DP.M.002"}},
		{`"quoted" (parens) AND`, nil},
		{"   ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			results, err := store.Search(ctx, tt.query, 10)
			require.NoError(t, err)
			var ids []string
			for _, r := range results {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestSearchLimit(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	_, err := store.ReplacePack(ctx, testPack(t))
	require.NoError(t, err)

	results, err := store.Search(ctx, "DP", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestBuildMatchQuery(t *testing.T) {
	assert.Equal(t, `"card" "sorting"`, BuildMatchQuery("card sorting"))
	assert.Equal(t, `"DP.M.001"`, BuildMatchQuery("DP.M.001"))
	assert.Equal(t, `"say" """hi"""`, BuildMatchQuery(`say "hi"`))
	assert.Equal(t, `"inter"*`, BuildMatchQuery("inter*"))
	assert.Equal(t, "", BuildMatchQuery(" * "))
}

func TestStatsEmpty(t *testing.T) {
	stats, err := newTestStore(t).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalEntities)
	assert.Nil(t, stats.LastScan)
}

func TestStatsByKind(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	_, err := store.ReplacePack(ctx, testPack(t))
	require.NoError(t, err)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalEntities)
	assert.Equal(t, map[string]int{"D": 2, "M": 2}, stats.ByKind)
	assert.Equal(t, "DP", stats.LastScan.Domain)
}
