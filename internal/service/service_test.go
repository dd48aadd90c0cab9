package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alucardeht/spfpack/internal/config"
	"github.com/alucardeht/spfpack/internal/index"
	"github.com/alucardeht/spfpack/internal/pack"
)

var fixedNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "00-pack-manifest.md", "---\npack_id: DP\n---\n# DP Pack\n\n## Entity Index\n\nstale\n\n## Changelog\n")
	writeFile(t, dir, "01-distinctions/DP.D.001-boundary.md",
		"---\nid: DP.D.001\nname: Boundary\nsummary: Where the system ends\nstatus: stable\nlast_updated: 2025-05-01\n---\n")
	writeFile(t, dir, "03-methods/DP.M.001-card-sorting.md",
		"---\nid: DP.M.001\nlast_updated: 2024-01-01\n---\n## [DP.M.001] Card Sorting\n")

	cfg := config.Default()
	cfg.Index.Path = filepath.Join(t.TempDir(), "index.db")
	cfg.Watcher.DebounceWindow = 50 * time.Millisecond

	svc, err := New(dir, cfg, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc, dir
}

func TestNew_NotDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "x.md")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	_, err := New(file, config.Default())
	assert.ErrorIs(t, err, pack.ErrNotDirectory)

	_, err = New(filepath.Join(dir, "missing"), config.Default())
	assert.Error(t, err)
}

func TestRefresh(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	assert.Nil(t, svc.Snapshot())

	snap, err := svc.Refresh(ctx)
	require.NoError(t, err)

	assert.Equal(t, "DP", snap.Pack.Domain)
	assert.Len(t, snap.Pack.Entities, 2)
	assert.NotEmpty(t, snap.ScanID)
	assert.Equal(t, fixedNow, snap.RefreshedAt)
	assert.Same(t, snap, svc.Snapshot())

	// DP.M.001 has no summary, a derived name and is stale.
	assert.Equal(t, 0, snap.Lint.Errors)
	assert.Equal(t, 2, snap.Lint.Warnings)
	assert.Equal(t, 1, snap.Lint.Infos)

	m := svc.Metrics()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RefreshTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Entities.WithLabelValues("M")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LintFindings.WithLabelValues("warning")))

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalEntities)
}

func TestWriteMap_OnlyWhenChanged(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	first, err := svc.WriteMap(ctx)
	require.NoError(t, err)
	assert.True(t, first.Written)
	assert.Equal(t, filepath.Join(dir, "07-map", "DP.MAP.001.md"), first.Path)

	data, err := os.ReadFile(first.Path)
	require.NoError(t, err)
	assert.Equal(t, first.Content, string(data))
	assert.Contains(t, first.Content, "| DP.M.001 | Card Sorting | — | — |")
	assert.Contains(t, first.Content, "*Generated by `spfpack map` on 2025-06-01*")

	again, err := svc.WriteMap(ctx)
	require.NoError(t, err)
	assert.False(t, again.Written)

	// The MAP is itself an entity of the pack, so the next refresh
	// changes the statistics once and then settles.
	_, err = svc.Refresh(ctx)
	require.NoError(t, err)
	third, err := svc.WriteMap(ctx)
	require.NoError(t, err)
	assert.True(t, third.Written)
	assert.Contains(t, third.Content, "| Maps (MAP) | 1 |")

	_, err = svc.Refresh(ctx)
	require.NoError(t, err)
	fourth, err := svc.WriteMap(ctx)
	require.NoError(t, err)
	assert.False(t, fourth.Written)

	assert.Equal(t, 2.0, testutil.ToFloat64(svc.Metrics().MapWrites))
}

func TestEntityIndexAndManifest(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	idx, err := svc.EntityIndex(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(idx, "## Entity Index\n"))
	assert.Contains(t, idx, "| DP.D.001 | Boundary | D | Where the system ends | stable |")

	changed, err := svc.UpdateManifest(ctx)
	require.NoError(t, err)
	assert.True(t, changed)

	data, err := os.ReadFile(filepath.Join(dir, "00-pack-manifest.md"))
	require.NoError(t, err)
	manifest := string(data)
	assert.NotContains(t, manifest, "stale")
	assert.Contains(t, manifest, idx+"\n\n## Changelog\n")

	changed, err = svc.UpdateManifest(ctx)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestEntities(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	all, err := svc.Entities(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "DP.D.001", all[0].ID)

	methods, err := svc.Entities(ctx, "M")
	require.NoError(t, err)
	require.Len(t, methods, 1)
	assert.Equal(t, "Card Sorting", methods[0].Name)

	e, err := svc.Entity(ctx, "DP.M.001")
	require.NoError(t, err)
	assert.Equal(t, pack.NameFromHeading, e.NameSource)

	_, err = svc.Entity(ctx, "DP.X.404")
	assert.ErrorIs(t, err, index.ErrNotFound)
}

func TestSearch(t *testing.T) {
	svc, _ := newTestService(t)

	results, err := svc.Search(context.Background(), "system", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "DP.D.001", results[0].ID)
}

func TestSearch_IndexDisabled(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Index.Enabled = false

	svc, err := New(dir, cfg)
	require.NoError(t, err)
	defer svc.Close()

	_, err = svc.Search(context.Background(), "x", 5)
	assert.ErrorIs(t, err, ErrIndexDisabled)

	stats, err := svc.Stats(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, stats)

	_, err = svc.IndexedEntities(context.Background(), "")
	assert.ErrorIs(t, err, ErrIndexDisabled)
	_, err = svc.IndexedEntity(context.Background(), "DP.D.001")
	assert.ErrorIs(t, err, ErrIndexDisabled)
}

func TestIndexedEntities(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	records, err := svc.IndexedEntities(ctx, "")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "DP.D.001", records[0].ID)
	assert.Equal(t, svc.Snapshot().ScanID, records[0].ScanID)

	none, err := svc.IndexedEntities(ctx, "SOTA")
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)

	rec, err := svc.IndexedEntity(ctx, "DP.M.001")
	require.NoError(t, err)
	assert.Equal(t, "Card Sorting", rec.Name)

	_, err = svc.IndexedEntity(ctx, "DP.X.404")
	assert.ErrorIs(t, err, index.ErrNotFound)
}

func TestWatch(t *testing.T) {
	svc, dir := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan *MapResult, 16)
	done := make(chan error, 1)
	go func() {
		done <- svc.Watch(ctx, func(result *MapResult, err error) {
			if err == nil {
				updates <- result
			}
		})
	}()

	select {
	case first := <-updates:
		assert.True(t, first.Written)
	case <-time.After(5 * time.Second):
		t.Fatal("no initial MAP")
	}

	writeFile(t, dir, "01-distinctions/DP.D.002.md", "---\nid: DP.D.002\nname: Drift\nsummary: x\n---\n")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case result := <-updates:
			if strings.Contains(result.Content, "DP.D.002") {
				cancel()
				select {
				case err := <-done:
					assert.NoError(t, err)
				case <-time.After(5 * time.Second):
					t.Fatal("watch did not stop")
				}
				return
			}
		case <-deadline:
			t.Fatal("change not picked up")
		}
	}
}
