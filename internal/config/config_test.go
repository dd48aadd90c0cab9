package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "07-map", cfg.Pack.MapDir)
	assert.Equal(t, 90, cfg.Pack.StaleAfterDays)
	assert.Equal(t, []string{"00-pack-manifest.md", "ontology.md"}, cfg.Pack.SkipFiles)
	assert.True(t, cfg.Index.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_PackFile(t *testing.T) {
	dir := t.TempDir()
	yml := `
log_level: debug
pack:
  stale_after_days: 30
  exclude_patterns: ["**/drafts/**"]
lint:
  disabled: [derived-name]
server:
  tool_timeout: 30s
watcher:
  debounce_window: 1s
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(yml), 0644))

	cfg, err := Load("", dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 30, cfg.Pack.StaleAfterDays)
	assert.Equal(t, "07-map", cfg.Pack.MapDir, "unset keys keep defaults")
	assert.Equal(t, []string{"**/drafts/**"}, cfg.Pack.ExcludePatterns)
	assert.True(t, cfg.LintDisabled()["derived-name"])
	assert.Equal(t, 30*time.Second, cfg.Server.ToolTimeout)
	assert.Equal(t, time.Second, cfg.Watcher.DebounceWindow)
	assert.Equal(t, []string{"**/drafts/**"}, cfg.ScanOptions().ExcludePatterns)
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.yaml"), "")
	assert.Error(t, err)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("SPFPACK_LOG_FORMAT", "json")
	t.Setenv("SPFPACK_INDEX_PATH", "/tmp/x.db")
	t.Setenv("SPFPACK_STALE_AFTER_DAYS", "7")

	cfg, err := Load("", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 7, cfg.Pack.StaleAfterDays)

	path, err := cfg.IndexPath("anything")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", path)
}

func TestLoad_EnvInvalid(t *testing.T) {
	t.Setenv("SPFPACK_STALE_AFTER_DAYS", "soon")

	_, err := Load("", t.TempDir())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Pack.StaleAfterDays = -1
	cfg.LogFormat = "xml"
	cfg.Pack.ExcludePatterns = []string{"[unclosed"}

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.True(t, strings.Contains(msg, "stale_after_days"))
	assert.True(t, strings.Contains(msg, "log_format"))
	assert.True(t, strings.Contains(msg, "[unclosed"))
}

func TestIndexPathIsStablePerPack(t *testing.T) {
	cfg := Default()

	a, err := cfg.IndexPath("/packs/one")
	require.NoError(t, err)
	b, err := cfg.IndexPath("/packs/one")
	require.NoError(t, err)
	c, err := cfg.IndexPath("/packs/two")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, ".db", filepath.Ext(a))
	assert.Equal(t, "spfpack", filepath.Base(filepath.Dir(a)))
}

func TestSocketPath(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "daemon.sock", filepath.Base(cfg.SocketPath()))

	cfg.Server.SocketPath = "/run/spf.sock"
	assert.Equal(t, "/run/spf.sock", cfg.SocketPath())
}

func TestValidate_ZeroStaleWindow(t *testing.T) {
	cfg := Default()
	cfg.Pack.StaleAfterDays = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pack.stale_after_days must be >= 1, got 0")
}
