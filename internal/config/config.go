package config

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/alucardeht/spfpack/internal/pack"
	"github.com/alucardeht/spfpack/internal/watcher"
)

// FileName is looked up in the pack directory when no --config is given.
const FileName = ".spfpack.yaml"

type PackConfig struct {
	MapDir          string   `yaml:"map_dir"`
	ManifestFile    string   `yaml:"manifest_file"`
	SkipFiles       []string `yaml:"skip_files"`
	ExcludePatterns []string `yaml:"exclude_patterns"`
	ScanWorkers     int      `yaml:"scan_workers"`
	StaleAfterDays  int      `yaml:"stale_after_days"`
}

type LintConfig struct {
	Disabled []string `yaml:"disabled"`
}

type IndexConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type ServerConfig struct {
	HTTPAddr    string        `yaml:"http_addr"`
	SocketPath  string        `yaml:"socket_path"`
	ToolTimeout time.Duration `yaml:"tool_timeout"`
}

type Config struct {
	LogLevel  string                `yaml:"log_level"`
	LogFormat string                `yaml:"log_format"`
	Pack      PackConfig            `yaml:"pack"`
	Lint      LintConfig            `yaml:"lint"`
	Index     IndexConfig           `yaml:"index"`
	Server    ServerConfig          `yaml:"server"`
	Watcher   watcher.WatcherConfig `yaml:"watcher"`
}

func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Pack: PackConfig{
			MapDir:       "07-map",
			ManifestFile: "00-pack-manifest.md",
			SkipFiles:    []string{"00-pack-manifest.md", "ontology.md"},
			ExcludePatterns: []string{
				"**/.git/**",
				"**/node_modules/**",
				"**/.spfpack/**",
			},
			ScanWorkers:    8,
			StaleAfterDays: 90,
		},
		Index: IndexConfig{
			Enabled: true,
		},
		Server: ServerConfig{
			ToolTimeout: 2 * time.Minute,
		},
		Watcher: watcher.DefaultWatcherConfig(),
	}
}

// Load builds the effective configuration: defaults, then the YAML file
// (explicit path, or FileName inside packDir when present), then SPFPACK_*
// environment overrides.
func Load(path, packDir string) (*Config, error) {
	cfg := Default()

	if path == "" && packDir != "" {
		candidate := filepath.Join(packDir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SPFPACK_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("SPFPACK_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("SPFPACK_INDEX_PATH"); v != "" {
		c.Index.Path = v
	}
	if v := os.Getenv("SPFPACK_HTTP_ADDR"); v != "" {
		c.Server.HTTPAddr = v
	}
	if v := os.Getenv("SPFPACK_STALE_AFTER_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SPFPACK_STALE_AFTER_DAYS: %w", err)
		}
		c.Pack.StaleAfterDays = days
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Pack.MapDir == "" {
		errs = append(errs, errors.New("pack.map_dir must not be empty"))
	}
	if c.Pack.StaleAfterDays < 1 {
		errs = append(errs, fmt.Errorf("pack.stale_after_days must be >= 1, got %d", c.Pack.StaleAfterDays))
	}
	if c.Pack.ScanWorkers < 0 {
		errs = append(errs, fmt.Errorf("pack.scan_workers must be >= 0, got %d", c.Pack.ScanWorkers))
	}
	if c.Watcher.MaxBatchSize < 0 {
		errs = append(errs, fmt.Errorf("watcher.max_batch_size must be >= 0, got %d", c.Watcher.MaxBatchSize))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}

	for _, p := range c.Pack.ExcludePatterns {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, fmt.Errorf("invalid exclude pattern %q", p))
		}
	}
	for _, p := range c.Watcher.IgnorePatterns {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, fmt.Errorf("invalid watcher ignore pattern %q", p))
		}
	}

	return errors.Join(errs...)
}

// IndexPath returns the SQLite index location for packDir. Without an
// explicit path the index lives in the user cache dir, keyed by the pack's
// absolute path, so the pack tree itself is never written to.
func (c *Config) IndexPath(packDir string) (string, error) {
	if c.Index.Path != "" {
		return c.Index.Path, nil
	}

	abs, err := filepath.Abs(packDir)
	if err != nil {
		return "", fmt.Errorf("resolve pack dir: %w", err)
	}

	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}

	sum := sha256.Sum256([]byte(abs))
	name := hex.EncodeToString(sum[:])[:16] + ".db"
	return filepath.Join(cacheDir, "spfpack", name), nil
}

// SocketPath defaults to ~/.spfpack/daemon.sock.
func (c *Config) SocketPath() string {
	if c.Server.SocketPath != "" {
		return c.Server.SocketPath
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".spfpack", "daemon.sock")
}

func (c *Config) LintDisabled() map[string]bool {
	disabled := make(map[string]bool, len(c.Lint.Disabled))
	for _, rule := range c.Lint.Disabled {
		disabled[rule] = true
	}
	return disabled
}

func (c *Config) ScanOptions() pack.ScanOptions {
	return pack.ScanOptions{
		ManifestFile:    c.Pack.ManifestFile,
		SkipFiles:       c.Pack.SkipFiles,
		ExcludePatterns: c.Pack.ExcludePatterns,
		Workers:         c.Pack.ScanWorkers,
	}
}
