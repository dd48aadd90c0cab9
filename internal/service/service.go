// Package service ties scanning, lint, the entity index and MAP generation
// together for one pack directory.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/alucardeht/spfpack/internal/config"
	"github.com/alucardeht/spfpack/internal/index"
	"github.com/alucardeht/spfpack/internal/lint"
	"github.com/alucardeht/spfpack/internal/logger"
	"github.com/alucardeht/spfpack/internal/mapgen"
	"github.com/alucardeht/spfpack/internal/metrics"
	"github.com/alucardeht/spfpack/internal/pack"
)

var log = logger.ForComponent("service")

var ErrIndexDisabled = errors.New("entity index is disabled")

// Snapshot is the result of one refresh.
type Snapshot struct {
	Pack        *pack.Pack    `json:"pack"`
	Lint        *lint.Report  `json:"lint"`
	ScanID      string        `json:"scan_id,omitempty"`
	RefreshedAt time.Time     `json:"refreshed_at"`
	Duration    time.Duration `json:"duration"`
}

type MapResult struct {
	Path    string `json:"path"`
	Domain  string `json:"domain"`
	Written bool   `json:"written"`
	Content string `json:"-"`
}

type Service struct {
	dir     string
	cfg     *config.Config
	scanner *pack.Scanner
	store   *index.IndexStore
	metrics *metrics.Metrics
	now     func() time.Time

	refreshMu sync.Mutex
	mu        sync.RWMutex
	snapshot  *Snapshot
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the clock used for MAP dates and staleness.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New validates dir and opens the entity index when it is enabled.
func New(dir string, cfg *config.Config, opts ...Option) (*Service, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", abs, pack.ErrNotDirectory)
	}

	if cfg == nil {
		cfg = config.Default()
	}

	s := &Service{
		dir:     abs,
		cfg:     cfg,
		scanner: pack.NewScanner(cfg.ScanOptions()),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}

	for _, rule := range cfg.Lint.Disabled {
		if !lint.IsRule(rule) {
			log.Warn("unknown lint rule in config", "rule", rule)
		}
	}

	if cfg.Index.Enabled {
		path, err := cfg.IndexPath(abs)
		if err != nil {
			return nil, err
		}
		store, err := index.NewIndexStore(path)
		if err != nil {
			return nil, fmt.Errorf("open index %s: %w", path, err)
		}
		s.store = store
		log.Debug("entity index opened", "path", path)
	}

	return s, nil
}

func (s *Service) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

func (s *Service) Dir() string               { return s.dir }
func (s *Service) Config() *config.Config    { return s.cfg }
func (s *Service) Metrics() *metrics.Metrics { return s.metrics }
func (s *Service) Now() time.Time            { return s.now() }

// Snapshot returns the latest refresh, or nil before the first one.
func (s *Service) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Current returns the latest snapshot, refreshing when there is none.
func (s *Service) Current(ctx context.Context) (*Snapshot, error) {
	if snap := s.Snapshot(); snap != nil {
		return snap, nil
	}
	return s.Refresh(ctx)
}

// Refresh scans, lints and indexes the pack. Concurrent calls are
// serialized.
func (s *Service) Refresh(ctx context.Context) (snap *Snapshot, err error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	start := time.Now()
	defer func() { s.metrics.ObserveRefresh(start, err) }()

	p, err := s.scanner.Scan(ctx, s.dir)
	if err != nil {
		return nil, err
	}

	report := lint.Lint(p, lint.Options{
		Today:          s.now(),
		StaleAfterDays: s.cfg.Pack.StaleAfterDays,
		Disabled:       s.cfg.LintDisabled(),
	})

	snap = &Snapshot{
		Pack:        p,
		Lint:        report,
		RefreshedAt: s.now(),
	}

	if s.store != nil {
		scanID, err := s.store.ReplacePack(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("index pack: %w", err)
		}
		snap.ScanID = scanID
	}

	snap.Duration = time.Since(start)

	byKind := make(map[string]int)
	for _, e := range p.Entities {
		byKind[e.Kind]++
	}
	s.metrics.SetEntities(byKind)
	s.metrics.SetLintFindings(report.Errors, report.Warnings, report.Infos)

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()

	log.Info("pack refreshed", "domain", p.Domain, "entities", len(p.Entities),
		"errors", report.Errors, "warnings", report.Warnings, "duration", snap.Duration)

	return snap, nil
}

func (s *Service) mapOptions() mapgen.Options {
	return mapgen.Options{
		Today:          s.now(),
		StaleAfterDays: s.cfg.Pack.StaleAfterDays,
		Generator:      mapgen.DefaultGenerator,
	}
}

// GenerateMap renders the MAP for the current snapshot without writing it.
func (s *Service) GenerateMap(ctx context.Context) (*MapResult, error) {
	snap, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}

	domain := snap.Pack.Domain
	return &MapResult{
		Path:    mapgen.MapPath(s.dir, s.cfg.Pack.MapDir, domain),
		Domain:  domain,
		Content: mapgen.GenerateMap(domain, snap.Pack.Entities, s.mapOptions()),
	}, nil
}

// WriteMap writes the MAP file only when its content changed, so a watcher
// does not react to its own output.
func (s *Service) WriteMap(ctx context.Context) (*MapResult, error) {
	result, err := s.GenerateMap(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := os.ReadFile(result.Path)
	if err == nil && string(existing) == result.Content {
		log.Debug("MAP unchanged", "path", result.Path)
		return result, nil
	}

	if err := os.MkdirAll(filepath.Dir(result.Path), 0755); err != nil {
		return nil, fmt.Errorf("create map dir: %w", err)
	}
	if err := os.WriteFile(result.Path, []byte(result.Content), 0644); err != nil {
		return nil, fmt.Errorf("write map: %w", err)
	}

	result.Written = true
	s.metrics.IncrementMapWrites()
	log.Info("MAP written", "path", result.Path)
	return result, nil
}

func (s *Service) EntityIndex(ctx context.Context) (string, error) {
	snap, err := s.Current(ctx)
	if err != nil {
		return "", err
	}
	return mapgen.GenerateEntityIndex(snap.Pack.Entities), nil
}

// UpdateManifest splices the Entity Index into the pack manifest.
func (s *Service) UpdateManifest(ctx context.Context) (bool, error) {
	idx, err := s.EntityIndex(ctx)
	if err != nil {
		return false, err
	}
	return pack.UpdateManifest(s.ManifestPath(), idx)
}

func (s *Service) ManifestPath() string {
	return filepath.Join(s.dir, s.cfg.Pack.ManifestFile)
}

// Entities returns the current entities sorted by ID, optionally of one
// kind.
func (s *Service) Entities(ctx context.Context, kind string) ([]*pack.Entity, error) {
	snap, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*pack.Entity, 0, len(snap.Pack.Entities))
	for _, e := range snap.Pack.Entities {
		if kind == "" || e.Kind == kind {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Entity returns the first entity declaring id, by path.
func (s *Service) Entity(ctx context.Context, id string) (*pack.Entity, error) {
	snap, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	if matches := snap.Pack.ByID(id); len(matches) > 0 {
		return matches[0], nil
	}
	return nil, fmt.Errorf("%s: %w", id, index.ErrNotFound)
}

func (s *Service) Search(ctx context.Context, query string, limit int) ([]*index.SearchResult, error) {
	if s.store == nil {
		return nil, ErrIndexDisabled
	}
	if _, err := s.Current(ctx); err != nil {
		return nil, err
	}
	return s.store.Search(ctx, query, limit)
}

// Stats reports the index statistics, or nil when the index is disabled.
func (s *Service) Stats(ctx context.Context) (*index.IndexStats, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.Stats(ctx)
}

// IndexedEntities lists the records of the last indexed scan, ordered by
// ID, optionally of one kind.
func (s *Service) IndexedEntities(ctx context.Context, kind string) ([]*index.EntityRecord, error) {
	if s.store == nil {
		return nil, ErrIndexDisabled
	}
	if _, err := s.Current(ctx); err != nil {
		return nil, err
	}
	records, err := s.store.List(ctx, kind)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []*index.EntityRecord{}
	}
	return records, nil
}

// IndexedEntity returns the indexed record of id.
func (s *Service) IndexedEntity(ctx context.Context, id string) (*index.EntityRecord, error) {
	if s.store == nil {
		return nil, ErrIndexDisabled
	}
	if _, err := s.Current(ctx); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}
