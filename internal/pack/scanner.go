package pack

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/alucardeht/spfpack/internal/frontmatter"
	"github.com/alucardeht/spfpack/internal/logger"
)

var log = logger.ForComponent("pack")

var ErrNotDirectory = errors.New("not a directory")

// SkippedFile is a Markdown file that could not be read.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// InvalidFile has a frontmatter block that is not a YAML mapping.
type InvalidFile struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

type Pack struct {
	Dir       string        `json:"dir"`
	Domain    string        `json:"domain"`
	Entities  []*Entity     `json:"entities"`
	Skipped   []SkippedFile `json:"skipped,omitempty"`
	Invalid   []InvalidFile `json:"invalid,omitempty"`
	Files     int           `json:"files"`
	ScannedAt time.Time     `json:"scanned_at"`
}

// ByID returns all entities declaring id, in path order.
func (p *Pack) ByID(id string) []*Entity {
	var out []*Entity
	for _, e := range p.Entities {
		if e.ID == id {
			out = append(out, e)
		}
	}
	return out
}

type ScanOptions struct {
	ManifestFile    string
	SkipFiles       []string
	ExcludePatterns []string
	Workers         int
}

func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		ManifestFile: "00-pack-manifest.md",
		SkipFiles:    []string{"00-pack-manifest.md", "ontology.md"},
		Workers:      8,
	}
}

type Scanner struct {
	opts ScanOptions
	skip map[string]bool
}

func NewScanner(opts ScanOptions) *Scanner {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.ManifestFile == "" {
		opts.ManifestFile = "00-pack-manifest.md"
	}

	skip := make(map[string]bool, len(opts.SkipFiles))
	for _, name := range opts.SkipFiles {
		skip[name] = true
	}

	return &Scanner{opts: opts, skip: skip}
}

// Files lists the candidate entity files under dir ordered by path
// component, so 01-d/x.md comes before 01-d-ext/y.md.
// Templates (names starting with _), the manifest, the ontology and
// excluded paths are left out.
func (s *Scanner) Files(dir string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			log.Debug("walk error", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			return nil
		}

		name := d.Name()
		if !strings.EqualFold(filepath.Ext(name), ".md") {
			return nil
		}
		if strings.HasPrefix(name, "_") || s.skip[name] {
			return nil
		}
		if s.excluded(dir, path) {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}

	sort.SliceStable(files, func(i, j int) bool {
		return comparePaths(files[i], files[j]) < 0
	})
	return files, nil
}

func comparePaths(a, b string) int {
	return slices.Compare(
		strings.Split(filepath.ToSlash(a), "/"),
		strings.Split(filepath.ToSlash(b), "/"),
	)
}

func (s *Scanner) excluded(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)

	for _, pattern := range s.opts.ExcludePatterns {
		if match, _ := doublestar.Match(pattern, rel); match {
			return true
		}
	}
	return false
}

type scanResult struct {
	entity  *Entity
	skipped *SkippedFile
	invalid *InvalidFile
}

// Scan parses every candidate file concurrently and returns the entities
// in path order. Unreadable files are reported in Pack.Skipped rather than
// failing the scan.
func (s *Scanner) Scan(ctx context.Context, dir string) (*Pack, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", abs, ErrNotDirectory)
	}

	files, err := s.Files(abs)
	if err != nil {
		return nil, err
	}

	results := make([]scanResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = parseOne(path)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", abs, err)
	}

	p := &Pack{
		Dir:       abs,
		Entities:  make([]*Entity, 0, len(files)),
		Files:     len(files),
		ScannedAt: time.Now(),
	}

	for _, r := range results {
		switch {
		case r.skipped != nil:
			p.Skipped = append(p.Skipped, *r.skipped)
		case r.invalid != nil:
			p.Invalid = append(p.Invalid, *r.invalid)
		case r.entity != nil:
			p.Entities = append(p.Entities, r.entity)
		}
	}

	p.Domain = DetectDomain(abs, s.opts.ManifestFile, p.Entities)

	log.Debug("pack scanned", "dir", abs, "files", len(files), "entities", len(p.Entities),
		"skipped", len(p.Skipped), "invalid", len(p.Invalid))

	return p, nil
}

func parseOne(path string) scanResult {
	doc, err := frontmatter.ParseFile(path)
	if err != nil {
		log.Warn("failed to read pack file", "path", path, "error", err)
		return scanResult{skipped: &SkippedFile{Path: path, Reason: err.Error()}}
	}

	if doc.ParseError != nil {
		return scanResult{invalid: &InvalidFile{Path: path, Error: doc.ParseError.Error()}}
	}

	return scanResult{entity: EntityFromDocument(doc)}
}
