package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/alucardeht/spfpack/internal/frontmatter"
	"github.com/alucardeht/spfpack/internal/logger"
	"github.com/alucardeht/spfpack/internal/pack"
)

var log = logger.ForComponent("index")

// keepScans bounds the scan history table.
const keepScans = 50

const entityColumns = `e.id, e.scan_id, e.entity_id, e.name, e.kind, e.summary, e.status,
	e.last_updated, e.path, e.content_hash, e.indexed_at`

type IndexStore struct {
	db *sql.DB
	mu sync.RWMutex
}

func NewIndexStore(dbPath string) (*IndexStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	store := &IndexStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *IndexStore) initSchema() error {
	lines := strings.Split(GetSchema(), "\n")
	var cleanLines []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "--") && trimmed != "" {
			cleanLines = append(cleanLines, line)
		}
	}

	if _, err := s.db.Exec(strings.Join(cleanLines, "\n")); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	_, _ = s.db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, GetSchemaVersion())
	return nil
}

func (s *IndexStore) Close() error {
	return s.db.Close()
}

// ReplacePack swaps the indexed entities for those of p in one transaction
// and records the scan. It returns the new scan ID.
func (s *IndexStore) ReplacePack(ctx context.Context, p *pack.Pack) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scanID := uuid.NewString()
	startedAt := p.ScannedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO scans (id, pack_dir, domain, entity_count, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, scanID, p.Dir, p.Domain, len(p.Entities), formatTime(startedAt), formatTime(now)); err != nil {
		return "", fmt.Errorf("record scan: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM entities"); err != nil {
		return "", fmt.Errorf("clear entities: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entities (scan_id, entity_id, name, kind, summary, status, last_updated, path, content_hash, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	for _, e := range p.Entities {
		var lastUpdated sql.NullString
		if e.LastUpdated != nil {
			lastUpdated = sql.NullString{String: e.LastUpdated.Format(frontmatter.DateLayout), Valid: true}
		}

		if _, err := stmt.ExecContext(ctx,
			scanID, e.ID, e.Name, e.Kind, e.Summary, e.Status,
			lastUpdated, e.Path, e.Hash, formatTime(now),
		); err != nil {
			return "", fmt.Errorf("insert entity %s: %w", e.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM scans WHERE id NOT IN (
			SELECT id FROM scans ORDER BY finished_at DESC LIMIT ?
		) AND id != ?
	`, keepScans, scanID); err != nil {
		return "", fmt.Errorf("prune scans: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	log.Debug("pack indexed", "scan", scanID, "entities", len(p.Entities))
	return scanID, nil
}

// Get returns the first entity declaring id, by path.
func (s *IndexStore) Get(ctx context.Context, id string) (*EntityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT `+entityColumns+`
		FROM entities e WHERE e.entity_id = ? ORDER BY e.path ASC LIMIT 1
	`, id)

	rec, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get entity: %w", err)
	}
	return rec, nil
}

// List returns entities ordered by ID, optionally restricted to one kind.
func (s *IndexStore) List(ctx context.Context, kind string) ([]*EntityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + entityColumns + ` FROM entities e`
	var args []any
	if kind != "" {
		query += ` WHERE e.kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY e.entity_id ASC, e.path ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	var records []*EntityRecord
	for rows.Next() {
		rec, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Search runs a full-text query over ID, name and summary. Each word is
// quoted so that punctuation in IDs never breaks the FTS5 syntax; a
// trailing * keeps prefix matching.
func (s *IndexStore) Search(ctx context.Context, query string, limit int) ([]*SearchResult, error) {
	match := BuildMatchQuery(query)
	if match == "" {
		return []*SearchResult{}, nil
	}
	if limit <= 0 {
		limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entityColumns+`, bm25(entities_fts)
		FROM entities_fts
		INNER JOIN entities e ON e.id = entities_fts.rowid
		WHERE entities_fts MATCH ?
		ORDER BY bm25(entities_fts) ASC, e.entity_id ASC
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("search entities: %w", err)
	}
	defer rows.Close()

	results := make([]*SearchResult, 0)
	for rows.Next() {
		var rank float64
		rec, err := scanEntity(rows, &rank)
		if err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		results = append(results, &SearchResult{EntityRecord: *rec, Score: -rank})
	}

	return results, rows.Err()
}

// BuildMatchQuery turns free text into an FTS5 MATCH expression.
func BuildMatchQuery(query string) string {
	var terms []string
	for _, word := range strings.Fields(query) {
		prefix := strings.HasSuffix(word, "*")
		word = strings.TrimRight(word, "*")
		if word == "" {
			continue
		}
		term := `"` + strings.ReplaceAll(word, `"`, `""`) + `"`
		if prefix {
			term += "*"
		}
		terms = append(terms, term)
	}
	return strings.Join(terms, " ")
}

func (s *IndexStore) Stats(ctx context.Context) (*IndexStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &IndexStats{ByKind: make(map[string]int)}

	rows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM entities GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("count entities: %w", err)
	}
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan count: %w", err)
		}
		stats.ByKind[kind] = count
		stats.TotalEntities += count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scans`).Scan(&stats.TotalScans); err != nil {
		return nil, fmt.Errorf("count scans: %w", err)
	}

	scan := &ScanRecord{}
	var startedAt, finishedAt string
	err = s.db.QueryRowContext(ctx, `
		SELECT id, pack_dir, domain, entity_count, started_at, finished_at
		FROM scans ORDER BY finished_at DESC LIMIT 1
	`).Scan(&scan.ID, &scan.PackDir, &scan.Domain, &scan.EntityCount, &startedAt, &finishedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("last scan: %w", err)
	default:
		scan.StartedAt = parseTime(startedAt)
		scan.FinishedAt = parseTime(finishedAt)
		stats.LastScan = scan
	}

	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner, extra ...any) (*EntityRecord, error) {
	rec := &EntityRecord{}
	var name, summary, status, lastUpdated, hash sql.NullString
	var indexedAt string

	dest := []any{
		&rec.RowID, &rec.ScanID, &rec.ID, &name, &rec.Kind, &summary, &status,
		&lastUpdated, &rec.Path, &hash, &indexedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	rec.Name = name.String
	rec.Summary = summary.String
	rec.Status = status.String
	rec.LastUpdated = lastUpdated.String
	rec.ContentHash = hash.String
	rec.IndexedAt = parseTime(indexedAt)
	return rec, nil
}

// timeLayout has fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
