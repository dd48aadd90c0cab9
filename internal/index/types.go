package index

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("entity not found")

type EntityRecord struct {
	RowID       int64     `json:"-"`
	ScanID      string    `json:"scan_id"`
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Kind        string    `json:"kind"`
	Summary     string    `json:"summary,omitempty"`
	Status      string    `json:"status,omitempty"`
	LastUpdated string    `json:"last_updated,omitempty"`
	Path        string    `json:"path"`
	ContentHash string    `json:"content_hash"`
	IndexedAt   time.Time `json:"indexed_at"`
}

type SearchResult struct {
	EntityRecord
	Score float64 `json:"score"`
}

type ScanRecord struct {
	ID          string    `json:"id"`
	PackDir     string    `json:"pack_dir"`
	Domain      string    `json:"domain"`
	EntityCount int       `json:"entity_count"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

type IndexStats struct {
	TotalEntities int            `json:"total_entities"`
	ByKind        map[string]int `json:"by_kind"`
	TotalScans    int            `json:"total_scans"`
	LastScan      *ScanRecord    `json:"last_scan,omitempty"`
}
