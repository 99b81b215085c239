package storage

import (
	"context"
	"time"

	"sublet-scraper/models"
)

// SeenStore persists dedup markers. It is append-only: existing records are
// never updated or deleted.
type SeenStore interface {
	ReadAllSeen(ctx context.Context) ([]models.SeenRecord, error)
	AppendSeen(ctx context.Context, records []models.SeenRecord) error
}

// ListingSink receives each run's accepted listings. Rows already written
// are never touched again.
type ListingSink interface {
	AppendListings(ctx context.Context, listings []*models.ScoredListing) error
}

// CursorStore persists per-source incremental fetch cursors. Appends are
// ordered; the latest value for a key wins on read.
type CursorStore interface {
	ReadCursors(ctx context.Context) (map[string]time.Time, error)
	AppendCursors(ctx context.Context, cursors map[string]time.Time) error
}

// RunLogger records one row per source per run.
type RunLogger interface {
	AppendRunLog(ctx context.Context, report *models.RunReport) error
}

// Store is a complete durable backend.
type Store interface {
	SeenStore
	ListingSink
	CursorStore
	RunLogger
	Close() error
}
