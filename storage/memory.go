package storage

import (
	"context"
	"sync"
	"time"

	"sublet-scraper/models"
)

// MemoryStore keeps everything in process memory. It backs dry runs and
// tests; nothing survives the process.
type MemoryStore struct {
	mu       sync.Mutex
	seen     []models.SeenRecord
	listings []*models.ScoredListing
	cursors  map[string]time.Time
	runs     []*models.RunReport
}

// NewMemoryStore creates a MemoryStore pre-loaded with seen records.
func NewMemoryStore(seen ...models.SeenRecord) *MemoryStore {
	return &MemoryStore{seen: append([]models.SeenRecord(nil), seen...), cursors: map[string]time.Time{}}
}

// ReadAllSeen returns the seen records plus the exact key of every stored
// listing that has no seen record.
func (m *MemoryStore) ReadAllSeen(_ context.Context) ([]models.SeenRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.listings))
	for _, sl := range m.listings {
		keys = append(keys, sl.Fingerprint.ExactKey)
	}
	return FoldListingKeys(append([]models.SeenRecord(nil), m.seen...), keys), nil
}

func (m *MemoryStore) AppendSeen(_ context.Context, records []models.SeenRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, records...)
	return nil
}

func (m *MemoryStore) AppendListings(_ context.Context, listings []*models.ScoredListing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings = append(m.listings, listings...)
	return nil
}

func (m *MemoryStore) ReadCursors(_ context.Context) (map[string]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]time.Time, len(m.cursors))
	for k, v := range m.cursors {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStore) AppendCursors(_ context.Context, cursors map[string]time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range cursors {
		m.cursors[k] = v
	}
	return nil
}

func (m *MemoryStore) AppendRunLog(_ context.Context, report *models.RunReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, report)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// Listings returns every listing appended so far.
func (m *MemoryStore) Listings() []*models.ScoredListing {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.ScoredListing(nil), m.listings...)
}

// Runs returns every run report appended so far.
func (m *MemoryStore) Runs() []*models.RunReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.RunReport(nil), m.runs...)
}
