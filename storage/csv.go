package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"sublet-scraper/models"
)

// CSVStore keeps each table in its own CSV file and only ever appends to
// them. It is safe for concurrent use.
type CSVStore struct {
	mu          sync.Mutex
	listingPath string
	seenPath    string
	cursorPath  string
	runLogPath  string
}

// NewCSVStore creates a CSVStore. Cursor and run log files live next to
// the seen file. Intermediate directories are created automatically.
func NewCSVStore(listingPath, seenPath string) (*CSVStore, error) {
	dir := filepath.Dir(seenPath)
	for _, d := range []string{filepath.Dir(listingPath), dir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return nil, fmt.Errorf("csv: create output dir: %w", err)
		}
	}
	return &CSVStore{
		listingPath: listingPath,
		seenPath:    seenPath,
		cursorPath:  filepath.Join(dir, "cursors.csv"),
		runLogPath:  filepath.Join(dir, "runs.csv"),
	}, nil
}

// ReadAllSeen returns the seen file's records plus the exact key of every
// listing row that has no seen record.
func (c *CSVStore) ReadAllSeen(_ context.Context) ([]models.SeenRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := readCSV(c.seenPath)
	if err != nil {
		return nil, err
	}
	records := make([]models.SeenRecord, 0, len(rows))
	for _, row := range rows {
		if rec, ok := ParseSeenRow(row); ok {
			records = append(records, rec)
		}
	}

	listingRows, err := readCSV(c.listingPath)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(listingRows))
	for _, row := range listingRows {
		keys = append(keys, cell(row, ListingIDColumn))
	}
	return FoldListingKeys(records, keys), nil
}

func (c *CSVStore) AppendSeen(_ context.Context, records []models.SeenRecord) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, SeenRow(r))
	}
	return c.append(c.seenPath, SeenHeader, rows)
}

func (c *CSVStore) AppendListings(_ context.Context, listings []*models.ScoredListing) error {
	rows := make([][]string, 0, len(listings))
	for _, sl := range listings {
		rows = append(rows, ListingRow(sl))
	}
	return c.append(c.listingPath, ListingHeader, rows)
}

func (c *CSVStore) ReadCursors(_ context.Context) (map[string]time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := readCSV(c.cursorPath)
	if err != nil {
		return nil, err
	}
	cursors := make(map[string]time.Time)
	for _, row := range rows {
		MergeCursorRow(cursors, row)
	}
	return cursors, nil
}

func (c *CSVStore) AppendCursors(_ context.Context, cursors map[string]time.Time) error {
	return c.append(c.cursorPath, CursorHeader, CursorRows(cursors))
}

func (c *CSVStore) AppendRunLog(_ context.Context, report *models.RunReport) error {
	return c.append(c.runLogPath, RunLogHeader, RunLogRows(report))
}

func (c *CSVStore) Close() error { return nil }

// append opens path in append mode, writing header first if the file is new.
func (c *CSVStore) append(path string, header []string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	info, statErr := os.Stat(path)
	isNew := errors.Is(statErr, os.ErrNotExist) || (statErr == nil && info.Size() == 0)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("csv: write header: %w", err)
		}
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("csv: write rows to %q: %w", path, err)
	}
	return nil
}

// readCSV returns every row after the header. A missing file is empty.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv: read %q: %w", path, err)
	}
	if len(rows) > 0 {
		rows = rows[1:]
	}
	return rows, nil
}
