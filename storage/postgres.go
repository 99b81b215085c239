package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"sublet-scraper/models"
)

const pgBatchSize = 50

// PostgresStore persists every table in PostgreSQL. All writes are inserts;
// nothing is updated or deleted.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresStore.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, fmt.Errorf("postgres: ping: %w", ctx.Err())
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return ps, nil
}

func (ps *PostgresStore) migrate(ctx context.Context) error {
	_, err := ps.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS listings (
			id            SERIAL PRIMARY KEY,
			exact_key     VARCHAR(32)  UNIQUE NOT NULL,
			status        VARCHAR(32)  NOT NULL DEFAULT 'New',
			rating        NUMERIC(3,1) NOT NULL,
			price         INTEGER,
			neighborhood  TEXT         NOT NULL DEFAULT '',
			borough       TEXT         NOT NULL DEFAULT '',
			listing_type  TEXT         NOT NULL DEFAULT '',
			available_from DATE,
			available_to  DATE,
			furnished     BOOLEAN      NOT NULL DEFAULT FALSE,
			source        VARCHAR(50)  NOT NULL,
			url           TEXT         NOT NULL DEFAULT '',
			title         TEXT         NOT NULL,
			description   TEXT         NOT NULL DEFAULT '',
			breakdown     TEXT         NOT NULL DEFAULT '',
			contact       TEXT         NOT NULL DEFAULT '',
			scraped_at    TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS seen_records (
			id              SERIAL PRIMARY KEY,
			exact_key       VARCHAR(32) NOT NULL,
			fuzzy_signature TEXT        NOT NULL DEFAULT '',
			source          VARCHAR(50) NOT NULL DEFAULT '',
			first_seen      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		ALTER TABLE seen_records ADD COLUMN IF NOT EXISTS price INTEGER NOT NULL DEFAULT 0;
		ALTER TABLE seen_records ADD COLUMN IF NOT EXISTS tier  INTEGER NOT NULL DEFAULT 0;

		CREATE TABLE IF NOT EXISTS source_cursors (
			id         SERIAL PRIMARY KEY,
			key        TEXT        NOT NULL,
			cursor_at  TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS run_log (
			id         SERIAL PRIMARY KEY,
			run_id     VARCHAR(36) NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			source     TEXT        NOT NULL,
			fetched    INTEGER     NOT NULL DEFAULT 0,
			new_items  INTEGER     NOT NULL DEFAULT 0,
			duplicates INTEGER     NOT NULL DEFAULT 0,
			dropped    INTEGER     NOT NULL DEFAULT 0,
			failed     INTEGER     NOT NULL DEFAULT 0,
			error      TEXT        NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_listings_rating ON listings(rating);
		CREATE INDEX IF NOT EXISTS idx_listings_source ON listings(source);
		CREATE INDEX IF NOT EXISTS idx_seen_exact_key  ON seen_records(exact_key);
	`)
	return err
}

// ReadAllSeen returns the seen records in insertion order, then the exact
// key of every listing that has no seen record.
func (ps *PostgresStore) ReadAllSeen(ctx context.Context) ([]models.SeenRecord, error) {
	rows, err := ps.db.QueryContext(ctx, `
		SELECT exact_key, fuzzy_signature, price, tier, source, first_seen
		FROM seen_records
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: read seen: %w", err)
	}
	defer rows.Close()

	var records []models.SeenRecord
	for rows.Next() {
		var r models.SeenRecord
		var source string
		var tier int
		if err := rows.Scan(&r.ExactKey, &r.FuzzySignature, &r.Price, &tier, &source, &r.FirstSeenAt); err != nil {
			return nil, fmt.Errorf("postgres: scan seen row: %w", err)
		}
		r.Tier = models.Tier(tier)
		r.Source = models.Source(source)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: read seen: %w", err)
	}

	keys, err := ps.listingKeys(ctx)
	if err != nil {
		return nil, err
	}
	return FoldListingKeys(records, keys), nil
}

func (ps *PostgresStore) listingKeys(ctx context.Context) ([]string, error) {
	rows, err := ps.db.QueryContext(ctx, `SELECT exact_key FROM listings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: read listing keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("postgres: scan listing key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (ps *PostgresStore) AppendSeen(ctx context.Context, records []models.SeenRecord) error {
	args := make([][]interface{}, 0, len(records))
	for _, r := range records {
		args = append(args, []interface{}{r.ExactKey, r.FuzzySignature, r.Price, int(r.Tier), string(r.Source), r.FirstSeenAt})
	}
	return ps.insertBatches(ctx, "seen_records (exact_key, fuzzy_signature, price, tier, source, first_seen)", "", args)
}

func (ps *PostgresStore) AppendListings(ctx context.Context, listings []*models.ScoredListing) error {
	args := make([][]interface{}, 0, len(listings))
	for _, sl := range listings {
		l := sl.Listing
		var price interface{}
		if l.PriceUSD != nil {
			price = *l.PriceUSD
		}
		args = append(args, []interface{}{
			sl.Fingerprint.ExactKey, StatusNew, sl.Score.Total, price, l.Neighborhood,
			string(l.Borough), string(l.Type), nullableDate(l.AvailableFrom), nullableDate(l.AvailableTo),
			l.Furnished, string(l.Source), l.URL, l.Title, l.Description, FormatBreakdown(sl.Score),
			l.ContactInfo, l.DiscoveredAt,
		})
	}
	return ps.insertBatches(ctx,
		"listings (exact_key, status, rating, price, neighborhood, borough, listing_type, available_from, "+
			"available_to, furnished, source, url, title, description, breakdown, contact, scraped_at)",
		"ON CONFLICT (exact_key) DO NOTHING", args)
}

func (ps *PostgresStore) ReadCursors(ctx context.Context) (map[string]time.Time, error) {
	rows, err := ps.db.QueryContext(ctx, `SELECT key, cursor_at FROM source_cursors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: read cursors: %w", err)
	}
	defer rows.Close()

	cursors := make(map[string]time.Time)
	for rows.Next() {
		var key string
		var at time.Time
		if err := rows.Scan(&key, &at); err != nil {
			return nil, fmt.Errorf("postgres: scan cursor row: %w", err)
		}
		cursors[key] = at
	}
	return cursors, rows.Err()
}

func (ps *PostgresStore) AppendCursors(ctx context.Context, cursors map[string]time.Time) error {
	rows := CursorRows(cursors)
	args := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		args = append(args, []interface{}{row[0], cursors[row[0]]})
	}
	return ps.insertBatches(ctx, "source_cursors (key, cursor_at)", "", args)
}

func (ps *PostgresStore) AppendRunLog(ctx context.Context, report *models.RunReport) error {
	args := make([][]interface{}, 0, len(report.Sources))
	for _, s := range report.Sources {
		errText := ""
		if s.Error != nil {
			errText = s.Error.Error()
		}
		args = append(args, []interface{}{
			report.RunID, report.StartedAt, s.Source, s.ItemsFetched, s.ItemsNew,
			s.Duplicates, s.Dropped, s.Failed, errText,
		})
	}
	return ps.insertBatches(ctx,
		"run_log (run_id, started_at, source, fetched, new_items, duplicates, dropped, failed, error)", "", args)
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

// insertBatches writes rows in batches of pgBatchSize inside one transaction.
func (ps *PostgresStore) insertBatches(ctx context.Context, target, suffix string, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := 0; i < len(rows); i += pgBatchSize {
		end := i + pgBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		query, args := buildInsert(target, suffix, rows[i:end])
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("postgres: insert into %s: %w", strings.Fields(target)[0], err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// buildInsert renders a multi-row INSERT with numbered placeholders.
func buildInsert(target, suffix string, batch [][]interface{}) (string, []interface{}) {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*len(batch[0]))

	n := 1
	for _, row := range batch {
		placeholders := make([]string, len(row))
		for j := range row {
			placeholders[j] = fmt.Sprintf("$%d", n)
			n++
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		valueArgs = append(valueArgs, row...)
	}

	query := fmt.Sprintf("INSERT INTO %s VALUES %s", target, strings.Join(valueStrings, ","))
	if suffix != "" {
		query += " " + suffix
	}
	return query, valueArgs
}

func nullableDate(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
