package storage

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"sublet-scraper/models"
)

// Hidden worksheets that hold pipeline state next to the listings tab.
const (
	seenTab   = "_seen"
	cursorTab = "_cursors"
	runLogTab = "_log"
)

// SheetsStore persists to a Google spreadsheet. The first worksheet holds
// listings; state lives in hidden worksheets. Every write is an append.
type SheetsStore struct {
	srv           *sheets.Service
	spreadsheetID string
	listingTab    string
}

// NewSheetsStore authenticates with a service account key and makes sure
// the state worksheets exist. credentials is a key file path or the key
// JSON itself.
func NewSheetsStore(ctx context.Context, spreadsheetID, credentials string) (*SheetsStore, error) {
	data, err := credentialsJSON(credentials)
	if err != nil {
		return nil, err
	}
	conf, err := google.JWTConfigFromJSON(data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("sheets: parse credentials: %w", err)
	}
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}
	return newSheetsStore(ctx, srv, spreadsheetID)
}

// credentialsJSON returns inline key JSON as is and reads anything else as
// a file path.
func credentialsJSON(credentials string) ([]byte, error) {
	if trimmed := strings.TrimSpace(credentials); strings.HasPrefix(trimmed, "{") {
		return []byte(trimmed), nil
	}
	data, err := os.ReadFile(credentials)
	if err != nil {
		return nil, fmt.Errorf("sheets: read credentials: %w", err)
	}
	return data, nil
}

func newSheetsStore(ctx context.Context, srv *sheets.Service, spreadsheetID string) (*SheetsStore, error) {
	s := &SheetsStore{srv: srv, spreadsheetID: spreadsheetID}
	if err := s.ensureTabs(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// ensureTabs finds the listings worksheet and creates any missing state
// worksheets with their header rows.
func (s *SheetsStore) ensureTabs(ctx context.Context) error {
	ss, err := s.srv.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: open spreadsheet: %w", err)
	}
	if len(ss.Sheets) == 0 {
		return fmt.Errorf("sheets: spreadsheet %s has no worksheets", s.spreadsheetID)
	}
	s.listingTab = ss.Sheets[0].Properties.Title

	existing := make(map[string]bool, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		existing[sh.Properties.Title] = true
	}

	var requests []*sheets.Request
	var created []string
	for _, tab := range []string{seenTab, cursorTab, runLogTab} {
		if existing[tab] {
			continue
		}
		requests = append(requests, &sheets.Request{
			AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: tab, Hidden: true}},
		})
		created = append(created, tab)
	}
	if len(requests) > 0 {
		_, err := s.srv.Spreadsheets.BatchUpdate(s.spreadsheetID,
			&sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("sheets: create state worksheets: %w", err)
		}
	}

	headers := map[string][]string{seenTab: SeenHeader, cursorTab: CursorHeader, runLogTab: RunLogHeader}
	for _, tab := range created {
		if err := s.appendRows(ctx, tab, [][]string{headers[tab]}); err != nil {
			return err
		}
	}

	first, err := s.readRange(ctx, s.listingTab+"!A1:Q1")
	if err != nil {
		return err
	}
	if len(first) == 0 {
		return s.appendRows(ctx, s.listingTab, [][]string{ListingHeader})
	}
	return nil
}

// ReadAllSeen returns the _seen records followed by exact keys found in the
// listings worksheet, so listing rows without a seen record still count as
// seen.
func (s *SheetsStore) ReadAllSeen(ctx context.Context) ([]models.SeenRecord, error) {
	rows, err := s.readRange(ctx, seenTab+"!A2:F")
	if err != nil {
		return nil, err
	}
	records := make([]models.SeenRecord, 0, len(rows))
	for _, row := range rows {
		if rec, ok := ParseSeenRow(row); ok {
			records = append(records, rec)
		}
	}

	ids, err := s.readRange(ctx, s.listingTab+"!Q2:Q")
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(ids))
	for _, row := range ids {
		keys = append(keys, cell(row, 0))
	}
	return FoldListingKeys(records, keys), nil
}

func (s *SheetsStore) AppendSeen(ctx context.Context, records []models.SeenRecord) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, SeenRow(r))
	}
	return s.appendRows(ctx, seenTab, rows)
}

func (s *SheetsStore) AppendListings(ctx context.Context, listings []*models.ScoredListing) error {
	rows := make([][]string, 0, len(listings))
	for _, sl := range listings {
		rows = append(rows, ListingRow(sl))
	}
	return s.appendRows(ctx, s.listingTab, rows)
}

func (s *SheetsStore) ReadCursors(ctx context.Context) (map[string]time.Time, error) {
	rows, err := s.readRange(ctx, cursorTab+"!A2:B")
	if err != nil {
		return nil, err
	}
	cursors := make(map[string]time.Time)
	for _, row := range rows {
		MergeCursorRow(cursors, row)
	}
	return cursors, nil
}

func (s *SheetsStore) AppendCursors(ctx context.Context, cursors map[string]time.Time) error {
	return s.appendRows(ctx, cursorTab, CursorRows(cursors))
}

func (s *SheetsStore) AppendRunLog(ctx context.Context, report *models.RunReport) error {
	return s.appendRows(ctx, runLogTab, RunLogRows(report))
}

func (s *SheetsStore) Close() error { return nil }

func (s *SheetsStore) readRange(ctx context.Context, rng string) ([][]string, error) {
	resp, err := s.srv.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: read %s: %w", rng, err)
	}
	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, len(raw))
		for i, v := range raw {
			row[i] = fmt.Sprint(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// appendRows adds rows after the last row of tab. INSERT_ROWS keeps the
// append from overwriting anything below the table.
func (s *SheetsStore) appendRows(ctx context.Context, tab string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		values[i] = make([]interface{}, len(row))
		for j, v := range row {
			values[i][j] = v
		}
	}
	_, err := s.srv.Spreadsheets.Values.Append(s.spreadsheetID, tab+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets: append %d rows to %s: %w", len(rows), tab, err)
	}
	return nil
}
