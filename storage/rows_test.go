package storage

import (
	"testing"
	"time"

	"sublet-scraper/models"
)

func TestListingRowLayout(t *testing.T) {
	row := ListingRow(sampleScored())
	if len(row) != len(ListingHeader) {
		t.Fatalf("row has %d columns, header has %d", len(row), len(ListingHeader))
	}
	checks := map[int]string{
		0:               StatusNew,
		1:               "8.6",
		2:               "1800",
		3:               "Midtown East",
		6:               "2026-07-01",
		7:               "",
		8:               "Yes",
		9:               "Craigslist",
		ListingIDColumn: "abc123",
	}
	for col, want := range checks {
		if row[col] != want {
			t.Errorf("column %s = %q, want %q", ListingHeader[col], row[col], want)
		}
	}
}

func TestListingRowUnknownPrice(t *testing.T) {
	sl := sampleScored()
	sl.Listing.PriceUSD = nil
	sl.Listing.Neighborhood = ""
	row := ListingRow(sl)
	if row[2] != "" {
		t.Errorf("price = %q, want empty", row[2])
	}
	if row[3] != "Unknown" {
		t.Errorf("neighborhood = %q, want Unknown", row[3])
	}
}

func TestFormatBreakdown(t *testing.T) {
	got := FormatBreakdown(sampleScored().Score)
	want := "location 3.00 | price 1.79 | type 2.00 | timing 1.50 | bonus 0.30"
	if got != want {
		t.Errorf("FormatBreakdown = %q, want %q", got, want)
	}
}

func TestSeenRowRoundTrip(t *testing.T) {
	rec := sampleSeen("k1")
	got, ok := ParseSeenRow(SeenRow(rec))
	if !ok {
		t.Fatal("expected row to parse")
	}
	if got.ExactKey != rec.ExactKey || got.FuzzySignature != rec.FuzzySignature ||
		got.Source != rec.Source || !got.FirstSeenAt.Equal(rec.FirstSeenAt) ||
		got.Price != rec.Price || got.Tier != rec.Tier {
		t.Errorf("round trip = %+v, want %+v", got, rec)
	}

	legacy, ok := ParseSeenRow([]string{"k2", "old sig", "craigslist", "2026-05-01T00:00:00Z"})
	if !ok || legacy.Price != 0 || legacy.Tier != 0 {
		t.Errorf("four-column row = %+v, want unknown price and tier", legacy)
	}

	if _, ok := ParseSeenRow(SeenHeader); ok {
		t.Error("header row should be rejected")
	}
	if _, ok := ParseSeenRow([]string{"", ""}); ok {
		t.Error("empty row should be rejected")
	}
}

func TestMergeCursorRowLatestWins(t *testing.T) {
	cursors := map[string]time.Time{}
	early := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)

	for _, row := range append(CursorRows(map[string]time.Time{"fb:a": early}), CursorRows(map[string]time.Time{"fb:a": late})...) {
		MergeCursorRow(cursors, row)
	}
	MergeCursorRow(cursors, CursorHeader)
	MergeCursorRow(cursors, []string{"fb:b", "not a time"})

	if len(cursors) != 1 || !cursors["fb:a"].Equal(late) {
		t.Errorf("cursors = %v, want only fb:a=%v", cursors, late)
	}
}

func TestBuildInsert(t *testing.T) {
	query, args := buildInsert("t (a, b)", "ON CONFLICT DO NOTHING", [][]interface{}{{1, "x"}, {2, "y"}})
	want := "INSERT INTO t (a, b) VALUES ($1,$2),($3,$4) ON CONFLICT DO NOTHING"
	if query != want {
		t.Errorf("query = %q, want %q", query, want)
	}
	if len(args) != 4 || args[2] != 2 || args[3] != "y" {
		t.Errorf("unexpected args %v", args)
	}
}

func TestFoldListingKeys(t *testing.T) {
	records := []models.SeenRecord{sampleSeen("a")}
	got := FoldListingKeys(records, []string{"a", "", "b", "b"})
	if len(got) != 2 || got[1].ExactKey != "b" || got[1].FuzzySignature != "" {
		t.Errorf("FoldListingKeys = %+v", got)
	}
}
