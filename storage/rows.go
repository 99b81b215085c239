package storage

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"sublet-scraper/config"
	"sublet-scraper/models"
)

const (
	dateLayout = "2006-01-02"

	// StatusNew is the only value the pipeline ever writes to the status
	// column; later edits belong to whoever reviews the sheet.
	StatusNew = "New"

	maxCellDescription = 300
)

// ListingHeader is the column layout of the listings table, A through Q.
// Column A is reserved for manual annotation after a row is written.
var ListingHeader = []string{
	"Status", "Rating", "Price", "Neighborhood", "Borough", "Type", "From", "To",
	"Furnished", "Source", "Link", "Title", "Description", "Breakdown", "Contact",
	"Scraped At", "Listing ID",
}

// ListingIDColumn is the zero-based index of the exact key column (Q).
const ListingIDColumn = 16

var (
	SeenHeader   = []string{"exact_key", "fuzzy_signature", "source", "first_seen", "price", "tier"}
	CursorHeader = []string{"key", "cursor"}
	RunLogHeader = []string{"run_id", "timestamp", "source", "fetched", "new", "duplicates", "dropped", "failed", "error"}
)

// ListingRow renders a scored listing as a table row.
func ListingRow(sl *models.ScoredListing) []string {
	l := sl.Listing
	price := ""
	if l.PriceUSD != nil {
		price = strconv.Itoa(*l.PriceUSD)
	}
	furnished := "No"
	if l.Furnished {
		furnished = "Yes"
	}
	neighborhood := l.Neighborhood
	if neighborhood == "" {
		neighborhood = "Unknown"
	}

	return []string{
		StatusNew,
		strconv.FormatFloat(sl.Score.Total, 'f', 1, 64),
		price,
		neighborhood,
		string(l.Borough),
		string(l.Type),
		formatDate(l.AvailableFrom),
		formatDate(l.AvailableTo),
		furnished,
		string(l.Source),
		l.URL,
		l.Title,
		clipCell(l.Description, maxCellDescription),
		FormatBreakdown(sl.Score),
		l.ContactInfo,
		l.DiscoveredAt.UTC().Format(time.RFC3339),
		sl.Fingerprint.ExactKey,
	}
}

// FormatBreakdown renders weighted contributions in category order,
// e.g. "location 3.00 | price 1.79 | type 2.00 | timing 1.50 | bonus 0.00".
func FormatBreakdown(s models.Score) string {
	parts := make([]string, 0, len(config.Categories))
	for _, c := range config.Categories {
		parts = append(parts, fmt.Sprintf("%s %.2f", c, s.Breakdown[c]))
	}
	return strings.Join(parts, " | ")
}

// SeenRow renders a seen record. Unknown price and tier are left blank.
func SeenRow(r models.SeenRecord) []string {
	price, tier := "", ""
	if r.Price > 0 {
		price = strconv.Itoa(r.Price)
	}
	if r.Tier > 0 {
		tier = strconv.Itoa(int(r.Tier))
	}
	return []string{r.ExactKey, r.FuzzySignature, string(r.Source), r.FirstSeenAt.UTC().Format(time.RFC3339), price, tier}
}

// ParseSeenRow reads a seen record back. Rows without an exact key or
// signature are rejected. Rows written before price and tier were stored
// read back with both unknown.
func ParseSeenRow(row []string) (models.SeenRecord, bool) {
	rec := models.SeenRecord{
		ExactKey:       cell(row, 0),
		FuzzySignature: cell(row, 1),
		Source:         models.Source(cell(row, 2)),
	}
	if rec.ExactKey == "" && rec.FuzzySignature == "" {
		return rec, false
	}
	if rec.ExactKey == SeenHeader[0] {
		return rec, false
	}
	if t, err := time.Parse(time.RFC3339, cell(row, 3)); err == nil {
		rec.FirstSeenAt = t
	}
	if n, err := strconv.Atoi(cell(row, 4)); err == nil && n > 0 {
		rec.Price = n
	}
	if n, err := strconv.Atoi(cell(row, 5)); err == nil && n > 0 {
		rec.Tier = models.Tier(n)
	}
	return rec, true
}

// FoldListingKeys appends a key-only seen record for every listing exact
// key that records does not already hold. Stores call it from ReadAllSeen so
// a listing written without its seen record still counts as seen.
func FoldListingKeys(records []models.SeenRecord, keys []string) []models.SeenRecord {
	known := make(map[string]bool, len(records))
	for _, r := range records {
		known[r.ExactKey] = true
	}
	for _, k := range keys {
		if k != "" && !known[k] {
			records = append(records, models.SeenRecord{ExactKey: k})
			known[k] = true
		}
	}
	return records
}

// CursorRows renders cursors sorted by key.
func CursorRows(cursors map[string]time.Time) [][]string {
	keys := make([]string, 0, len(cursors))
	for k := range cursors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, cursors[k].UTC().Format(time.RFC3339)})
	}
	return rows
}

// MergeCursorRow applies one stored cursor row; later rows override earlier ones.
func MergeCursorRow(cursors map[string]time.Time, row []string) {
	key := cell(row, 0)
	if key == "" || key == CursorHeader[0] {
		return
	}
	if t, err := time.Parse(time.RFC3339, cell(row, 1)); err == nil {
		cursors[key] = t
	}
}

// RunLogRows renders one row per source.
func RunLogRows(r *models.RunReport) [][]string {
	ts := r.StartedAt.UTC().Format(time.RFC3339)
	rows := make([][]string, 0, len(r.Sources))
	for _, s := range r.Sources {
		errText := ""
		if s.Error != nil {
			errText = clipCell(s.Error.Error(), 200)
		}
		rows = append(rows, []string{
			r.RunID, ts, s.Source,
			strconv.Itoa(s.ItemsFetched), strconv.Itoa(s.ItemsNew), strconv.Itoa(s.Duplicates),
			strconv.Itoa(s.Dropped), strconv.Itoa(s.Failed), errText,
		})
	}
	return rows
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func clipCell(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
