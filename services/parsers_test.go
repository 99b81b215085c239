package services

import (
	"testing"
	"time"

	"sublet-scraper/models"
)

func intPtr(n int) *int { return &n }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want *int
	}{
		{"$1,800/mo", intPtr(1800)},
		{"$1800", intPtr(1800)},
		{"1.8k", intPtr(1800)},
		{"$2K per month", intPtr(2000)},
		{"$450/week", intPtr(1948)},
		{"$65/night", intPtr(1950)},
		{"$24,000/year", intPtr(2000)},
		{"$20,000", nil},
		{"$50/mo", nil},
		{"call for price", nil},
		{"", nil},
	}
	for _, tt := range tests {
		got := ParsePrice(tt.in)
		switch {
		case got == nil && tt.want == nil:
		case got == nil || tt.want == nil:
			t.Errorf("ParsePrice(%q) = %v, want %v", tt.in, got, tt.want)
		case *got != *tt.want:
			t.Errorf("ParsePrice(%q) = %d, want %d", tt.in, *got, *tt.want)
		}
	}
}

func TestExtractPriceFromText(t *testing.T) {
	got := ExtractPriceFromText("Lovely room in Bushwick, 3 min to the L. Rent is $1,250/month utilities included.")
	if got == nil || *got != 1250 {
		t.Errorf("ExtractPriceFromText = %v, want 1250", got)
	}
	if got := ExtractPriceFromText("no numbers here"); got != nil {
		t.Errorf("ExtractPriceFromText = %d, want nil", *got)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want *time.Time
	}{
		{"2026-07-01", ptrTime(date(2026, time.July, 1))},
		{"7/15", ptrTime(date(2026, time.July, 15))},
		{"8/31/26", ptrTime(date(2026, time.August, 31))},
		{"July 4th", ptrTime(date(2026, time.July, 4))},
		{"1st of August", ptrTime(date(2026, time.August, 1))},
		{"Sept. 30", ptrTime(date(2026, time.September, 30))},
		{"2/30", nil},
		{"null", nil},
		{"whenever", nil},
	}
	for _, tt := range tests {
		got := ParseDate(tt.in, 2026)
		switch {
		case got == nil && tt.want == nil:
		case got == nil || tt.want == nil:
			t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
		case !got.Equal(*tt.want):
			t.Errorf("ParseDate(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func ptrTime(t time.Time) *time.Time { return &t }

func TestExtractDateRange(t *testing.T) {
	tests := []struct {
		in       string
		from, to time.Time
	}{
		{"July-Sept", date(2026, time.July, 1), date(2026, time.September, 30)},
		{"available July 1 - August 31", date(2026, time.July, 1), date(2026, time.August, 31)},
		{"from 7/1 through 9/15", date(2026, time.July, 1), date(2026, time.September, 15)},
		{"Nov to Feb", date(2026, time.November, 1), date(2027, time.February, 28)},
	}
	for _, tt := range tests {
		from, to := ExtractDateRange(tt.in, 2026)
		if from == nil || to == nil {
			t.Errorf("ExtractDateRange(%q) = %v, %v", tt.in, from, to)
			continue
		}
		if !from.Equal(tt.from) || !to.Equal(tt.to) {
			t.Errorf("ExtractDateRange(%q) = %s..%s, want %s..%s", tt.in, from, to, tt.from, tt.to)
		}
	}

	if from, to := ExtractDateRange("great light, quiet block", 2026); from != nil || to != nil {
		t.Errorf("expected no range, got %v..%v", from, to)
	}
}

func TestMatchNeighborhood(t *testing.T) {
	tests := []struct {
		in      string
		name    string
		borough models.Borough
		tier    models.Tier
	}{
		{"Midtown East", "Midtown East", models.BoroughManhattan, models.Tier1},
		{"steps from Grand Central!", "Midtown East", models.BoroughManhattan, models.Tier1},
		{"Sunny room in Clinton Hill", "Clinton Hill", models.BoroughBrooklyn, models.Tier5},
		{"huge studio, East Village", "East Village", models.BoroughManhattan, models.Tier2},
		{"UWS 1br", "Upper West Side", models.BoroughManhattan, models.Tier4},
		{"somewhere in Brooklyn", "", models.BoroughBrooklyn, models.LowestTier},
		{"Timbuktu", "", models.BoroughUnknown, models.LowestTier},
		{"", "", models.BoroughUnknown, models.LowestTier},
	}
	for _, tt := range tests {
		got := MatchNeighborhood(tt.in)
		if got.Neighborhood != tt.name || got.Borough != tt.borough || got.Tier != tt.tier {
			t.Errorf("MatchNeighborhood(%q) = %+v, want %s/%s/%d", tt.in, got, tt.name, tt.borough, tt.tier)
		}
	}
}

func TestExtractParenthetical(t *testing.T) {
	if got := ExtractParenthetical("Summer sublet studio (Murray Hill)"); got != "Murray Hill" {
		t.Errorf("got %q, want Murray Hill", got)
	}
	if got := ExtractParenthetical("no location"); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestDetectListingType(t *testing.T) {
	tests := []struct {
		in   string
		want models.ListingType
	}{
		{"Cozy studio near Grand Central", models.TypeStudio},
		{"Sunny 1BR Midtown", models.TypeOneBedroom},
		{"one bedroom apartment", models.TypeOneBedroom},
		{"Private room in 3br apartment", models.TypeRoom},
		{"looking for a roommate", models.TypeRoom},
		{"Extended stay hotel suites", models.TypeHotel},
		{"2br duplex", models.TypeOther},
	}
	for _, tt := range tests {
		if got := DetectListingType(tt.in); got != tt.want {
			t.Errorf("DetectListingType(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestDetectFurnished(t *testing.T) {
	tests := []struct {
		in          string
		val, known bool
	}{
		{"fully furnished", true, true},
		{"Unfurnished, bring your bed", false, true},
		{"great light", false, false},
	}
	for _, tt := range tests {
		val, known := DetectFurnished(tt.in)
		if val != tt.val || known != tt.known {
			t.Errorf("DetectFurnished(%q) = %v,%v want %v,%v", tt.in, val, known, tt.val, tt.known)
		}
	}
}

func TestIsSearchRequest(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"ISO: studio in Manhattan for July", true},
		{"Looking for a summer sublet near Grand Central", true},
		{"Subletting my studio, visor included", false},
		{"Furnished room available July 1", false},
	}
	for _, tt := range tests {
		if got := IsSearchRequest(tt.in); got != tt.want {
			t.Errorf("IsSearchRequest(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
