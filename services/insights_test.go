package services

import (
	"testing"

	"sublet-scraper/models"
	"sublet-scraper/utils"
)

func scored(title string, price int, tier models.Tier, src models.Source, total float64) *models.ScoredListing {
	l := &models.Listing{Title: title, Tier: tier, Source: src}
	if price > 0 {
		l.PriceUSD = &price
	}
	return &models.ScoredListing{Listing: l, Score: models.Score{Total: total}}
}

func sampleAccepted() []*models.ScoredListing {
	return []*models.ScoredListing{
		scored("Studio A", 1800, models.Tier1, models.SourceCraigslist, 8.4),
		scored("Room B", 950, models.Tier3, models.SourceFacebook, 6.1),
		scored("1BR C", 2100, models.Tier1, models.SourceCraigslist, 7.2),
		scored("Studio D", 0, models.Tier5, models.SourceLeaseBreak, 5.0),
		scored("Loft E", 1550, models.Tier2, models.SourceFacebook, 7.9),
		scored("Hotel F", 2500, models.Tier4, models.SourceFacebook, 3.3),
	}
}

func TestInsightCounts(t *testing.T) {
	svc := NewInsightService(utils.NewDiscardLogger())
	r := svc.Generate(sampleAccepted())
	if r.TotalListings != 6 {
		t.Errorf("TotalListings: got %d, want 6", r.TotalListings)
	}
	if r.ListingsBySource[models.SourceFacebook] != 3 {
		t.Errorf("Facebook count: got %d, want 3", r.ListingsBySource[models.SourceFacebook])
	}
	if r.ListingsByTier[models.Tier1] != 2 {
		t.Errorf("Tier1 count: got %d, want 2", r.ListingsByTier[models.Tier1])
	}
}

func TestInsightPrices(t *testing.T) {
	svc := NewInsightService(utils.NewDiscardLogger())
	r := svc.Generate(sampleAccepted())
	wantAvg := 1780.00
	if r.AveragePrice != wantAvg {
		t.Errorf("AveragePrice: got %.2f, want %.2f", r.AveragePrice, wantAvg)
	}
	if r.MinPrice != 950 {
		t.Errorf("MinPrice: got %d, want 950", r.MinPrice)
	}
	if r.MaxPrice != 2500 {
		t.Errorf("MaxPrice: got %d, want 2500", r.MaxPrice)
	}
	if r.CheapestListing == nil || r.CheapestListing.Listing.Title != "Room B" {
		t.Errorf("CheapestListing: got %+v, want Room B", r.CheapestListing)
	}
}

func TestInsightTopRated(t *testing.T) {
	svc := NewInsightService(utils.NewDiscardLogger())
	r := svc.Generate(sampleAccepted())
	if len(r.TopRated) != topRatedCount {
		t.Fatalf("TopRated len: got %d, want %d", len(r.TopRated), topRatedCount)
	}
	if r.TopRated[0].Listing.Title != "Studio A" {
		t.Errorf("TopRated[0]: got %q, want Studio A", r.TopRated[0].Listing.Title)
	}
	for i := 1; i < len(r.TopRated); i++ {
		if r.TopRated[i].Score.Total > r.TopRated[i-1].Score.Total {
			t.Errorf("TopRated not sorted at %d", i)
		}
	}
}

func TestInsightEmptyInput(t *testing.T) {
	svc := NewInsightService(utils.NewDiscardLogger())
	r := svc.Generate(nil)
	if r.TotalListings != 0 {
		t.Errorf("expected 0 total listings for empty input")
	}
	if r.CheapestListing != nil {
		t.Errorf("expected no cheapest listing for empty input")
	}
}
