package storage

import (
	"time"

	"sublet-scraper/models"
)

func sampleScored() *models.ScoredListing {
	price := 1800
	from := time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)
	return &models.ScoredListing{
		Listing: &models.Listing{
			Source:        models.SourceCraigslist,
			URL:           "https://newyork.craigslist.org/mnh/sub/d/1.html",
			Title:         "Cozy studio near Grand Central",
			Neighborhood:  "Midtown East",
			Borough:       models.BoroughManhattan,
			Tier:          models.Tier1,
			PriceUSD:      &price,
			Type:          models.TypeStudio,
			Furnished:     true,
			AvailableFrom: &from,
			DiscoveredAt:  time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC),
		},
		Fingerprint: models.Fingerprint{ExactKey: "abc123", FuzzySignature: "cozy studio grand central", Price: 1800, Tier: models.Tier1},
		Score: models.Score{
			Total:     8.6,
			Breakdown: map[string]float64{"location": 3, "price": 1.79, "type": 2, "timing": 1.5, "bonus": 0.3},
		},
	}
}

func sampleSeen(key string) models.SeenRecord {
	return models.SeenRecord{
		ExactKey:       key,
		FuzzySignature: "sig " + key,
		Price:          1800,
		Tier:           models.Tier1,
		Source:         models.SourceFacebook,
		FirstSeenAt:    time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC),
	}
}
