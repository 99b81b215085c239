package models

import "time"

// RawItem holds unprocessed data for one listing exactly as a source adapter
// produced it. Structured sources fill the individual fields; free-text sources
// fill Text and leave the rest for the extraction step.
type RawItem struct {
	Source          Source
	SourceListingID string
	URL             string
	Title           string
	Price           string
	Neighborhood    string
	Address         string
	Type            string
	Furnished       string
	Dates           string
	AvailableFrom   string
	AvailableTo     string
	Description     string
	Contact         string
	Images          []string
	Text            string
	PostedAt        time.Time
	FetchedAt       time.Time
}

// Listing is the canonical, validated record produced by normalization.
// It is never mutated after creation; scores and fingerprints are derived values.
type Listing struct {
	Source          Source
	SourceListingID string
	URL             string

	Title        string
	Neighborhood string
	Borough      Borough
	Tier         Tier
	Address      string
	PriceUSD     *int
	PriceRaw     string
	Type         ListingType
	Furnished    bool
	HasPhotos    bool
	ContactInfo  string

	AvailableFrom *time.Time
	AvailableTo   *time.Time
	DiscoveredAt  time.Time

	Description string
	RawText     string
}

// ContactInfoPresent reports whether the listing carries any way to reach the poster.
func (l *Listing) ContactInfoPresent() bool {
	return l.ContactInfo != ""
}

// Fingerprint is the dedup identity of a listing.
// Price and Tier gate fuzzy matching; Price is the monthly rent in dollars,
// zero when unknown.
type Fingerprint struct {
	ExactKey       string
	FuzzySignature string
	Price          int
	Tier           Tier
}

// SeenRecord is a durable marker that a fingerprint has already been emitted.
type SeenRecord struct {
	ExactKey       string
	FuzzySignature string
	Price          int
	Tier           Tier
	Source         Source
	FirstSeenAt    time.Time
}

// Score is the composite desirability of a listing.
// Breakdown maps each category to its weighted contribution to Total;
// SubScores holds the unweighted 0-10 category scores.
type Score struct {
	Total     float64
	Breakdown map[string]float64
	SubScores map[string]float64
}

// ScoredListing is a new listing accepted by a run, ready for the sink.
type ScoredListing struct {
	Listing     *Listing
	Fingerprint Fingerprint
	Score       Score
}
