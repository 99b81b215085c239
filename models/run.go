package models

import "time"

// SourceRunResult tracks one source's outcome within a single run.
type SourceRunResult struct {
	Source       string
	ItemsFetched int
	ItemsNew     int
	Duplicates   int
	Dropped      int
	Failed       int
	Error        error
	Duration     time.Duration
}

// RunReport summarises a whole run. It is built by the pipeline and printed
// by the insight service; nothing in it is persisted except the per-source log rows.
type RunReport struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	DryRun     bool
	Sources    []*SourceRunResult
	Accepted   []*ScoredListing
	Written    int
	SinkError  error
}

// TotalFetched sums fetched items across sources.
func (r *RunReport) TotalFetched() int {
	n := 0
	for _, s := range r.Sources {
		n += s.ItemsFetched
	}
	return n
}

// FailedSources counts sources whose fetch failed.
func (r *RunReport) FailedSources() int {
	n := 0
	for _, s := range r.Sources {
		if s.Error != nil {
			n++
		}
	}
	return n
}

// InsightReport holds the computed analytics over a run's accepted listings.
type InsightReport struct {
	TotalListings    int
	AveragePrice     float64
	MinPrice         int
	MaxPrice         int
	CheapestListing  *ScoredListing
	TopRated         []*ScoredListing
	ListingsByTier   map[Tier]int
	ListingsBySource map[Source]int
}
