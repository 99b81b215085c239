package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"sublet-scraper/models"
	"sublet-scraper/utils"
)

const topRatedCount = 5

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate computes analytics over a run's accepted listings.
func (s *InsightService) Generate(accepted []*models.ScoredListing) *models.InsightReport {
	report := &models.InsightReport{
		ListingsByTier:   make(map[models.Tier]int),
		ListingsBySource: make(map[models.Source]int),
	}

	if len(accepted) == 0 {
		return report
	}

	report.TotalListings = len(accepted)

	var priced []*models.ScoredListing
	for _, sl := range accepted {
		report.ListingsByTier[sl.Listing.Tier]++
		report.ListingsBySource[sl.Listing.Source]++
		if sl.Listing.PriceUSD != nil {
			priced = append(priced, sl)
		}
	}

	// Price stats (only listings with a known price)
	if len(priced) > 0 {
		report.MinPrice = *priced[0].Listing.PriceUSD
		report.MaxPrice = *priced[0].Listing.PriceUSD
		report.CheapestListing = priced[0]
		total := 0
		for _, sl := range priced {
			p := *sl.Listing.PriceUSD
			total += p
			if p < report.MinPrice {
				report.MinPrice = p
				report.CheapestListing = sl
			}
			if p > report.MaxPrice {
				report.MaxPrice = p
			}
		}
		report.AveragePrice = round2(float64(total) / float64(len(priced)))
	}

	ranked := make([]*models.ScoredListing, len(accepted))
	copy(ranked, accepted)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score.Total > ranked[j].Score.Total
	})
	if len(ranked) > topRatedCount {
		ranked = ranked[:topRatedCount]
	}
	report.TopRated = ranked

	return report
}

// Print writes the run summary and listing insights to stdout.
func (s *InsightService) Print(run *models.RunReport, r *models.InsightReport) {
	sep := strings.Repeat("═", 64)
	thin := strings.Repeat("─", 64)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	if run.DryRun {
		fmt.Printf("\033[1;35m  📊 SUBLET RUN SUMMARY (dry run)\033[0m\n")
	} else {
		fmt.Printf("\033[1;35m  📊 SUBLET RUN SUMMARY\033[0m\n")
	}
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	// Per-source results
	fmt.Printf("\033[1;33m  Sources\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  %-18s %7s %5s %5s %7s %6s  %s\n", "source", "fetched", "new", "dup", "dropped", "failed", "status")
	for _, sr := range run.Sources {
		status := "\033[1;32mok\033[0m"
		if sr.Error != nil {
			status = "\033[1;31m" + truncate(sr.Error.Error(), 40) + "\033[0m"
		}
		fmt.Printf("  %-18s %7d %5d %5d %7d %6d  %s\n",
			truncate(sr.Source, 18), sr.ItemsFetched, sr.ItemsNew, sr.Duplicates, sr.Dropped, sr.Failed, status)
	}
	fmt.Printf("  Run %s: %d fetched, %d new, %d source failures, %s\n",
		run.RunID, run.TotalFetched(), len(run.Accepted), run.FailedSources(),
		run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	fmt.Println()

	// Overview
	fmt.Printf("\033[1;33m  New Listings\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Total new listings : \033[1m%d\033[0m\n", r.TotalListings)
	if run.SinkError != nil {
		fmt.Printf("  Written            : \033[1;31mFAILED (%v)\033[0m\n", run.SinkError)
	} else if !run.DryRun {
		fmt.Printf("  Written            : \033[1m%d\033[0m\n", run.Written)
	}
	fmt.Println()

	// Price Stats
	fmt.Printf("\033[1;33m  Price Statistics (per month)\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if r.AveragePrice > 0 {
		fmt.Printf("  Average price : \033[1;32m$%.2f\033[0m\n", r.AveragePrice)
		fmt.Printf("  Minimum price : \033[1;32m$%d\033[0m\n", r.MinPrice)
		fmt.Printf("  Maximum price : \033[1;32m$%d\033[0m\n", r.MaxPrice)
	} else {
		fmt.Printf("  No price data available\n")
	}
	fmt.Println()

	if r.CheapestListing != nil {
		l := r.CheapestListing.Listing
		fmt.Printf("\033[1;33m  Cheapest Listing\033[0m\n")
		fmt.Printf("  %s\n", thin)
		fmt.Printf("  %s\n", truncate(l.Title, 60))
		fmt.Printf("  Location : %s\n", displayNeighborhood(l))
		fmt.Printf("  Price    : \033[1;32m$%d/month\033[0m\n", *l.PriceUSD)
		fmt.Println()
	}

	// ── TOP RATED ────────────────────────────────────────────────────────
	fmt.Printf("\033[1;33m  Top %d Listings\033[0m\n", topRatedCount)
	fmt.Printf("  %s\n", thin)
	if len(r.TopRated) == 0 {
		fmt.Printf("  No new listings this run\n")
	} else {
		for i, sl := range r.TopRated {
			fmt.Printf("  \033[1m%d.\033[0m %-44s \033[1;32m%.1f ★\033[0m\n",
				i+1, truncate(sl.Listing.Title, 42), sl.Score.Total)
		}
	}
	fmt.Println()

	// Listings by Tier
	fmt.Printf("\033[1;33m  Listings by Neighborhood Tier\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.ListingsByTier) == 0 {
		fmt.Printf("  No location data\n")
	} else {
		for t := models.Tier1; t <= models.LowestTier; t++ {
			if cnt := r.ListingsByTier[t]; cnt > 0 {
				fmt.Printf("  Tier %d %s (%d)\n", t, strings.Repeat("█", cnt), cnt)
			}
		}
	}
	fmt.Println()

	// Listings by Source
	fmt.Printf("\033[1;33m  Listings by Source\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.ListingsBySource) == 0 {
		fmt.Printf("  No source data\n")
	} else {
		type srcCount struct {
			src   models.Source
			count int
		}
		var srcs []srcCount
		for src, cnt := range r.ListingsBySource {
			srcs = append(srcs, srcCount{src, cnt})
		}
		sort.Slice(srcs, func(i, j int) bool {
			if srcs[i].count != srcs[j].count {
				return srcs[i].count > srcs[j].count
			}
			return srcs[i].src < srcs[j].src
		})
		for _, sc := range srcs {
			bar := strings.Repeat("█", sc.count)
			fmt.Printf("  %-20s %s (%d)\n", sc.src, bar, sc.count)
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func displayNeighborhood(l *models.Listing) string {
	if l.Neighborhood == "" {
		return string(l.Borough)
	}
	return fmt.Sprintf("%s, %s", l.Neighborhood, l.Borough)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
