package furnishedfinder

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"sublet-scraper/config"
	"sublet-scraper/models"
	"sublet-scraper/scraper/browser"
	"sublet-scraper/services"
	"sublet-scraper/utils"
)

const (
	propertyURLFormat = "https://www.furnishedfinder.com/property/%d_1"
	maxSearchPages    = 3
	perBoroughLimit   = 50
	maxPageChars      = 6000
	maxPrice          = 2300
)

var (
	boroughPaths = []string{"us--ny--manhattan", "us--ny--brooklyn", "us--ny--queens"}

	propertyPattern = regexp.MustCompile(`/property/(\d+)_\d+`)
)

// Source scrapes Furnished Finder. Search results lazy-load a handful of
// properties per page, so a few pages are walked per borough before the
// property pages are rendered and passed to the language model.
type Source struct {
	cfg        *config.Config
	logger     *utils.Logger
	renderer   browser.Renderer
	normalizer *services.AssistedNormalizer
	searchURLs []string
}

// New creates a Furnished Finder Source. Search URLs carry the configured
// target window as move-in and move-out dates.
func New(cfg *config.Config, r browser.Renderer, normalizer *services.AssistedNormalizer, logger *utils.Logger) *Source {
	return &Source{
		cfg:        cfg,
		logger:     logger,
		renderer:   r,
		normalizer: normalizer,
		searchURLs: searchURLs(cfg.TargetStart, cfg.TargetEnd),
	}
}

func searchURLs(start, end time.Time) []string {
	urls := make([]string, len(boroughPaths))
	for i, p := range boroughPaths {
		urls[i] = fmt.Sprintf("https://www.furnishedfinder.com/housing/%s?max-price=%d&move-in-date=%s&move-out-date=%s",
			p, maxPrice, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	return urls
}

func (s *Source) Name() string { return config.SourceFurnishedFinder }

// Fetch walks every borough and renders the newest property pages. The
// source fails only when no borough could be searched.
func (s *Source) Fetch(ctx context.Context) ([]*models.RawItem, error) {
	queued := utils.NewKeySet()
	var ids []int
	var errs []error

	for _, searchURL := range s.searchURLs {
		found, err := s.searchBorough(ctx, searchURL)
		if err != nil {
			s.logger.Error("[furnishedfinder] Failed to scrape %s: %v", searchURL, err)
			errs = append(errs, err)
			continue
		}
		for _, id := range found {
			if queued.Add(strconv.Itoa(id)) {
				ids = append(ids, id)
			}
		}
	}
	if len(s.searchURLs) > 0 && len(errs) == len(s.searchURLs) {
		return nil, fmt.Errorf("all %d boroughs failed: %w", len(errs), errors.Join(errs...))
	}

	urls := make([]string, len(ids))
	for i, id := range ids {
		urls[i] = fmt.Sprintf(propertyURLFormat, id)
	}
	s.logger.Info("[furnishedfinder] Fetching %d property pages", len(urls))

	pool := utils.NewWorkerPool(s.cfg.MaxConcurrency, s.cfg.RateLimitMs)
	pages := browser.RenderAll(ctx, s.renderer, urls, pool, s.logger)

	now := time.Now().UTC()
	items := make([]*models.RawItem, 0, len(pages))
	for _, p := range pages {
		text, err := browser.Readable(p.HTML, p.URL)
		if err != nil {
			s.logger.Warn("[furnishedfinder] No text on %s: %v", p.URL, err)
			continue
		}
		items = append(items, &models.RawItem{
			Source:          models.SourceFurnishedFinder,
			SourceListingID: propertyID(p.URL),
			URL:             p.URL,
			// every property on the site is let furnished
			Furnished: "true",
			Text:      clip(text, maxPageChars),
			FetchedAt: now,
		})
	}
	return items, nil
}

// searchBorough paginates one borough until a page adds nothing new and
// returns property ids, newest first.
func (s *Source) searchBorough(ctx context.Context, searchURL string) ([]int, error) {
	s.logger.Info("[furnishedfinder] Scraping search: %s", searchURL)
	seen := make(map[int]bool)
	var lastErr error

	for page := 1; page <= maxSearchPages; page++ {
		pageURL := searchURL
		if page > 1 {
			pageURL = fmt.Sprintf("%s&page=%d", searchURL, page)
		}

		html, err := s.renderer.HTML(ctx, pageURL)
		if err != nil {
			s.logger.Warn("[furnishedfinder] Search page %d failed: %v", page, err)
			lastErr = err
			continue
		}
		links, err := browser.HarvestLinks(html, pageURL, propertyPattern)
		if err != nil {
			lastErr = err
			continue
		}

		added := 0
		for _, l := range links {
			id, err := strconv.Atoi(l.Groups[0])
			if err != nil || seen[id] {
				continue
			}
			seen[id] = true
			added++
		}
		s.logger.Info("[furnishedfinder] Page %d: %d new ids (total %d)", page, added, len(seen))
		if added == 0 {
			break
		}
	}

	if len(seen) == 0 && lastErr != nil {
		return nil, lastErr
	}

	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ids)))
	if len(ids) > perBoroughLimit {
		ids = ids[:perBoroughLimit]
	}
	return ids, nil
}

func (s *Source) Normalize(ctx context.Context, raw *models.RawItem) (*models.Listing, error) {
	return s.normalizer.Normalize(ctx, raw)
}

func propertyID(pageURL string) string {
	if m := propertyPattern.FindStringSubmatch(pageURL); m != nil {
		return m[1]
	}
	return ""
}

func clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
