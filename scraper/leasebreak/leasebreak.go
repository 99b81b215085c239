package leasebreak

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
	detailURLFormat = "https://www.leasebreak.com/short-term-rental-details/%s/%s"
	perSearchLimit  = 50
	maxPageChars    = 6000
)

var (
	searchURLs = []string{
		"https://www.leasebreak.com/listings?borough=Manhattan&max_price=2200",
		"https://www.leasebreak.com/listings?borough=Brooklyn&max_price=2200",
		"https://www.leasebreak.com/listings?borough=Queens&max_price=2200",
	}

	// captures (listing id, slug)
	detailPattern = regexp.MustCompile(`/short-term-rental-details/(\d+)/([\w-]+)`)
)

// Source scrapes LeaseBreak. The borough search pages only carry links, so
// every listing's detail page is rendered and its text handed to the
// language model during normalization.
type Source struct {
	cfg        *config.Config
	logger     *utils.Logger
	renderer   browser.Renderer
	normalizer *services.AssistedNormalizer
	searchURLs []string
}

// New creates a LeaseBreak Source rendering pages with r.
func New(cfg *config.Config, r browser.Renderer, normalizer *services.AssistedNormalizer, logger *utils.Logger) *Source {
	return &Source{
		cfg:        cfg,
		logger:     logger,
		renderer:   r,
		normalizer: normalizer,
		searchURLs: searchURLs,
	}
}

func (s *Source) Name() string { return config.SourceLeaseBreak }

type detail struct {
	id  int
	url string
}

// Fetch collects the newest listing links per borough and renders each
// detail page. The source fails only when no search page could be loaded.
func (s *Source) Fetch(ctx context.Context) ([]*models.RawItem, error) {
	queued := utils.NewKeySet()
	var details []detail
	var errs []error

	for _, searchURL := range s.searchURLs {
		s.logger.Info("[leasebreak] Scraping search: %s", searchURL)
		found, err := s.searchPage(ctx, searchURL)
		if err != nil {
			s.logger.Error("[leasebreak] Failed to scrape %s: %v", searchURL, err)
			errs = append(errs, err)
			continue
		}
		for _, d := range found {
			if queued.Add(d.url) {
				details = append(details, d)
			}
		}
	}
	if len(s.searchURLs) > 0 && len(errs) == len(s.searchURLs) {
		return nil, fmt.Errorf("all %d search pages failed: %w", len(errs), errors.Join(errs...))
	}

	urls := make([]string, len(details))
	ids := make(map[string]int, len(details))
	for i, d := range details {
		urls[i] = d.url
		ids[d.url] = d.id
	}
	s.logger.Info("[leasebreak] Fetching %d listing pages", len(urls))

	pool := utils.NewWorkerPool(s.cfg.MaxConcurrency, s.cfg.RateLimitMs)
	pages := browser.RenderAll(ctx, s.renderer, urls, pool, s.logger)

	now := time.Now().UTC()
	items := make([]*models.RawItem, 0, len(pages))
	for _, p := range pages {
		text, err := browser.Readable(p.HTML, p.URL)
		if err != nil {
			s.logger.Warn("[leasebreak] No text on %s: %v", p.URL, err)
			continue
		}
		items = append(items, &models.RawItem{
			Source:          models.SourceLeaseBreak,
			SourceListingID: strconv.Itoa(ids[p.URL]),
			URL:             p.URL,
			Text:            clip(text, maxPageChars),
			FetchedAt:       now,
		})
	}
	return items, nil
}

// searchPage returns the borough's listing links, newest (highest id) first.
func (s *Source) searchPage(ctx context.Context, searchURL string) ([]detail, error) {
	html, err := s.renderer.HTML(ctx, searchURL)
	if err != nil {
		return nil, err
	}
	links, err := browser.HarvestLinks(html, searchURL, detailPattern)
	if err != nil {
		return nil, err
	}

	byID := make(map[int]detail)
	for _, l := range links {
		id, err := strconv.Atoi(l.Groups[0])
		if err != nil {
			continue
		}
		if _, ok := byID[id]; !ok {
			byID[id] = detail{id: id, url: fmt.Sprintf(detailURLFormat, l.Groups[0], l.Groups[1])}
		}
	}

	found := make([]detail, 0, len(byID))
	for _, d := range byID {
		found = append(found, d)
	}
	sort.Slice(found, func(i, j int) bool { return found[i].id > found[j].id })
	if len(found) > perSearchLimit {
		found = found[:perSearchLimit]
	}
	s.logger.Info("[leasebreak] Found %d unique listing URLs", len(found))
	return found, nil
}

func (s *Source) Normalize(ctx context.Context, raw *models.RawItem) (*models.Listing, error) {
	return s.normalizer.Normalize(ctx, raw)
}

func clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
