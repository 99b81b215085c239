// Package pages adapts listing index sites that show many listings per page.
// Each page is rendered to markdown by Firecrawl and split into listings by a
// single model call; the extracted fields then go through rule-based
// normalization.
package pages

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sublet-scraper/config"
	"sublet-scraper/llm"
	"sublet-scraper/models"
	"sublet-scraper/scraper/web"
	"sublet-scraper/services"
	"sublet-scraper/utils"
)

// Target describes one index site.
type Target struct {
	Name        string
	Source      models.Source
	Label       string
	URLs        []string
	DefaultType models.ListingType
}

var (
	SpareRoom = Target{
		Name:   config.SourceSpareRoom,
		Source: models.SourceSpareRoom,
		Label:  "SpareRoom NYC Rooms & Sublets",
		URLs: []string{
			"https://www.spareroom.com/flatshare/index.cgi" +
				"?search_id=&flatshare_type=offered&published_by=private_landlord" +
				"&location_type=area&search_results=&editing=&" +
				"max_rent=2000&per=pcm&available_search=N&day_avail=01&mon_avail=07&year_avail=2026" +
				"&max_per_flat_default=&min_term=0&max_term=0&days_of_wk_available=7days" +
				"&showme_1bed=Y&showme_rooms=Y&showme_buddyup=Y" +
				"&where=New+York&search=Search",
		},
		DefaultType: models.TypeRoom,
	}

	Roomi = Target{
		Name:        config.SourceRoomi,
		Source:      models.SourceRoomi,
		Label:       "Roomi NYC Rooms & Sublets",
		URLs:        []string{"https://roomi.com/rooms-for-rent/new-york-ny"},
		DefaultType: models.TypeRoom,
	}

	ListingsProject = Target{
		Name:   config.SourceListingsProject,
		Source: models.SourceListingsProject,
		Label:  "Listings Project NYC Apartments",
		URLs: []string{
			"https://www.listingsproject.com/real-estate/new-york-city/sublets",
			"https://www.listingsproject.com/real-estate/new-york-city/rentals",
		},
	}
)

// Markdowner renders a page as markdown.
type Markdowner interface {
	Markdown(ctx context.Context, pageURL string) (string, error)
}

// Source is a multi-listing page adapter for one Target.
type Source struct {
	target     Target
	fetcher    Markdowner
	extractor  llm.Extractor
	normalizer *services.Normalizer
	retry      *utils.RetryConfig
	llmTimeout time.Duration
	logger     *utils.Logger
}

// New creates a page Source for target.
func New(target Target, cfg *config.Config, fetcher Markdowner, extractor llm.Extractor,
	normalizer *services.Normalizer, logger *utils.Logger) *Source {
	return &Source{
		target:     target,
		fetcher:    fetcher,
		extractor:  extractor,
		normalizer: normalizer,
		// a whole page yields a much longer reply than a single post
		llmTimeout: 3 * cfg.LLMTimeout,
		logger:     logger,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   3 * time.Second,
			Logger:      logger,
		},
	}
}

func (s *Source) Name() string { return s.target.Name }

// Fetch renders and extracts every page of the target. A page that fails is
// skipped; the source fails when no page could be read. Running out of
// scrape credits stops the remaining pages.
func (s *Source) Fetch(ctx context.Context) ([]*models.RawItem, error) {
	var items []*models.RawItem
	var errs []error
	succeeded := 0

	for _, pageURL := range s.target.URLs {
		got, err := s.fetchPage(ctx, pageURL)
		if err != nil {
			s.logger.Error("[%s] %s: %v", s.target.Name, pageURL, err)
			errs = append(errs, err)
			if isOutOfCredits(err) {
				s.logger.Error("[%s] scrape credits exhausted, skipping remaining pages", s.target.Name)
				break
			}
			continue
		}
		succeeded++
		items = append(items, got...)
	}

	if succeeded == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return items, nil
}

func (s *Source) fetchPage(ctx context.Context, pageURL string) ([]*models.RawItem, error) {
	s.logger.Info("[%s] Scraping %s", s.target.Name, pageURL)

	var markdown string
	err := s.retry.Do(ctx, s.target.Name+" page", func(ctx context.Context) error {
		var err error
		markdown, err = s.fetcher.Markdown(ctx, pageURL)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("[%s] Got %d chars of markdown", s.target.Name, len(markdown))

	ctx, cancel := context.WithTimeout(ctx, s.llmTimeout)
	defer cancel()
	list, err := s.extractor.ExtractPage(ctx, markdown, s.target.Label)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	items := make([]*models.RawItem, 0, len(list))
	for _, f := range list {
		if f.IsSearchRequest() {
			continue
		}
		items = append(items, s.toRawItem(f, pageURL, now))
	}
	s.logger.Info("[%s] Extracted %d listings from %s", s.target.Name, len(items), pageURL)
	return items, nil
}

func (s *Source) toRawItem(f llm.Fields, pageURL string, fetchedAt time.Time) *models.RawItem {
	item := f.ToRawItem(&models.RawItem{Source: s.target.Source, FetchedAt: fetchedAt})
	item.URL = resolveURL(pageURL, item.URL)
	if s.target.DefaultType != "" && models.ParseListingType(item.Type) == models.TypeOther &&
		services.DetectListingType(item.Title+" "+item.Description) == models.TypeOther {
		item.Type = string(s.target.DefaultType)
	}
	return item
}

func (s *Source) Normalize(_ context.Context, raw *models.RawItem) (*models.Listing, error) {
	return s.normalizer.Normalize(raw)
}

// resolveURL makes a listing link absolute. Listings without their own link
// point at the page they were found on.
func resolveURL(pageURL, link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return pageURL
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return link
	}
	ref, err := url.Parse(link)
	if err != nil {
		return pageURL
	}
	return base.ResolveReference(ref).String()
}

func isOutOfCredits(err error) bool {
	var se *web.StatusError
	return errors.As(err, &se) && se.Status == http.StatusPaymentRequired
}
