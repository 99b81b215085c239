package craigslist

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sublet-scraper/config"
	"sublet-scraper/models"
	"sublet-scraper/scraper/web"
	"sublet-scraper/services"
	"sublet-scraper/utils"
)

const defaultSearchURL = "https://newyork.craigslist.org/search/sub?max_price=2200"

// Source scrapes the static Craigslist sublet search results. Every field
// comes from the result card, so normalization is rule-based.
type Source struct {
	cfg        *config.Config
	logger     *utils.Logger
	client     *http.Client
	retry      *utils.RetryConfig
	normalizer *services.Normalizer
	searchURL  string
}

// New creates a Craigslist Source.
func New(cfg *config.Config, normalizer *services.Normalizer, logger *utils.Logger) *Source {
	return &Source{
		cfg:        cfg,
		logger:     logger,
		client:     web.NewClient(30 * time.Second),
		normalizer: normalizer,
		searchURL:  defaultSearchURL,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

func (s *Source) Name() string { return config.SourceCraigslist }

// Fetch downloads the search page and returns one item per result card.
func (s *Source) Fetch(ctx context.Context) ([]*models.RawItem, error) {
	s.logger.Info("[craigslist] Scraping %s", s.searchURL)

	var body []byte
	err := s.retry.Do(ctx, "craigslist search", func(ctx context.Context) error {
		var err error
		body, err = web.Get(ctx, s.client, s.searchURL)
		return err
	})
	if err != nil {
		return nil, err
	}

	items, err := parseResults(body, s.searchURL, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	s.logger.Info("[craigslist] Found %d listings", len(items))
	return items, nil
}

func (s *Source) Normalize(_ context.Context, raw *models.RawItem) (*models.Listing, error) {
	return s.normalizer.Normalize(raw)
}

// parseResults reads li.cl-static-search-result cards. Cards without a link
// are skipped; a card without a title is kept so normalization can count it.
func parseResults(body []byte, pageURL string, fetchedAt time.Time) ([]*models.RawItem, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse craigslist html: %w", err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse search url: %w", err)
	}

	var items []*models.RawItem
	doc.Find("li.cl-static-search-result").Each(func(_ int, card *goquery.Selection) {
		href, ok := card.Find("a").First().Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		link := href
		if ref, err := url.Parse(href); err == nil {
			link = base.ResolveReference(ref).String()
		}

		title := strings.TrimSpace(card.Find(".title").First().Text())
		if title == "" {
			title, _ = card.Attr("title")
		}

		items = append(items, &models.RawItem{
			Source:          models.SourceCraigslist,
			SourceListingID: postingID(link),
			URL:             link,
			Title:           title,
			Price:           strings.TrimSpace(card.Find(".price").First().Text()),
			Neighborhood:    strings.TrimSpace(card.Find(".location").First().Text()),
			Description:     title,
			FetchedAt:       fetchedAt,
		})
	})
	return items, nil
}

// postingID pulls the numeric id out of ".../7712345678.html".
func postingID(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	id := strings.TrimSuffix(path.Base(u.Path), ".html")
	for _, r := range id {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return id
}
