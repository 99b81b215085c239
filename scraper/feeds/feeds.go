package feeds

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"

	"sublet-scraper/config"
	"sublet-scraper/models"
	"sublet-scraper/scraper/web"
	"sublet-scraper/services"
	"sublet-scraper/utils"
)

const cursorPrefix = "feeds:"

// Source polls classifieds RSS/Atom feeds. Each feed keeps its own cursor,
// the publish time of the newest item seen, so reruns only return newer
// entries.
type Source struct {
	cfg        *config.Config
	logger     *utils.Logger
	client     *http.Client
	retry      *utils.RetryConfig
	normalizer *services.Normalizer
	feedURLs   []string

	mu      sync.Mutex
	cursors map[string]time.Time
}

// New creates a feeds Source for cfg.FeedURLs.
func New(cfg *config.Config, normalizer *services.Normalizer, logger *utils.Logger) *Source {
	return &Source{
		cfg:        cfg,
		logger:     logger,
		client:     web.NewClient(30 * time.Second),
		normalizer: normalizer,
		feedURLs:   cfg.FeedURLs,
		cursors:    make(map[string]time.Time),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

func (s *Source) Name() string { return config.SourceFeeds }

// SetCursors keeps the cursors that belong to this source's feeds.
func (s *Source) SetCursors(cursors map[string]time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.feedURLs {
		if ts, ok := cursors[cursorPrefix+u]; ok {
			s.cursors[cursorPrefix+u] = ts
		}
	}
}

// Cursors returns the newest publish time per feed.
func (s *Source) Cursors() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]time.Time, len(s.cursors))
	for k, v := range s.cursors {
		out[k] = v
	}
	return out
}

// Fetch polls every feed. One broken feed is logged and skipped; the source
// fails only when no feed could be read.
func (s *Source) Fetch(ctx context.Context) ([]*models.RawItem, error) {
	var items []*models.RawItem
	var errs []error

	for _, feedURL := range s.feedURLs {
		got, err := s.fetchFeed(ctx, feedURL)
		if err != nil {
			s.logger.Warn("[feeds] %s: %v", feedURL, err)
			errs = append(errs, err)
			continue
		}
		items = append(items, got...)
	}

	if len(s.feedURLs) > 0 && len(errs) == len(s.feedURLs) {
		return nil, fmt.Errorf("all %d feeds failed: %w", len(errs), errors.Join(errs...))
	}
	return items, nil
}

func (s *Source) fetchFeed(ctx context.Context, feedURL string) ([]*models.RawItem, error) {
	var feed *gofeed.Feed
	err := s.retry.Do(ctx, "feed "+feedURL, func(ctx context.Context) error {
		parser := gofeed.NewParser()
		parser.Client = s.client
		parser.UserAgent = web.UserAgent
		var err error
		feed, err = parser.ParseURLWithContext(feedURL, ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	key := cursorPrefix + feedURL
	s.mu.Lock()
	since := s.cursors[key]
	s.mu.Unlock()

	now := time.Now().UTC()
	newest := since
	var items []*models.RawItem
	for _, it := range feed.Items {
		published := publishedAt(it)
		if !since.IsZero() && !published.IsZero() && !published.After(since) {
			continue
		}
		if published.After(newest) {
			newest = published
		}
		items = append(items, toRawItem(it, published, now))
	}

	if newest.After(since) {
		s.mu.Lock()
		s.cursors[key] = newest
		s.mu.Unlock()
	}
	s.logger.Info("[feeds] %s: %d of %d entries are new", feedURL, len(items), len(feed.Items))
	return items, nil
}

func (s *Source) Normalize(_ context.Context, raw *models.RawItem) (*models.Listing, error) {
	return s.normalizer.Normalize(raw)
}

func toRawItem(it *gofeed.Item, published, fetchedAt time.Time) *models.RawItem {
	summary := it.Description
	if summary == "" {
		summary = it.Content
	}
	summary = stripTags(summary)

	var images []string
	if it.Image != nil && it.Image.URL != "" {
		images = append(images, it.Image.URL)
	}
	for _, enc := range it.Enclosures {
		if strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			images = append(images, enc.URL)
		}
	}

	id := it.GUID
	if id == "" {
		id = it.Link
	}

	return &models.RawItem{
		Source:          models.SourceClassifieds,
		SourceListingID: id,
		URL:             it.Link,
		Title:           it.Title,
		Description:     summary,
		Text:            strings.TrimSpace(it.Title + "\n" + summary),
		Images:          images,
		PostedAt:        published,
		FetchedAt:       fetchedAt,
	}
}

// publishedAt prefers the parsed publish time, then the updated time, then
// a loose parse of whatever date string the feed carried.
func publishedAt(it *gofeed.Item) time.Time {
	switch {
	case it.PublishedParsed != nil:
		return it.PublishedParsed.UTC()
	case it.UpdatedParsed != nil:
		return it.UpdatedParsed.UTC()
	}
	for _, raw := range []string{it.Published, it.Updated} {
		if raw == "" {
			continue
		}
		if t, err := dateparse.ParseAny(raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// stripTags drops markup and entities from feed summaries, which are often HTML.
func stripTags(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<div>" + s + "</div>"))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	doc.Find("br, p, li").Each(func(_ int, sel *goquery.Selection) {
		sel.BeforeHtml(" ")
	})
	return strings.Join(strings.Fields(doc.Text()), " ")
}
