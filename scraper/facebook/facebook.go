package facebook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/araddon/dateparse"

	"sublet-scraper/config"
	"sublet-scraper/models"
	"sublet-scraper/scraper/web"
	"sublet-scraper/services"
	"sublet-scraper/utils"
)

const (
	defaultBaseURL = "https://api.apify.com/v2"
	actorID        = "apify~facebook-groups-scraper"
	cursorPrefix   = "facebook:"

	resultsLimit   = 50
	firstRunWindow = "1 day"
	minPostChars   = 20
)

// Source reads posts from Facebook groups through the Apify groups actor.
// Posts are free text, so normalization asks the language model first.
// Each group keeps a cursor; only posts newer than it are requested.
type Source struct {
	cfg        *config.Config
	logger     *utils.Logger
	client     *http.Client
	baseURL    string
	token      string
	groups     []string
	normalizer *services.AssistedNormalizer
	now        func() time.Time

	mu      sync.Mutex
	cursors map[string]time.Time
}

// New creates a Facebook Source for cfg.FacebookGroupURLs.
func New(cfg *config.Config, normalizer *services.AssistedNormalizer, logger *utils.Logger) *Source {
	return &Source{
		cfg:        cfg,
		logger:     logger,
		client:     web.NewClient(cfg.FetchTimeout),
		baseURL:    defaultBaseURL,
		token:      cfg.ApifyAPIToken,
		groups:     cfg.FacebookGroupURLs,
		normalizer: normalizer,
		now:        time.Now,
		cursors:    make(map[string]time.Time),
	}
}

func (s *Source) Name() string { return config.SourceFacebook }

func (s *Source) SetCursors(cursors map[string]time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.groups {
		if ts, ok := cursors[cursorPrefix+g]; ok {
			s.cursors[cursorPrefix+g] = ts
		}
	}
}

func (s *Source) Cursors() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]time.Time, len(s.cursors))
	for k, v := range s.cursors {
		out[k] = v
	}
	return out
}

// Fetch runs the actor once per group. A group that fails keeps its old
// cursor and is retried next run; the source fails only if every group did.
func (s *Source) Fetch(ctx context.Context) ([]*models.RawItem, error) {
	var items []*models.RawItem
	var errs []error

	for _, group := range s.groups {
		started := s.now().UTC()
		posts, err := s.runActor(ctx, group)
		if err != nil {
			s.logger.Error("[facebook] Failed to scrape group %s: %v", group, err)
			errs = append(errs, err)
			continue
		}

		s.logger.Info("[facebook] Got %d posts from %s", len(posts), group)
		if len(posts) >= resultsLimit {
			s.logger.Warn("[facebook] HIT LIMIT: %s returned %d/%d posts, some were likely missed",
				group, len(posts), resultsLimit)
		}

		for _, p := range posts {
			if item := toRawItem(p, started); item != nil {
				items = append(items, item)
			}
		}

		s.mu.Lock()
		s.cursors[cursorPrefix+group] = started
		s.mu.Unlock()
	}

	if len(s.groups) > 0 && len(errs) == len(s.groups) {
		return nil, fmt.Errorf("all %d groups failed: %w", len(errs), errors.Join(errs...))
	}
	return items, nil
}

// runActor calls run-sync-get-dataset-items, which runs the actor and
// returns its dataset in one request.
func (s *Source) runActor(ctx context.Context, group string) ([]map[string]any, error) {
	input := map[string]any{
		"startUrls":             []map[string]string{{"url": group}},
		"resultsLimit":          resultsLimit,
		"onlyPostsNewerThan":    s.newerThan(group),
		"maxComments":           0,
		"includeNestedComments": false,
	}

	endpoint := fmt.Sprintf("%s/acts/%s/run-sync-get-dataset-items", s.baseURL, url.PathEscape(actorID))
	headers := map[string]string{"Authorization": "Bearer " + s.token}

	var posts []map[string]any
	if err := web.PostJSON(ctx, s.client, endpoint, headers, input, &posts); err != nil {
		return nil, fmt.Errorf("apify actor %s: %w", actorID, err)
	}
	return posts, nil
}

func (s *Source) newerThan(group string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ts, ok := s.cursors[cursorPrefix+group]; ok && !ts.IsZero() {
		return ts.UTC().Format(time.RFC3339)
	}
	return firstRunWindow
}

func (s *Source) Normalize(ctx context.Context, raw *models.RawItem) (*models.Listing, error) {
	return s.normalizer.Normalize(ctx, raw)
}

// toRawItem maps one actor result. Posts too short to describe a listing
// return nil.
func toRawItem(post map[string]any, fetchedAt time.Time) *models.RawItem {
	text := firstString(post, "text", "message")
	if len(strings.TrimSpace(text)) < minPostChars {
		return nil
	}

	return &models.RawItem{
		Source:          models.SourceFacebook,
		SourceListingID: firstString(post, "postId", "id"),
		URL:             firstString(post, "url", "postUrl"),
		Text:            text,
		Images:          images(post),
		PostedAt:        postedAt(post["time"], post["timestamp"]),
		FetchedAt:       fetchedAt,
	}
}

func firstString(post map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := post[k].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// images reads either a plain "images" list or "media" objects with a url.
func images(post map[string]any) []string {
	var out []string
	if list, ok := post["images"].([]any); ok {
		for _, v := range list {
			if s, ok := v.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if media, ok := post["media"].([]any); ok {
		for _, m := range media {
			obj, ok := m.(map[string]any)
			if !ok {
				continue
			}
			if u, ok := obj["url"].(string); ok && u != "" {
				out = append(out, u)
			}
		}
	}
	return out
}

// postedAt accepts an ISO string or epoch seconds, whichever the actor sent.
func postedAt(values ...any) time.Time {
	for _, v := range values {
		switch t := v.(type) {
		case string:
			if t == "" {
				continue
			}
			if parsed, err := dateparse.ParseAny(t); err == nil {
				return parsed.UTC()
			}
		case float64:
			if t > 0 {
				return time.Unix(int64(t), 0).UTC()
			}
		}
	}
	return time.Time{}
}
