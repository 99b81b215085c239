package facebook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sublet-scraper/config"
	"sublet-scraper/llm"
	"sublet-scraper/models"
	"sublet-scraper/services"
	"sublet-scraper/utils"
)

const groupURL = "https://www.facebook.com/groups/nycsublets/"

const actorReply = `[
  {"postId": "p1", "url": "https://www.facebook.com/groups/nycsublets/posts/1",
   "text": "Subletting my furnished studio in Murray Hill July 1 - Aug 31, $1,800/month. DM me!",
   "time": "2026-06-02T14:00:00.000Z", "media": [{"url": "https://scontent.example/1.jpg"}]},
  {"postId": "p2", "text": "ISO a room in Brooklyn for the summer, budget 1200", "timestamp": 1780000000},
  {"postId": "p3", "text": "bump"}
]`

type stubExtractor struct{}

func (stubExtractor) ExtractPost(_ context.Context, text string) (llm.Fields, error) {
	if !strings.Contains(text, "Murray Hill") {
		return nil, errors.New("unexpected post")
	}
	return llm.Fields{
		"title":          "Furnished studio in Murray Hill",
		"price_monthly":  1800.0,
		"neighborhood":   "Murray Hill",
		"listing_type":   "studio",
		"is_furnished":   true,
		"available_from": "2026-07-01",
		"available_to":   "2026-08-31",
	}, nil
}

func (stubExtractor) ExtractPage(context.Context, string, string) ([]llm.Fields, error) {
	return nil, errors.New("not used")
}

func newTestSource(t *testing.T, handler http.HandlerFunc) *Source {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := utils.NewDiscardLogger()
	cfg := &config.Config{
		ApifyAPIToken:     "apify-test",
		FacebookGroupURLs: []string{groupURL},
		LLMTimeout:        time.Second,
	}
	assisted := services.NewAssistedNormalizer(stubExtractor{}, services.NewNormalizer(logger, 2026), cfg.LLMTimeout, logger)
	s := New(cfg, assisted, logger)
	s.baseURL = srv.URL
	s.now = func() time.Time { return time.Date(2026, time.June, 3, 8, 0, 0, 0, time.UTC) }
	return s
}

func TestFetchRunsActorPerGroup(t *testing.T) {
	var input map[string]any
	s := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/acts/apify~facebook-groups-scraper/run-sync-get-dataset-items" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer apify-test" {
			t.Errorf("missing token header")
		}
		json.NewDecoder(r.Body).Decode(&input)
		w.Write([]byte(actorReply))
	})

	items, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items: got %d, want 2 (short post skipped)", len(items))
	}
	if input["onlyPostsNewerThan"] != firstRunWindow {
		t.Errorf("first run window: got %v", input["onlyPostsNewerThan"])
	}

	first := items[0]
	if first.SourceListingID != "p1" || len(first.Images) != 1 {
		t.Errorf("first item: id %q images %v", first.SourceListingID, first.Images)
	}
	if !first.PostedAt.Equal(time.Date(2026, time.June, 2, 14, 0, 0, 0, time.UTC)) {
		t.Errorf("posted at: got %v", first.PostedAt)
	}
	if items[1].PostedAt.Unix() != 1780000000 {
		t.Errorf("epoch timestamp: got %v", items[1].PostedAt)
	}

	want := time.Date(2026, time.June, 3, 8, 0, 0, 0, time.UTC)
	if got := s.Cursors()[cursorPrefix+groupURL]; !got.Equal(want) {
		t.Errorf("cursor: got %v, want %v", got, want)
	}
}

func TestFetchUsesStoredCursor(t *testing.T) {
	var input map[string]any
	s := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&input)
		w.Write([]byte(`[]`))
	})
	s.SetCursors(map[string]time.Time{cursorPrefix + groupURL: time.Date(2026, time.June, 1, 6, 30, 0, 0, time.UTC)})

	if _, err := s.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if input["onlyPostsNewerThan"] != "2026-06-01T06:30:00Z" {
		t.Errorf("newer than: got %v", input["onlyPostsNewerThan"])
	}
}

func TestFetchFailureKeepsCursor(t *testing.T) {
	s := newTestSource(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "actor failed", http.StatusBadGateway)
	})
	old := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	s.SetCursors(map[string]time.Time{cursorPrefix + groupURL: old})

	if _, err := s.Fetch(context.Background()); err == nil {
		t.Fatal("expected an error when the only group fails")
	}
	if got := s.Cursors()[cursorPrefix+groupURL]; !got.Equal(old) {
		t.Errorf("cursor moved after failure: %v", got)
	}
}

func TestNormalizeUsesExtraction(t *testing.T) {
	s := newTestSource(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(actorReply))
	})
	items, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	l, err := s.Normalize(context.Background(), items[0])
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if l.Neighborhood != "Murray Hill" || l.Type != models.TypeStudio || !l.Furnished {
		t.Errorf("listing: %q %s %v", l.Neighborhood, l.Type, l.Furnished)
	}
	if l.PriceUSD == nil || *l.PriceUSD != 1800 {
		t.Errorf("price: got %v", l.PriceUSD)
	}
	if l.URL != "https://www.facebook.com/groups/nycsublets/posts/1" || !l.HasPhotos {
		t.Errorf("post metadata lost: url %q photos %v", l.URL, l.HasPhotos)
	}

	if _, err := s.Normalize(context.Background(), items[1]); !errors.Is(err, services.ErrNotAnOffer) {
		t.Errorf("search post: got %v, want ErrNotAnOffer", err)
	}
}
