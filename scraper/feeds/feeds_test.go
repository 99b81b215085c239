package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sublet-scraper/config"
	"sublet-scraper/models"
	"sublet-scraper/services"
	"sublet-scraper/utils"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>NYC sublets</title>
<item>
  <title>Furnished 1BR sublet in Astoria, July 1 - August 31</title>
  <link>https://classifieds.example.com/ads/101</link>
  <guid>ad-101</guid>
  <pubDate>Tue, 02 Jun 2026 15:04:05 GMT</pubDate>
  <description><![CDATA[<p>Bright one bedroom, <b>$1,700/mo</b> all utilities included.</p>]]></description>
  <enclosure url="https://classifieds.example.com/img/101.jpg" type="image/jpeg" length="1000"/>
</item>
<item>
  <title>Room in Crown Heights</title>
  <link>https://classifieds.example.com/ads/99</link>
  <guid>ad-99</guid>
  <pubDate>Mon, 01 Jun 2026 09:00:00 GMT</pubDate>
  <description>$1,100 a month, shared kitchen</description>
</item>
</channel></rss>`

func newTestSource(t *testing.T, urls ...string) *Source {
	t.Helper()
	logger := utils.NewDiscardLogger()
	cfg := &config.Config{MaxRetries: 1, FeedURLs: urls}
	return New(cfg, services.NewNormalizer(logger, 2026), logger)
}

func serveRSS(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssFixture))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchFeedItems(t *testing.T) {
	srv := serveRSS(t)
	s := newTestSource(t, srv.URL+"/rss")

	items, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items: got %d, want 2", len(items))
	}

	first := items[0]
	if first.Source != models.SourceClassifieds || first.SourceListingID != "ad-101" {
		t.Errorf("identity: got %s %q", first.Source, first.SourceListingID)
	}
	if first.Description != "Bright one bedroom, $1,700/mo all utilities included." {
		t.Errorf("description not stripped: %q", first.Description)
	}
	if len(first.Images) != 1 {
		t.Errorf("images: got %v", first.Images)
	}

	want := time.Date(2026, time.June, 2, 15, 4, 5, 0, time.UTC)
	if got := s.Cursors()["feeds:"+srv.URL+"/rss"]; !got.Equal(want) {
		t.Errorf("cursor: got %v, want %v", got, want)
	}

	l, err := s.Normalize(context.Background(), first)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if l.PriceUSD == nil || *l.PriceUSD != 1700 {
		t.Errorf("price: got %v", l.PriceUSD)
	}
	if l.Type != models.TypeOneBedroom || !l.Furnished || !l.HasPhotos {
		t.Errorf("type/furnished/photos: got %s %v %v", l.Type, l.Furnished, l.HasPhotos)
	}
}

func TestFetchSkipsEntriesOlderThanCursor(t *testing.T) {
	srv := serveRSS(t)
	feedURL := srv.URL + "/rss"
	s := newTestSource(t, feedURL)
	s.SetCursors(map[string]time.Time{
		"feeds:" + feedURL:       time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC),
		"facebook:someone-else": time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC),
	})

	items, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 1 || items[0].SourceListingID != "ad-101" {
		t.Fatalf("expected only the newer entry, got %d items", len(items))
	}
	if _, ok := s.Cursors()["facebook:someone-else"]; ok {
		t.Error("cursors of other sources must not be adopted")
	}
}

func TestFetchFailsOnlyWhenAllFeedsFail(t *testing.T) {
	srv := serveRSS(t)
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer broken.Close()

	s := newTestSource(t, broken.URL+"/rss", srv.URL+"/rss")
	items, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("one good feed should be enough: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("items: got %d, want 2", len(items))
	}

	s = newTestSource(t, broken.URL+"/rss")
	if _, err := s.Fetch(context.Background()); err == nil {
		t.Error("expected an error when every feed fails")
	}
}
