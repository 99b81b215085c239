package craigslist

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sublet-scraper/config"
	"sublet-scraper/models"
	"sublet-scraper/services"
	"sublet-scraper/utils"
)

const searchFixture = `<html><body><ol>
<li class="cl-static-search-result" title="Sunny furnished studio July-August (East Village)">
  <a href="https://newyork.craigslist.org/mnh/sub/d/new-york-sunny-studio/7712345678.html">
    <div class="title">Sunny furnished studio July-August (East Village)</div>
    <div class="details"><div class="price">$1,650</div><div class="location">East Village</div></div>
  </a>
</li>
<li class="cl-static-search-result" title="Room in Bushwick loft">
  <a href="/brk/sub/d/brooklyn-room-in-loft/7712349999.html">
    <div class="title">Room in Bushwick loft</div>
    <div class="details"><div class="price">$950</div><div class="location">Bushwick</div></div>
  </a>
</li>
<li class="cl-static-search-result"><div class="title">No link here</div></li>
</ol></body></html>`

func newTestSource(t *testing.T, handler http.HandlerFunc) *Source {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := utils.NewDiscardLogger()
	s := New(&config.Config{MaxRetries: 1}, services.NewNormalizer(logger, 2026), logger)
	s.searchURL = srv.URL + "/search/sub?max_price=2200"
	return s
}

func TestFetchParsesResultCards(t *testing.T) {
	s := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("request sent without a User-Agent")
		}
		w.Write([]byte(searchFixture))
	})

	items, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items: got %d, want 2", len(items))
	}

	first := items[0]
	if first.Source != models.SourceCraigslist {
		t.Errorf("source: got %q", first.Source)
	}
	if first.SourceListingID != "7712345678" {
		t.Errorf("listing id: got %q", first.SourceListingID)
	}
	if first.Price != "$1,650" || first.Neighborhood != "East Village" {
		t.Errorf("price/location: got %q / %q", first.Price, first.Neighborhood)
	}
	if got := items[1].URL; !strings.HasSuffix(got, "/brk/sub/d/brooklyn-room-in-loft/7712349999.html") || !strings.HasPrefix(got, "http://") {
		t.Errorf("relative link not resolved: %s", got)
	}
}

func TestFetchHTTPErrorFailsSource(t *testing.T) {
	s := newTestSource(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	})
	if _, err := s.Fetch(context.Background()); err == nil {
		t.Fatal("expected an error for HTTP 403")
	}
}

func TestNormalizeResultCard(t *testing.T) {
	s := newTestSource(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(searchFixture))
	})
	items, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	l, err := s.Normalize(context.Background(), items[0])
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if l.PriceUSD == nil || *l.PriceUSD != 1650 {
		t.Errorf("price: got %v", l.PriceUSD)
	}
	if l.Neighborhood != "East Village" || l.Tier != models.Tier2 {
		t.Errorf("location: got %q tier %d", l.Neighborhood, l.Tier)
	}
	if l.Type != models.TypeStudio || !l.Furnished {
		t.Errorf("type/furnished: got %s %v", l.Type, l.Furnished)
	}
	if l.AvailableFrom == nil || l.AvailableFrom.Month() != 7 {
		t.Errorf("available from: got %v", l.AvailableFrom)
	}

	room, err := s.Normalize(context.Background(), items[1])
	if err != nil {
		t.Fatalf("Normalize room: %v", err)
	}
	if room.Type != models.TypeRoom {
		t.Errorf("room type: got %s", room.Type)
	}
}

func TestPostingID(t *testing.T) {
	tests := map[string]string{
		"https://newyork.craigslist.org/mnh/sub/d/x/7712345678.html": "7712345678",
		"https://newyork.craigslist.org/about":                       "",
		"":                                                            "",
	}
	for in, want := range tests {
		if got := postingID(in); got != want {
			t.Errorf("postingID(%q) = %q, want %q", in, got, want)
		}
	}
}
