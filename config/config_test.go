package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Weights:         Weights{Location: 30, Price: 25, Type: 20, Timing: 15, Bonus: 10},
		FuzzyThreshold:  85,
		TargetStart:     time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC),
		TargetEnd:       time.Date(2026, time.September, 30, 0, 0, 0, 0, time.UTC),
		LLMProvider:     "anthropic",
		AnthropicAPIKey: "sk-test",
		ApifyAPIToken:   "apify-test",
		FirecrawlAPIKey: "fc-test",
		FeedURLs:        []string{"https://classifieds.example.com/rss"},
		Store:           "sheets",
		SpreadsheetID:   "sheet-id",

		GoogleSheetsCredentials: "creds.json",
	}
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Setenv("WEIGHT_LOCATION", "")
	t.Setenv("WEIGHT_PRICE", "40")
	t.Setenv("FUZZY_THRESHOLD", "not-a-number")
	t.Setenv("TARGET_START", "2026-06-15")
	t.Setenv("TARGET_END", "15/09/2026")
	t.Setenv("SOURCES", " craigslist, feeds ,,")
	t.Setenv("LLM_PROVIDER", "Cohere")
	t.Setenv("FETCH_TIMEOUT_SEC", "10")

	cfg := Load()

	if cfg.Weights.Location != 30 || cfg.Weights.Price != 40 {
		t.Errorf("weights: got %+v", cfg.Weights)
	}
	if cfg.FuzzyThreshold != 85 {
		t.Errorf("malformed int should fall back to default, got %d", cfg.FuzzyThreshold)
	}
	if !cfg.TargetStart.Equal(time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("target start: got %v", cfg.TargetStart)
	}
	if !cfg.TargetEnd.Equal(time.Date(2026, time.September, 30, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("malformed date should fall back to default, got %v", cfg.TargetEnd)
	}
	if len(cfg.Sources) != 2 || cfg.Sources[0] != "craigslist" || cfg.Sources[1] != "feeds" {
		t.Errorf("sources: got %q", cfg.Sources)
	}
	if cfg.LLMProvider != "cohere" {
		t.Errorf("provider should be lower-cased, got %q", cfg.LLMProvider)
	}
	if cfg.FetchTimeout != 10*time.Second {
		t.Errorf("fetch timeout: got %v", cfg.FetchTimeout)
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := validConfig().Validate(KnownSources(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateProblems(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		sources []string
		dryRun  bool
		want    string
	}{
		{
			name:   "weights sum to 95",
			mutate: func(c *Config) { c.Weights.Bonus = 5 },
			want:   "sum to 95%",
		},
		{
			name:   "negative weight",
			mutate: func(c *Config) { c.Weights.Bonus = -10; c.Weights.Location = 50 },
			want:   "negative",
		},
		{
			name:   "threshold out of range",
			mutate: func(c *Config) { c.FuzzyThreshold = 101 },
			want:   "FUZZY_THRESHOLD",
		},
		{
			name:   "inverted window",
			mutate: func(c *Config) { c.TargetEnd = c.TargetStart.AddDate(0, 0, -1) },
			want:   "TARGET_END",
		},
		{
			name:    "unknown source",
			mutate:  func(c *Config) {},
			sources: []string{"zillow"},
			want:    `unknown source "zillow"`,
		},
		{
			name:    "llm source without key",
			mutate:  func(c *Config) { c.AnthropicAPIKey = "" },
			sources: []string{SourceLeaseBreak},
			want:    "needs an API key",
		},
		{
			name:    "cohere selected but only anthropic key",
			mutate:  func(c *Config) { c.LLMProvider = "cohere" },
			sources: []string{SourceRoomi},
			want:    "needs an API key for LLM provider cohere",
		},
		{
			name:    "facebook without apify",
			mutate:  func(c *Config) { c.ApifyAPIToken = "" },
			sources: []string{SourceFacebook},
			want:    "APIFY_API_TOKEN",
		},
		{
			name:    "page sources without firecrawl",
			mutate:  func(c *Config) { c.FirecrawlAPIKey = "" },
			sources: []string{SourceSpareRoom},
			want:    "FIRECRAWL_API_KEY",
		},
		{
			name:    "feeds without urls",
			mutate:  func(c *Config) { c.FeedURLs = nil },
			sources: []string{SourceFeeds},
			want:    "FEED_URLS",
		},
		{
			name:   "sheets without spreadsheet",
			mutate: func(c *Config) { c.SpreadsheetID = "" },
			want:   "SPREADSHEET_ID",
		},
		{
			name:   "unknown store",
			mutate: func(c *Config) { c.Store = "dynamo" },
			want:   `unknown STORE "dynamo"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			sources := tt.sources
			if sources == nil {
				sources = []string{SourceCraigslist}
			}

			err := c.Validate(sources, tt.dryRun)
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected *ConfigError, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestValidateDryRunSkipsSheetsCredentials(t *testing.T) {
	c := validConfig()
	c.SpreadsheetID = ""
	if err := c.Validate([]string{SourceCraigslist}, true); err != nil {
		t.Errorf("dry run should not need sheet credentials: %v", err)
	}
}

func TestSelectedSources(t *testing.T) {
	c := validConfig()
	if got := c.SelectedSources(nil); len(got) != len(KnownSources()) {
		t.Errorf("default: got %v", got)
	}

	noFeeds := validConfig()
	noFeeds.FeedURLs = nil
	got := noFeeds.SelectedSources(nil)
	if len(got) != len(KnownSources())-1 {
		t.Errorf("default without FEED_URLS: got %v", got)
	}
	for _, name := range got {
		if name == SourceFeeds {
			t.Error("feeds selected by default without FEED_URLS")
		}
	}
	if err := noFeeds.Validate(got, false); err != nil {
		t.Errorf("default selection should validate: %v", err)
	}
	if got := noFeeds.SelectedSources([]string{SourceFeeds}); len(got) != 1 || got[0] != SourceFeeds {
		t.Errorf("explicit feeds selection should be kept: got %v", got)
	}

	c.Sources = []string{SourceFeeds}
	if got := c.SelectedSources(nil); len(got) != 1 || got[0] != SourceFeeds {
		t.Errorf("env selection: got %v", got)
	}
	if got := c.SelectedSources([]string{SourceCraigslist}); len(got) != 1 || got[0] != SourceCraigslist {
		t.Errorf("CLI selection should win: got %v", got)
	}
}

func TestWeightsFraction(t *testing.T) {
	w := Weights{Location: 30, Price: 25, Type: 20, Timing: 15, Bonus: 10}
	var sum float64
	for _, c := range Categories {
		sum += w.Fraction(c)
	}
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("fractions sum to %v, want 1", sum)
	}
	if w.Fraction("unknown") != 0 {
		t.Error("unknown category should have zero weight")
	}
}

func TestDSN(t *testing.T) {
	c := &Config{PostgresHost: "db", PostgresPort: "5432", PostgresUser: "u", PostgresPassword: "p", PostgresDB: "sublets", PostgresSSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=sublets sslmode=disable"
	if got := c.DSN(); got != want {
		t.Errorf("DSN: got %q, want %q", got, want)
	}
}

func TestValidateReportsMalformedScoringSettings(t *testing.T) {
	for _, key := range []string{"WEIGHT_LOCATION", "WEIGHT_TYPE", "WEIGHT_TIMING", "WEIGHT_BONUS", "FUZZY_THRESHOLD"} {
		t.Setenv(key, "")
	}
	t.Setenv("WEIGHT_PRICE", "2o")

	cfg := Load()
	if cfg.Weights.Sum() != 100 {
		t.Fatalf("fallback weights should still sum to 100, got %d", cfg.Weights.Sum())
	}

	c := validConfig()
	c.Malformed = cfg.Malformed
	err := c.Validate([]string{SourceCraigslist}, false)
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
	if len(ce.Problems) != 1 || !strings.Contains(ce.Problems[0], `WEIGHT_PRICE="2o"`) {
		t.Errorf("problems = %q", ce.Problems)
	}
}
