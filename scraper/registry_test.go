package scraper

import (
	"testing"
	"time"

	"sublet-scraper/config"
	"sublet-scraper/services"
	"sublet-scraper/utils"
)

func testConfig() *config.Config {
	return &config.Config{
		LLMProvider:     "anthropic",
		AnthropicAPIKey: "sk-test",
		AnthropicModel:  "claude-haiku-4-5-20251001",
		TargetStart:     time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC),
		TargetEnd:       time.Date(2026, time.September, 30, 0, 0, 0, 0, time.UTC),
		LLMTimeout:      time.Second,
		FeedURLs:        []string{"https://classifieds.example.com/rss"},
	}
}

func TestBuildEveryKnownSource(t *testing.T) {
	names := config.KnownSources()
	set, err := Build(names, testConfig(), utils.NewDiscardLogger())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer set.Close()

	if len(set.Sources) != len(names) {
		t.Fatalf("sources: got %d, want %d", len(set.Sources), len(names))
	}
	for i, src := range set.Sources {
		if src.Name() != names[i] {
			t.Errorf("source %d: got %q, want %q", i, src.Name(), names[i])
		}
	}
	if set.browser == nil {
		t.Error("browser-backed sources should share one browser")
	}
}

func TestBuildCursorSources(t *testing.T) {
	set, err := Build([]string{config.SourceFacebook, config.SourceFeeds, config.SourceCraigslist}, testConfig(), utils.NewDiscardLogger())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer set.Close()

	want := []bool{true, true, false}
	for i, src := range set.Sources {
		_, ok := src.(services.CursorSource)
		if ok != want[i] {
			t.Errorf("%s: cursor source = %v, want %v", src.Name(), ok, want[i])
		}
	}
	if set.browser != nil {
		t.Error("browser should not be created when no source needs it")
	}
}

func TestBuildRejectsUnknownSource(t *testing.T) {
	if _, err := Build([]string{"zillow"}, testConfig(), utils.NewDiscardLogger()); err == nil {
		t.Fatal("expected an error for an unknown source")
	}
}

func TestBuildRejectsUnknownProvider(t *testing.T) {
	cfg := testConfig()
	cfg.LLMProvider = "mystery"
	if _, err := Build([]string{config.SourceRoomi}, cfg, utils.NewDiscardLogger()); err == nil {
		t.Fatal("expected an error for an unknown LLM provider")
	}
	if _, err := Build([]string{config.SourceCraigslist}, cfg, utils.NewDiscardLogger()); err != nil {
		t.Fatalf("rule-based sources need no model: %v", err)
	}
}
