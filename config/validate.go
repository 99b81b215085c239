package config

import (
	"fmt"
	"sort"
	"strings"
)

// ConfigError reports a configuration problem that must stop the process
// before any source runs.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return "config: " + strings.Join(e.Problems, "; ")
}

// Source names accepted by --source/--sources and SOURCES.
const (
	SourceCraigslist      = "craigslist"
	SourceFeeds           = "feeds"
	SourceFacebook        = "facebook"
	SourceLeaseBreak      = "leasebreak"
	SourceFurnishedFinder = "furnished_finder"
	SourceSpareRoom       = "spareroom"
	SourceRoomi           = "roomi"
	SourceListingsProject = "listings_project"
)

type sourceNeeds struct {
	llm       bool
	apify     bool
	firecrawl bool
}

var knownSources = map[string]sourceNeeds{
	SourceCraigslist:      {},
	SourceFeeds:           {},
	SourceFacebook:        {llm: true, apify: true},
	SourceLeaseBreak:      {llm: true},
	SourceFurnishedFinder: {llm: true},
	SourceSpareRoom:       {llm: true, firecrawl: true},
	SourceRoomi:           {llm: true, firecrawl: true},
	SourceListingsProject: {llm: true, firecrawl: true},
}

// KnownSources returns every accepted source name, sorted.
func KnownSources() []string {
	names := make([]string, 0, len(knownSources))
	for name := range knownSources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SelectedSources resolves the sources for this run: the explicit CLI
// selection if any, else SOURCES, else every known source. The default
// selection leaves out feeds when no FEED_URLS are configured.
func (c *Config) SelectedSources(cli []string) []string {
	if len(cli) > 0 {
		return cli
	}
	if len(c.Sources) > 0 {
		return c.Sources
	}
	all := KnownSources()
	if len(c.FeedURLs) > 0 {
		return all
	}
	out := make([]string, 0, len(all))
	for _, name := range all {
		if name != SourceFeeds {
			out = append(out, name)
		}
	}
	return out
}

// Validate checks the configuration for the given source selection.
// A non-nil result is always a *ConfigError.
func (c *Config) Validate(selected []string, dryRun bool) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	problems = append(problems, c.Malformed...)
	if sum := c.Weights.Sum(); sum != 100 {
		add("score weights sum to %d%%, want 100%%", sum)
	}
	for _, w := range []int{c.Weights.Location, c.Weights.Price, c.Weights.Type, c.Weights.Timing, c.Weights.Bonus} {
		if w < 0 {
			add("score weight %d is negative", w)
			break
		}
	}
	if c.FuzzyThreshold < 1 || c.FuzzyThreshold > 100 {
		add("FUZZY_THRESHOLD %d outside 1..100", c.FuzzyThreshold)
	}
	if c.TargetEnd.Before(c.TargetStart) {
		add("TARGET_END %s is before TARGET_START %s",
			c.TargetEnd.Format(dateLayout), c.TargetStart.Format(dateLayout))
	}
	if c.LLMProvider != "anthropic" && c.LLMProvider != "cohere" {
		add("unknown LLM_PROVIDER %q", c.LLMProvider)
	}

	for _, name := range selected {
		needs, ok := knownSources[name]
		if !ok {
			add("unknown source %q (available: %s)", name, strings.Join(KnownSources(), ", "))
			continue
		}
		if needs.llm && c.LLMKey() == "" {
			add("source %s needs an API key for LLM provider %s", name, c.LLMProvider)
		}
		if needs.apify && c.ApifyAPIToken == "" {
			add("source %s needs APIFY_API_TOKEN", name)
		}
		if needs.firecrawl && c.FirecrawlAPIKey == "" {
			add("source %s needs FIRECRAWL_API_KEY", name)
		}
		if name == SourceFeeds && len(c.FeedURLs) == 0 {
			add("source %s needs FEED_URLS", name)
		}
	}

	switch c.Store {
	case "sheets":
		if !dryRun && (c.SpreadsheetID == "" || c.GoogleSheetsCredentials == "") {
			add("STORE=sheets needs SPREADSHEET_ID and GOOGLE_SHEETS_CREDENTIALS")
		}
	case "postgres", "redis", "csv", "memory":
	default:
		add("unknown STORE %q", c.Store)
	}

	if len(problems) > 0 {
		return &ConfigError{Problems: problems}
	}
	return nil
}
