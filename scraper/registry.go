// Package scraper wires source names to their adapters.
package scraper

import (
	"fmt"

	"sublet-scraper/config"
	"sublet-scraper/llm"
	"sublet-scraper/scraper/browser"
	"sublet-scraper/scraper/craigslist"
	"sublet-scraper/scraper/facebook"
	"sublet-scraper/scraper/feeds"
	"sublet-scraper/scraper/firecrawl"
	"sublet-scraper/scraper/furnishedfinder"
	"sublet-scraper/scraper/leasebreak"
	"sublet-scraper/scraper/pages"
	"sublet-scraper/services"
	"sublet-scraper/utils"
)

// Set is the adapters built for one process. Close releases the shared
// browser if any adapter started it.
type Set struct {
	Sources []services.Source
	browser *browser.Browser
}

// Close shuts down shared resources.
func (s *Set) Close() {
	if s.browser != nil {
		s.browser.Close()
	}
}

// Build creates the adapters for names, in order. Clients are shared: one
// language model client, one browser and one Firecrawl client at most.
func Build(names []string, cfg *config.Config, logger *utils.Logger) (*Set, error) {
	normalizer := services.NewNormalizer(logger, cfg.TargetStart.Year())
	set := &Set{}

	var assisted *services.AssistedNormalizer
	var extractor *llm.Client
	needLLM := func() (*llm.Client, error) {
		if extractor != nil {
			return extractor, nil
		}
		c, err := llm.New(cfg, logger)
		if err != nil {
			return nil, err
		}
		extractor = c
		assisted = services.NewAssistedNormalizer(c, normalizer, cfg.LLMTimeout, logger)
		return c, nil
	}
	needBrowser := func() *browser.Browser {
		if set.browser == nil {
			set.browser = browser.New(cfg, logger)
		}
		return set.browser
	}
	var fc *firecrawl.Client
	needFirecrawl := func() *firecrawl.Client {
		if fc == nil {
			fc = firecrawl.New(cfg.FirecrawlAPIKey)
		}
		return fc
	}

	for _, name := range names {
		var src services.Source
		switch name {
		case config.SourceCraigslist:
			src = craigslist.New(cfg, normalizer, logger)
		case config.SourceFeeds:
			src = feeds.New(cfg, normalizer, logger)
		case config.SourceFacebook, config.SourceLeaseBreak, config.SourceFurnishedFinder:
			if _, err := needLLM(); err != nil {
				return nil, err
			}
			switch name {
			case config.SourceFacebook:
				src = facebook.New(cfg, assisted, logger)
			case config.SourceLeaseBreak:
				src = leasebreak.New(cfg, needBrowser(), assisted, logger)
			default:
				src = furnishedfinder.New(cfg, needBrowser(), assisted, logger)
			}
		case config.SourceSpareRoom, config.SourceRoomi, config.SourceListingsProject:
			c, err := needLLM()
			if err != nil {
				return nil, err
			}
			src = pages.New(pageTargets[name], cfg, needFirecrawl(), c, normalizer, logger)
		default:
			return nil, fmt.Errorf("unknown source %q", name)
		}
		set.Sources = append(set.Sources, src)
	}
	return set, nil
}

var pageTargets = map[string]pages.Target{
	config.SourceSpareRoom:       pages.SpareRoom,
	config.SourceRoomi:           pages.Roomi,
	config.SourceListingsProject: pages.ListingsProject,
}
