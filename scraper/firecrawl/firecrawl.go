// Package firecrawl is a minimal client for the Firecrawl scrape API, used to
// turn listing index pages into markdown for multi-listing extraction.
package firecrawl

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"sublet-scraper/scraper/web"
)

const defaultBaseURL = "https://api.firecrawl.dev/v1"

// Client calls POST /scrape.
// Request:  {"url": "...", "formats": ["markdown"]}
// Response: {"success": true, "data": {"markdown": "..."}}
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New creates a Client.
func New(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: web.NewClient(90 * time.Second),
	}
}

// Markdown scrapes pageURL and returns its markdown rendering.
func (c *Client) Markdown(ctx context.Context, pageURL string) (string, error) {
	req := map[string]any{
		"url":     pageURL,
		"formats": []string{"markdown"},
	}
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Data    struct {
			Markdown string `json:"markdown"`
		} `json:"data"`
	}

	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	if err := web.PostJSON(ctx, c.httpClient, c.baseURL+"/scrape", headers, req, &resp); err != nil {
		return "", fmt.Errorf("firecrawl scrape %s: %w", pageURL, err)
	}
	if !resp.Success && resp.Error != "" {
		return "", fmt.Errorf("firecrawl scrape %s: %s", pageURL, resp.Error)
	}
	if resp.Data.Markdown == "" {
		return "", errors.New("firecrawl returned no markdown for " + pageURL)
	}
	return resp.Data.Markdown, nil
}
