// Package llm turns free-form listing text into candidate fields using a
// hosted language model. Its output is untrusted: callers must run every
// field back through the same coercion rules as structured sources.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"sublet-scraper/models"
	"sublet-scraper/utils"
)

// ErrExtraction marks a failed or unusable model call.
var ErrExtraction = errors.New("llm extraction failed")

const (
	minPostChars  = 20
	maxPostChars  = 2000
	maxPageChars  = 25000
	postMaxTokens = 500
	pageMaxTokens = 4096
)

// Fields holds one extracted listing exactly as the model returned it.
type Fields map[string]any

// Completer sends a single prompt to a model and returns its text reply.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
	Name() string
}

// Extractor pulls listing fields out of free text.
type Extractor interface {
	ExtractPost(ctx context.Context, text string) (Fields, error)
	ExtractPage(ctx context.Context, text, label string) ([]Fields, error)
}

// Client implements Extractor on top of any Completer.
type Client struct {
	completer Completer
	logger    *utils.Logger
}

// NewClient wraps a Completer.
func NewClient(completer Completer, logger *utils.Logger) *Client {
	return &Client{completer: completer, logger: logger}
}

// ExtractPost extracts one listing from a social media style post.
func (c *Client) ExtractPost(ctx context.Context, text string) (Fields, error) {
	text = strings.TrimSpace(text)
	if len(text) < minPostChars {
		return nil, fmt.Errorf("%w: post too short (%d chars)", ErrExtraction, len(text))
	}

	reply, err := c.completer.Complete(ctx, fmt.Sprintf(postPrompt, clip(text, maxPostChars)), postMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExtraction, c.completer.Name(), err)
	}

	var fields Fields
	if err := json.Unmarshal([]byte(StripFences(reply)), &fields); err != nil {
		c.logger.Debug("[llm] unparseable reply: %.200s", reply)
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrExtraction, err)
	}
	return fields, nil
}

// ExtractPage extracts every listing from a search results page rendered
// as text or markdown. label names the page in the prompt.
func (c *Client) ExtractPage(ctx context.Context, text, label string) ([]Fields, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty page %q", ErrExtraction, label)
	}

	reply, err := c.completer.Complete(ctx, fmt.Sprintf(pagePrompt, label, clip(text, maxPageChars)), pageMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExtraction, c.completer.Name(), err)
	}

	var list []Fields
	if err := json.Unmarshal([]byte(StripFences(reply)), &list); err != nil {
		c.logger.Debug("[llm] unparseable page reply: %.200s", reply)
		return nil, fmt.Errorf("%w: invalid JSON array: %v", ErrExtraction, err)
	}
	return list, nil
}

// StripFences removes a markdown code fence the model may wrap JSON in.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// IsSearchRequest reports whether the model flagged the post as someone
// looking for housing.
func (f Fields) IsSearchRequest() bool {
	v, _ := f["is_iso"].(bool)
	return v
}

// String returns a field rendered as text. Null and missing fields are "".
func (f Fields) String(key string) string {
	v, ok := f[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", t), "0"), ".")
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(t)
	}
}

// Strings returns a list field as strings, skipping empty entries.
func (f Fields) Strings(key string) []string {
	raw, ok := f[key].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, v := range raw {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// ToRawItem copies the extracted fields into a RawItem as plain strings so
// that they go through normal coercion. Empty fields of base are filled,
// populated ones are kept.
func (f Fields) ToRawItem(base *models.RawItem) *models.RawItem {
	item := *base

	price := f.String("price_monthly")
	if price == "" {
		price = f.String("price_raw")
	} else {
		price += "/month"
	}

	fill(&item.Title, f.String("title"))
	fill(&item.URL, f.String("url"))
	fill(&item.Price, price)
	fill(&item.Neighborhood, f.String("neighborhood"))
	fill(&item.Address, f.String("address"))
	fill(&item.Type, f.String("listing_type"))
	fill(&item.Furnished, f.String("is_furnished"))
	fill(&item.AvailableFrom, f.String("available_from"))
	fill(&item.AvailableTo, f.String("available_to"))
	fill(&item.Description, f.String("description_summary"))
	fill(&item.Contact, f.String("contact_info"))
	if len(item.Images) == 0 {
		item.Images = f.Strings("images")
	}
	if item.Neighborhood == "" {
		item.Neighborhood = f.String("borough")
	}
	return &item
}

func fill(dst *string, v string) {
	if strings.TrimSpace(*dst) == "" && v != "" && !strings.EqualFold(v, "null") {
		*dst = v
	}
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
