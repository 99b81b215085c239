package services

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"sublet-scraper/models"
	"sublet-scraper/utils"
)

const (
	maxTitleLen       = 140
	maxDescriptionLen = 500
	maxRawTextLen     = 1000
)

// Normalizer turns RawItems into canonical Listings. Every coercion rule is
// total: unreadable prices and dates become nil, unknown places get the
// lowest tier. Only a missing source or title fails the item.
type Normalizer struct {
	logger      *utils.Logger
	defaultYear int
	now         func() time.Time
}

// NewNormalizer creates a Normalizer. Dates written without a year are
// placed in defaultYear.
func NewNormalizer(logger *utils.Logger, defaultYear int) *Normalizer {
	return &Normalizer{logger: logger, defaultYear: defaultYear, now: time.Now}
}

// Normalize converts one raw item into a Listing.
func (n *Normalizer) Normalize(raw *models.RawItem) (*models.Listing, error) {
	if raw == nil {
		return nil, &NormalizationError{Reason: "nil item"}
	}
	if strings.TrimSpace(string(raw.Source)) == "" {
		return nil, &NormalizationError{Reason: "missing source"}
	}

	text := normaliseText(raw.Text)
	if IsSearchRequest(firstNonEmpty(raw.Title, text)) {
		return nil, fmt.Errorf("%s %q: %w", raw.Source, truncate(firstNonEmpty(raw.Title, text), 60), ErrNotAnOffer)
	}

	title := normaliseText(raw.Title)
	if isNullish(title) {
		title = firstLine(raw.Text)
	}
	if title == "" {
		return nil, &NormalizationError{Source: raw.Source, Reason: "missing title"}
	}

	description := normaliseText(raw.Description)
	if isNullish(description) {
		description = ""
	}
	url := strings.TrimSpace(raw.URL)
	if url == "" && description == "" && text == "" {
		return nil, &NormalizationError{Source: raw.Source, Reason: "no url, description or text"}
	}

	freeText := strings.Join(nonEmpty(title, description, text), " ")

	listing := &models.Listing{
		Source:          raw.Source,
		SourceListingID: strings.TrimSpace(raw.SourceListingID),
		URL:             url,
		Title:           truncate(title, maxTitleLen),
		Address:         cleanOptional(raw.Address),
		PriceRaw:        strings.TrimSpace(raw.Price),
		HasPhotos:       len(raw.Images) > 0,
		ContactInfo:     cleanOptional(raw.Contact),
		DiscoveredAt:    n.now().UTC(),
		Description:     truncate(description, maxDescriptionLen),
		RawText:         truncate(text, maxRawTextLen),
	}

	listing.PriceUSD = ParsePrice(raw.Price)
	if listing.PriceUSD == nil && strings.TrimSpace(raw.Price) == "" {
		listing.PriceUSD = ExtractPriceFromText(freeText)
	}

	loc := n.resolveLocation(raw, title, freeText)
	listing.Neighborhood = loc.Neighborhood
	listing.Borough = loc.Borough
	listing.Tier = loc.Tier

	listing.Type = models.ParseListingType(raw.Type)
	if listing.Type == models.TypeOther {
		listing.Type = DetectListingType(title + " " + description)
	}

	if v, ok := ParseFlag(raw.Furnished); ok {
		listing.Furnished = v
	} else if v, ok := DetectFurnished(freeText); ok {
		listing.Furnished = v
	}

	listing.AvailableFrom, listing.AvailableTo = n.resolveDates(raw, freeText)

	return listing, nil
}

func (n *Normalizer) resolveLocation(raw *models.RawItem, title, freeText string) Location {
	for _, candidate := range []string{raw.Neighborhood, ExtractParenthetical(title), raw.Address} {
		if isNullish(candidate) {
			continue
		}
		if loc := MatchNeighborhood(candidate); loc.Neighborhood != "" {
			return loc
		}
	}
	loc := MatchNeighborhood(freeText)
	if loc.Neighborhood == "" && loc.Borough == models.BoroughUnknown && !isNullish(raw.Neighborhood) {
		loc = MatchNeighborhood(raw.Neighborhood)
	}
	return loc
}

func (n *Normalizer) resolveDates(raw *models.RawItem, freeText string) (from, to *time.Time) {
	from = ParseDate(raw.AvailableFrom, n.defaultYear)
	to = ParseDate(raw.AvailableTo, n.defaultYear)

	if from == nil && to == nil {
		from, to = ExtractDateRange(raw.Dates, n.defaultYear)
	}
	if from == nil && to == nil {
		from, to = ExtractDateRange(freeText, n.defaultYear)
	}

	if from != nil && to != nil && to.Before(*from) {
		n.logger.Debug("[normalizer] %s: inverted dates %s > %s, dropping end date",
			raw.Source, from.Format("2006-01-02"), to.Format("2006-01-02"))
		to = nil
	}
	return from, to
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(fields, " ")
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if l := normaliseText(line); l != "" {
			return truncate(l, 80)
		}
	}
	return ""
}

func cleanOptional(s string) string {
	s = normaliseText(s)
	if isNullish(s) {
		return ""
	}
	return s
}

func isNullish(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "null", "none", "n/a", "na", "<nil>", "unknown":
		return true
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
