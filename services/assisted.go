package services

import (
	"context"
	"fmt"
	"time"

	"sublet-scraper/llm"
	"sublet-scraper/models"
	"sublet-scraper/utils"
)

// AssistedNormalizer normalizes free-text items by asking a language model
// for candidate fields first. The model's answer is folded back into the
// RawItem as strings and then runs through the rule-based Normalizer.
type AssistedNormalizer struct {
	extractor llm.Extractor
	base      *Normalizer
	timeout   time.Duration
	logger    *utils.Logger
}

// NewAssistedNormalizer creates an AssistedNormalizer. Each extraction call
// is bounded by timeout.
func NewAssistedNormalizer(extractor llm.Extractor, base *Normalizer, timeout time.Duration, logger *utils.Logger) *AssistedNormalizer {
	return &AssistedNormalizer{extractor: extractor, base: base, timeout: timeout, logger: logger}
}

// Normalize extracts and normalizes one raw item. Items without free text
// skip extraction.
func (a *AssistedNormalizer) Normalize(ctx context.Context, raw *models.RawItem) (*models.Listing, error) {
	if raw == nil || raw.Text == "" {
		return a.base.Normalize(raw)
	}
	if IsSearchRequest(raw.Text) {
		return nil, fmt.Errorf("%s: %w", raw.Source, ErrNotAnOffer)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	fields, err := a.extractor.ExtractPost(ctx, raw.Text)
	if err != nil {
		return nil, &NormalizationError{Source: raw.Source, Reason: "extraction", Err: err}
	}
	if fields.IsSearchRequest() {
		return nil, fmt.Errorf("%s: model flagged post: %w", raw.Source, ErrNotAnOffer)
	}

	return a.base.Normalize(fields.ToRawItem(raw))
}
