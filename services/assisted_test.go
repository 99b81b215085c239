package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"sublet-scraper/llm"
	"sublet-scraper/models"
	"sublet-scraper/utils"
)

type stubExtractor struct {
	fields llm.Fields
	err    error
	calls  int
}

func (s *stubExtractor) ExtractPost(_ context.Context, _ string) (llm.Fields, error) {
	s.calls++
	return s.fields, s.err
}

func (s *stubExtractor) ExtractPage(_ context.Context, _, _ string) ([]llm.Fields, error) {
	return nil, errors.New("not used")
}

const fbPost = "Subletting my place this summer! Message me for details and photos, available soon."

func newAssisted(ex llm.Extractor) *AssistedNormalizer {
	return NewAssistedNormalizer(ex, newTestNormalizer(), time.Second, utils.NewDiscardLogger())
}

func TestAssistedNormalizeCoercesModelOutput(t *testing.T) {
	ex := &stubExtractor{fields: llm.Fields{
		"title":          "Furnished studio in Kips Bay",
		"price_monthly":  "about 1750",
		"neighborhood":   "kips bay",
		"listing_type":   "studio",
		"is_furnished":   "yes",
		"available_from": "07/01/2026",
		"available_to":   "not sure",
		"is_iso":         false,
	}}
	raw := &models.RawItem{Source: models.SourceFacebook, URL: "https://facebook.com/groups/1/posts/2", Text: fbPost}

	l, err := newAssisted(ex).Normalize(context.Background(), raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.PriceUSD == nil || *l.PriceUSD != 1750 {
		t.Errorf("PriceUSD = %v, want 1750", l.PriceUSD)
	}
	if l.Neighborhood != "Kips Bay" || l.Tier != models.Tier1 {
		t.Errorf("location = %s/%d", l.Neighborhood, l.Tier)
	}
	if !l.Furnished || l.Type != models.TypeStudio {
		t.Errorf("furnished=%v type=%s", l.Furnished, l.Type)
	}
	if l.AvailableFrom == nil || l.AvailableTo != nil {
		t.Errorf("dates = %v..%v", l.AvailableFrom, l.AvailableTo)
	}
	if l.URL != raw.URL || l.RawText == "" {
		t.Error("post metadata was not kept")
	}
}

func TestAssistedNormalizeExtractionFailure(t *testing.T) {
	ex := &stubExtractor{err: llm.ErrExtraction}
	raw := &models.RawItem{Source: models.SourceFacebook, Text: fbPost}

	_, err := newAssisted(ex).Normalize(context.Background(), raw)
	if !errors.Is(err, ErrNormalization) || !errors.Is(err, llm.ErrExtraction) {
		t.Errorf("expected normalization and extraction errors, got %v", err)
	}
}

func TestAssistedNormalizeSearchRequests(t *testing.T) {
	ex := &stubExtractor{fields: llm.Fields{"is_iso": true}}

	_, err := newAssisted(ex).Normalize(context.Background(), &models.RawItem{Source: models.SourceFacebook, Text: fbPost})
	if !errors.Is(err, ErrNotAnOffer) {
		t.Errorf("model-flagged post: got %v, want ErrNotAnOffer", err)
	}

	ex.calls = 0
	_, err = newAssisted(ex).Normalize(context.Background(), &models.RawItem{Source: models.SourceFacebook, Text: "Looking for a studio in July"})
	if !errors.Is(err, ErrNotAnOffer) || ex.calls != 0 {
		t.Errorf("obvious ISO post: err=%v calls=%d, want ErrNotAnOffer without a model call", err, ex.calls)
	}
}
