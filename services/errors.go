package services

import (
	"errors"
	"fmt"

	"sublet-scraper/models"
)

var (
	// ErrFetch marks a source that could not be fetched. It is isolated to
	// that source.
	ErrFetch = errors.New("fetch failed")

	// ErrNormalization marks an item that could not be turned into a Listing.
	ErrNormalization = errors.New("normalization failed")

	// ErrNotAnOffer marks posts from people looking for housing rather than
	// offering it. Such items are dropped without counting as failures.
	ErrNotAnOffer = errors.New("post is a housing request, not an offer")

	// ErrSinkFailure marks a durable store that was unavailable when the run
	// tried to read or write it. It is the only error that fails a run.
	ErrSinkFailure = errors.New("sink unavailable")
)

// NormalizationError explains why a single raw item was dropped. Err holds
// the underlying cause, e.g. an extraction failure, when there is one.
type NormalizationError struct {
	Source models.Source
	Reason string
	Err    error
}

func (e *NormalizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("normalize %s item: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("normalize %s item: %s", e.Source, e.Reason)
}

func (e *NormalizationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrNormalization, e.Err}
	}
	return []error{ErrNormalization}
}
