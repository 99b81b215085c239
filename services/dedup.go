package services

import (
	"sync"
	"time"

	"sublet-scraper/models"
	"sublet-scraper/utils"
)

// maxFuzzyPriceGap is the largest monthly price difference two listings can
// have and still be the same apartment.
const maxFuzzyPriceGap = 50

// IsNew decides whether fp describes a listing not already in existing.
// An exact key match is a duplicate. Otherwise a record counts as the same
// listing when its tier and price agree with fp and its fuzzy signature
// reaches threshold.
func IsNew(fp models.Fingerprint, existing []models.SeenRecord, threshold float64) bool {
	for _, rec := range existing {
		if rec.ExactKey != "" && rec.ExactKey == fp.ExactKey {
			return false
		}
	}
	_, best := bestFuzzyMatch(fp, existing)
	return best < threshold
}

func bestFuzzyMatch(fp models.Fingerprint, existing []models.SeenRecord) (int, float64) {
	idx, best := -1, 0.0
	if fp.FuzzySignature == "" {
		return idx, best
	}
	for i, rec := range existing {
		if !sameTierAndPrice(fp, rec) {
			continue
		}
		if s := TokenSortRatio(fp.FuzzySignature, rec.FuzzySignature); s > best {
			idx, best = i, s
		}
	}
	return idx, best
}

// sameTierAndPrice reports whether rec may describe the same apartment as fp.
// Tiers must agree when both are known. Prices must be within
// maxFuzzyPriceGap, and a known price never matches an unknown one.
func sameTierAndPrice(fp models.Fingerprint, rec models.SeenRecord) bool {
	if fp.Tier != 0 && rec.Tier != 0 && fp.Tier != rec.Tier {
		return false
	}
	switch {
	case fp.Price == 0 && rec.Price == 0:
		return true
	case fp.Price == 0 || rec.Price == 0:
		return false
	}
	gap := fp.Price - rec.Price
	if gap < 0 {
		gap = -gap
	}
	return gap <= maxFuzzyPriceGap
}

// Deduplicator holds the seen-set for one run: the snapshot read from the
// store at run start plus everything recorded since. Records are only ever
// appended; the snapshot is never modified.
type Deduplicator struct {
	mu        sync.Mutex
	snapshot  []models.SeenRecord
	pending   []models.SeenRecord
	exactKeys *utils.KeySet
	threshold float64
	logger    *utils.Logger
	now       func() time.Time
}

// NewDeduplicator creates a Deduplicator over a read-all-seen snapshot.
func NewDeduplicator(snapshot []models.SeenRecord, threshold int, logger *utils.Logger) *Deduplicator {
	d := &Deduplicator{
		snapshot:  snapshot,
		exactKeys: utils.NewKeySet(),
		threshold: float64(threshold),
		logger:    logger,
		now:       time.Now,
	}
	for _, rec := range snapshot {
		if rec.ExactKey != "" {
			d.exactKeys.Add(rec.ExactKey)
		}
	}
	return d
}

// IsNew reports whether fp has not been seen in the snapshot or earlier in
// this run.
func (d *Deduplicator) IsNew(fp models.Fingerprint) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.exactKeys.Contains(fp.ExactKey) {
		d.logger.Debug("[dedup] exact duplicate %s", fp.ExactKey)
		return false
	}
	for _, set := range [][]models.SeenRecord{d.snapshot, d.pending} {
		if idx, best := bestFuzzyMatch(fp, set); best >= d.threshold {
			d.logger.Debug("[dedup] fuzzy duplicate %q ~ %q (%.1f)", fp.FuzzySignature, set[idx].FuzzySignature, best)
			return false
		}
	}
	return true
}

// Record marks fp as seen for the rest of the run and queues it for
// persistence.
func (d *Deduplicator) Record(fp models.Fingerprint, source models.Source) models.SeenRecord {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec := models.SeenRecord{
		ExactKey:       fp.ExactKey,
		FuzzySignature: fp.FuzzySignature,
		Price:          fp.Price,
		Tier:           fp.Tier,
		Source:         source,
		FirstSeenAt:    d.now().UTC(),
	}
	d.exactKeys.Add(fp.ExactKey)
	d.pending = append(d.pending, rec)
	return rec
}

// Pending returns the records created during this run, in order.
func (d *Deduplicator) Pending() []models.SeenRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.SeenRecord, len(d.pending))
	copy(out, d.pending)
	return out
}
