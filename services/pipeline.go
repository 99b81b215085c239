package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"sublet-scraper/config"
	"sublet-scraper/models"
	"sublet-scraper/storage"
	"sublet-scraper/utils"
)

// Source is one place listings come from. Fetch returns raw items or an
// error the pipeline records against the source; Normalize turns one of
// those items into a Listing.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]*models.RawItem, error)
	Normalize(ctx context.Context, raw *models.RawItem) (*models.Listing, error)
}

// CursorSource is a Source that fetches incrementally. The pipeline hands it
// the stored cursors before Fetch and saves its cursors after a successful
// fetch.
type CursorSource interface {
	Source
	SetCursors(cursors map[string]time.Time)
	Cursors() map[string]time.Time
}

// RunOptions controls a single run.
type RunOptions struct {
	DryRun bool
}

const dryRunPreview = 20

// Pipeline runs every configured source through normalize, dedup and score,
// then appends the accepted batch to the store.
type Pipeline struct {
	cfg     *config.Config
	store   storage.Store
	sources []Source
	scorer  *Scorer
	logger  *utils.Logger
	now     func() time.Time
}

// NewPipeline creates a Pipeline. Sources run in the order given.
func NewPipeline(cfg *config.Config, store storage.Store, sources []Source, logger *utils.Logger) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		store:   store,
		sources: sources,
		scorer:  NewScorer(cfg.Weights, cfg.TargetStart, cfg.TargetEnd),
		logger:  logger,
		now:     time.Now,
	}
}

type fetchResult struct {
	source    Source
	items     []*models.RawItem
	err       error
	duration  time.Duration
	truncated bool
}

// Run executes one full run. Source failures are recorded in the report and
// never returned; the only returned error wraps ErrSinkFailure.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*models.RunReport, error) {
	report := &models.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: p.now().UTC(),
		DryRun:    opts.DryRun,
	}
	defer func() { report.FinishedAt = p.now().UTC() }()

	p.logger.Info("[pipeline] run %s starting with %d sources (dry-run=%v)", report.RunID, len(p.sources), opts.DryRun)

	seen, err := p.readSeen(ctx)
	if err != nil {
		report.SinkError = err
		return report, err
	}
	p.logger.Info("[pipeline] loaded %d seen records", len(seen))

	cursors := p.readCursors(ctx)
	dedup := NewDeduplicator(seen, p.cfg.FuzzyThreshold, p.logger)
	nextCursors := make(map[string]time.Time)

	for _, fr := range p.fetchAll(ctx, cursors) {
		result := &models.SourceRunResult{
			Source:       fr.source.Name(),
			ItemsFetched: len(fr.items),
			Error:        fr.err,
			Duration:     fr.duration,
		}
		report.Sources = append(report.Sources, result)

		if fr.err != nil {
			p.logger.Error("[pipeline] %s failed after %s: %v", result.Source, fr.duration.Round(time.Millisecond), fr.err)
			continue
		}

		for _, raw := range fr.items {
			if scored := p.processItem(ctx, fr.source, raw, dedup, result); scored != nil {
				report.Accepted = append(report.Accepted, scored)
			}
		}

		if cs, ok := fr.source.(CursorSource); ok {
			if fr.truncated {
				// the cut items lie behind the advanced cursors; refetch them next run
				p.logger.Warn("[pipeline] %s output was truncated, keeping its previous cursors", result.Source)
			} else {
				for k, v := range cs.Cursors() {
					nextCursors[k] = v
				}
			}
		}

		p.logger.Info("[pipeline] %s: fetched=%d new=%d dup=%d dropped=%d failed=%d",
			result.Source, result.ItemsFetched, result.ItemsNew, result.Duplicates, result.Dropped, result.Failed)
	}

	sort.SliceStable(report.Accepted, func(i, j int) bool {
		return report.Accepted[i].Score.Total > report.Accepted[j].Score.Total
	})

	if opts.DryRun {
		p.logPreview(report.Accepted)
		p.logger.Info("[pipeline] dry run: %d new listings, nothing written", len(report.Accepted))
		return report, nil
	}

	if err := p.write(ctx, report, dedup.Pending(), nextCursors); err != nil {
		report.SinkError = err
		return report, err
	}
	return report, nil
}

func (p *Pipeline) readSeen(ctx context.Context) ([]models.SeenRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.SinkTimeout)
	defer cancel()
	seen, err := p.store.ReadAllSeen(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: read seen records: %v", ErrSinkFailure, err)
	}
	return seen, nil
}

func (p *Pipeline) readCursors(ctx context.Context) map[string]time.Time {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.SinkTimeout)
	defer cancel()
	cursors, err := p.store.ReadCursors(ctx)
	if err != nil {
		p.logger.Warn("[pipeline] could not read cursors, fetching full windows: %v", err)
		return map[string]time.Time{}
	}
	return cursors
}

// fetchAll fetches every source and returns results in source order. With
// MaxConcurrency > 1 fetches overlap; everything after fetch stays sequential.
func (p *Pipeline) fetchAll(ctx context.Context, cursors map[string]time.Time) []fetchResult {
	for _, src := range p.sources {
		if cs, ok := src.(CursorSource); ok {
			cs.SetCursors(cursors)
		}
	}

	results := make([]fetchResult, len(p.sources))
	if p.cfg.MaxConcurrency <= 1 {
		for i, src := range p.sources {
			results[i] = p.fetchSource(ctx, src)
		}
		return results
	}

	pool := utils.NewWorkerPool(p.cfg.MaxConcurrency, 0)
	for i, src := range p.sources {
		pool.Submit(func() {
			results[i] = p.fetchSource(ctx, src)
		})
	}
	pool.Wait()
	return results
}

func (p *Pipeline) fetchSource(ctx context.Context, src Source) (fr fetchResult) {
	fr.source = src
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			fr.items = nil
			fr.err = fmt.Errorf("%w: %s panicked: %v", ErrFetch, src.Name(), r)
		}
		fr.duration = time.Since(start)
	}()

	ctx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
	defer cancel()

	p.logger.Info("[pipeline] fetching %s", src.Name())
	items, err := src.Fetch(ctx)
	if err != nil {
		fr.err = fmt.Errorf("%w: %s: %v", ErrFetch, src.Name(), err)
		return fr
	}

	if limit := p.cfg.MaxListingsPerSource; limit > 0 && len(items) > limit {
		p.logger.Warn("[pipeline] %s returned %d items, keeping the first %d", src.Name(), len(items), limit)
		items = items[:limit]
		fr.truncated = true
	}
	fr.items = items
	return fr
}

// processItem normalizes, dedups and scores one item, updating result.
// It returns nil when the item is dropped for any reason.
func (p *Pipeline) processItem(ctx context.Context, src Source, raw *models.RawItem, dedup *Deduplicator, result *models.SourceRunResult) *models.ScoredListing {
	listing, err := p.normalize(ctx, src, raw)
	switch {
	case errors.Is(err, ErrNotAnOffer):
		result.Dropped++
		p.logger.Debug("[pipeline] %s: skipping %v", result.Source, err)
		return nil
	case err != nil:
		result.Failed++
		p.logger.Warn("[pipeline] %s: dropping item: %v", result.Source, err)
		return nil
	}

	fp := Fingerprint(listing)
	if !dedup.IsNew(fp) {
		result.Duplicates++
		return nil
	}
	dedup.Record(fp, listing.Source)
	result.ItemsNew++

	return &models.ScoredListing{
		Listing:     listing,
		Fingerprint: fp,
		Score:       p.scorer.Score(listing),
	}
}

func (p *Pipeline) normalize(ctx context.Context, src Source, raw *models.RawItem) (listing *models.Listing, err error) {
	defer func() {
		if r := recover(); r != nil {
			listing = nil
			err = &NormalizationError{Source: models.Source(src.Name()), Reason: fmt.Sprintf("panic: %v", r)}
		}
	}()
	return src.Normalize(ctx, raw)
}

// write appends the run's output. Listings go first so that a failure there
// never leaves seen records pointing at rows that were not written.
func (p *Pipeline) write(ctx context.Context, report *models.RunReport, pending []models.SeenRecord, cursors map[string]time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.SinkTimeout)
	defer cancel()

	if len(report.Accepted) > 0 {
		if err := p.store.AppendListings(ctx, report.Accepted); err != nil {
			return fmt.Errorf("%w: append %d listings: %v", ErrSinkFailure, len(report.Accepted), err)
		}
		report.Written = len(report.Accepted)
		p.logger.Info("[pipeline] appended %d listings", report.Written)

		if err := p.store.AppendSeen(ctx, pending); err != nil {
			return fmt.Errorf("%w: append %d seen records: %v", ErrSinkFailure, len(pending), err)
		}
	} else {
		p.logger.Info("[pipeline] no new listings this run")
	}

	if len(cursors) > 0 {
		if err := p.store.AppendCursors(ctx, cursors); err != nil {
			p.logger.Warn("[pipeline] could not save cursors: %v", err)
		}
	}
	if err := p.store.AppendRunLog(ctx, report); err != nil {
		p.logger.Warn("[pipeline] could not append run log: %v", err)
	}
	return nil
}

func (p *Pipeline) logPreview(accepted []*models.ScoredListing) {
	n := len(accepted)
	if n > dryRunPreview {
		n = dryRunPreview
	}
	for i, sl := range accepted[:n] {
		price := "n/a"
		if sl.Listing.PriceUSD != nil {
			price = fmt.Sprintf("$%d", *sl.Listing.PriceUSD)
		}
		p.logger.Info("[pipeline] %2d. %.1f  %-8s %-22s %-16s %s",
			i+1, sl.Score.Total, price, truncate(sl.Listing.Neighborhood, 22), sl.Listing.Source, truncate(sl.Listing.Title, 50))
	}
}
