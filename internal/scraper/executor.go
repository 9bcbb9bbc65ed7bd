package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"ai-job-scraper-go/internal/checkpoint"
	"ai-job-scraper-go/internal/models"
	"ai-job-scraper-go/internal/relevance"
	"ai-job-scraper-go/internal/requirements"
	"ai-job-scraper-go/internal/salary"
	"ai-job-scraper-go/internal/scraper/sources"
	"ai-job-scraper-go/pkg/httpclient"
)

// CheckpointStore persists a region's progress.
type CheckpointStore interface {
	Load(region models.Region) *checkpoint.State
	Save(region models.Region, state *checkpoint.State) error
}

var _ CheckpointStore = (*checkpoint.Store)(nil)

// Options tunes a grid walk.
type Options struct {
	ResultsWanted          int
	MaxTotalJobs           int // 0 means unlimited
	MinPostedDate          *time.Time
	FilterAIRelated        bool
	RequestDelay           time.Duration
	CheckpointEveryTriples int
	CheckpointEvery        time.Duration
	RetryAttempts          int
	RetryBaseDelay         time.Duration
	ScrapeTimeout          time.Duration
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		ResultsWanted:          100,
		FilterAIRelated:        true,
		RequestDelay:           300 * time.Millisecond,
		CheckpointEveryTriples: 10,
		CheckpointEvery:        300 * time.Second,
		RetryAttempts:          3,
		RetryBaseDelay:         2 * time.Second,
		ScrapeTimeout:          60 * time.Second,
	}
}

// Plan is one region's grid.
type Plan struct {
	Region      models.Region
	CountryCode string
	Keywords    []string
	Locations   []string
	Platforms   []models.Platform
}

func (p Plan) triples() int {
	return len(p.Keywords) * len(p.Locations) * len(p.Platforms)
}

// triple decomposes a flat grid index; the platform varies fastest.
func (p Plan) triple(idx int) (k, l, pl int) {
	perKeyword := len(p.Locations) * len(p.Platforms)
	return idx / perKeyword, (idx / len(p.Platforms)) % len(p.Locations), idx % len(p.Platforms)
}

func (p Plan) index(k, l, pl int) int {
	return (k*len(p.Locations)+l)*len(p.Platforms) + pl
}

// Result is what a grid walk produced, in grid order.
type Result struct {
	Records    []models.JobRecord
	ByPlatform map[models.Platform][]models.JobRecord
	Stats      RegionStats
}

func (r *Result) add(rec models.JobRecord) {
	r.Records = append(r.Records, rec)
	r.ByPlatform[rec.SourcePlatform] = append(r.ByPlatform[rec.SourcePlatform], rec)
}

// Executor walks the keyword × location × platform grid of a region.
type Executor struct {
	sourceManager *sources.SourceManager
	normalizer    *salary.Normalizer
	checkpoints   CheckpointStore
	rateLimiter   *RateLimiter
	opts          Options
	logger        *log.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewExecutor creates an executor. checkpoints may be nil to disable
// resumption.
func NewExecutor(manager *sources.SourceManager, normalizer *salary.Normalizer, checkpoints CheckpointStore, opts Options, logger *log.Logger) *Executor {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 1
	}
	return &Executor{
		sourceManager: manager,
		normalizer:    normalizer,
		checkpoints:   checkpoints,
		rateLimiter:   NewRateLimiter(),
		opts:          opts,
		logger:        logger,
		sleep:         sleepContext,
		now:           time.Now,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Run walks plan's grid, resuming from the region's checkpoint. Triple
// failures are counted and skipped; a checkpoint write failure or
// cancellation ends the walk with an error after the records gathered so far.
func (e *Executor) Run(ctx context.Context, plan Plan) (*Result, error) {
	started := e.now()
	result := &Result{
		ByPlatform: make(map[models.Platform][]models.JobRecord),
		Stats:      newRegionStats(),
	}
	result.Stats.TriplesTotal = plan.triples()
	defer func() { result.Stats.Duration = e.now().Sub(started) }()

	state := e.loadState(ctx, plan, result)
	dedup := NewDeduplicator(state)
	defer func() { result.Stats.SeenKeys = dedup.GetSeenCount() }()

	total := plan.triples()
	startIdx := 0
	if total > 0 && !state.Completed {
		startIdx = min(plan.index(state.KeywordIndex, state.LocationIndex, state.PlatformIndex), total)
	} else {
		startIdx = total
	}
	if result.Stats.Resumed && startIdx < total {
		e.logger.Printf("%s: resuming at triple %d/%d with %d records", plan.Region, startIdx+1, total, len(result.Records))
	}

	sinceSave := 0
	lastSave := e.now()
	for idx := startIdx; idx < total; idx++ {
		if e.capReached(result) {
			result.Stats.CapReached = true
			break
		}

		k, l, p := plan.triple(idx)
		platform := plan.Platforms[p]
		q := sources.Query{
			Keyword:       plan.Keywords[k],
			Location:      plan.Locations[l],
			CountryCode:   plan.CountryCode,
			ResultsWanted: e.opts.ResultsWanted,
		}

		raws, err := e.scrapeWithRetry(ctx, platform, q, &result.Stats)
		if err != nil && ctx.Err() != nil {
			if saveErr := e.save(plan.Region, state); saveErr != nil {
				return result, fmt.Errorf("%w (checkpoint: %v)", ctx.Err(), saveErr)
			}
			return result, ctx.Err()
		}
		if err == nil {
			e.acceptPostings(ctx, plan.Region, platform, raws, state, dedup, result)
		}

		state.KeywordIndex, state.LocationIndex, state.PlatformIndex = plan.triple(idx + 1)
		sinceSave++
		if sinceSave >= e.opts.CheckpointEveryTriples || (e.opts.CheckpointEvery > 0 && e.now().Sub(lastSave) >= e.opts.CheckpointEvery) {
			if err := e.save(plan.Region, state); err != nil {
				return result, err
			}
			sinceSave = 0
			lastSave = e.now()
		}

		if err == nil && idx+1 < total {
			if err := e.sleep(ctx, e.opts.RequestDelay); err != nil {
				if saveErr := e.save(plan.Region, state); saveErr != nil {
					return result, fmt.Errorf("%w (checkpoint: %v)", err, saveErr)
				}
				return result, err
			}
		}
	}

	if e.capReached(result) {
		result.Stats.CapReached = true
	}
	state.Completed = true
	if err := e.save(plan.Region, state); err != nil {
		return result, err
	}
	return result, nil
}

func (e *Executor) capReached(result *Result) bool {
	return e.opts.MaxTotalJobs > 0 && len(result.Records) >= e.opts.MaxTotalJobs
}

// loadState resumes from the checkpoint, rebuilding records from the
// accumulated raw postings.
func (e *Executor) loadState(ctx context.Context, plan Plan, result *Result) *checkpoint.State {
	var state *checkpoint.State
	if e.checkpoints != nil {
		state = e.checkpoints.Load(plan.Region)
	}
	if state == nil {
		return checkpoint.NewState(plan.Region)
	}

	result.Stats.Resumed = true
	result.Stats.ResumedFrom = plan.index(state.KeywordIndex, state.LocationIndex, state.PlatformIndex)
	for _, raw := range state.AccumulatedRaw {
		platform := raw.Site
		if platform == "" {
			platform = checkpoint.LegacyPlatform
		}
		rec, ok := e.buildRecord(ctx, raw, platform, plan.Region)
		if !ok {
			continue
		}
		result.add(rec)
		result.Stats.recordAccepted(platform)
	}
	return state
}

func (e *Executor) save(region models.Region, state *checkpoint.State) error {
	if e.checkpoints == nil {
		return nil
	}
	state.LastUpdate = e.now()
	if err := e.checkpoints.Save(region, state); err != nil {
		return fmt.Errorf("checkpoint %s: %w", region, err)
	}
	return nil
}

// scrapeWithRetry calls the platform's scraper up to RetryAttempts times.
// Rate-limit-like errors back off exponentially, other errors wait the base
// delay.
func (e *Executor) scrapeWithRetry(ctx context.Context, platform models.Platform, q sources.Query, stats *RegionStats) ([]models.RawPosting, error) {
	source, ok := e.sourceManager.GetSource(platform)
	if !ok {
		err := fmt.Errorf("platform %s is not enabled", platform)
		stats.recordRequest(platform, 0, 0, err, e.now())
		e.logger.Printf("Skipping %s %q @ %q: %v", platform.DisplayName(), q.Keyword, q.Location, err)
		return nil, err
	}
	config, _ := e.sourceManager.GetSourceConfig(platform)

	started := e.now()
	var lastErr error
	for attempt := 0; attempt < e.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			delay := e.backoffDelay(lastErr, attempt-1)
			stats.Retries++
			e.logger.Printf("Retrying %s %q @ %q (attempt %d/%d) after %v",
				platform.DisplayName(), q.Keyword, q.Location, attempt+1, e.opts.RetryAttempts, delay)
			if err := e.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		if err := e.rateLimiter.Wait(ctx, string(platform), config.RateLimit); err != nil {
			return nil, fmt.Errorf("rate limit error: %w", err)
		}

		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if e.opts.ScrapeTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, e.opts.ScrapeTimeout)
		}
		raws, err := source.ScrapeOne(callCtx, q)
		cancel()
		if err == nil {
			elapsed := e.now().Sub(started)
			stats.recordRequest(platform, len(raws), elapsed, nil, e.now())
			e.logger.Printf("Scraped %d postings from %s for %q @ %q in %v",
				len(raws), platform.DisplayName(), q.Keyword, q.Location, elapsed.Round(time.Millisecond))
			return raws, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		e.logger.Printf("Attempt %d failed for %s %q @ %q: %v", attempt+1, platform.DisplayName(), q.Keyword, q.Location, err)
		if errors.Is(err, sources.ErrUnsupportedCountry) || errors.Is(err, sources.ErrMissingCredentials) {
			break
		}
	}

	stats.recordRequest(platform, 0, e.now().Sub(started), lastErr, e.now())
	e.logger.Printf("Giving up on %s %q @ %q: %v", platform.DisplayName(), q.Keyword, q.Location, lastErr)
	return nil, lastErr
}

// backoffDelay is base × 2^attempt for rate-limit-like errors, else base.
func (e *Executor) backoffDelay(err error, attempt int) time.Duration {
	if isRateLimited(err) {
		return e.opts.RetryBaseDelay * time.Duration(1<<attempt)
	}
	return e.opts.RetryBaseDelay
}

func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate") || strings.Contains(msg, "quota")
}

// acceptPostings runs every returned posting through validation, dedup, the
// date and relevance filters and enrichment.
func (e *Executor) acceptPostings(ctx context.Context, region models.Region, platform models.Platform, raws []models.RawPosting, state *checkpoint.State, dedup *Deduplicator, result *Result) {
	before := len(result.Records)
	for _, raw := range raws {
		if e.capReached(result) {
			break
		}
		raw.Site = platform

		rec, ok := models.FromRaw(raw, platform, region)
		if !ok {
			result.Stats.Malformed++
			continue
		}
		if dedup.IsDuplicate(rec) {
			result.Stats.Duplicates++
			continue
		}
		if e.opts.MinPostedDate != nil && rec.PostedDate != nil && rec.PostedDate.Before(*e.opts.MinPostedDate) {
			result.Stats.TooOld++
			continue
		}
		if e.opts.FilterAIRelated && !relevance.IsAIRelated(rec.Title, rec.Description) {
			result.Stats.Irrelevant++
			continue
		}

		e.enrich(ctx, &rec, raw, region)
		dedup.MarkSeen(rec)
		state.AccumulatedRaw = append(state.AccumulatedRaw, raw)
		result.add(rec)
		result.Stats.recordAccepted(platform)
	}
	if len(raws) > 0 {
		e.logger.Printf("%s: %d of %d postings accepted from %s", region, len(result.Records)-before, len(raws), platform.DisplayName())
	}
}

func (e *Executor) buildRecord(ctx context.Context, raw models.RawPosting, platform models.Platform, region models.Region) (models.JobRecord, bool) {
	rec, ok := models.FromRaw(raw, platform, region)
	if !ok {
		return rec, false
	}
	e.enrich(ctx, &rec, raw, region)
	return rec, true
}

func (e *Executor) enrich(ctx context.Context, rec *models.JobRecord, raw models.RawPosting, region models.Region) {
	rec.IsAIRelevant = relevance.IsAIRelated(rec.Title, rec.Description)
	e.normalizer.Normalize(ctx, raw, region).ApplyTo(rec)
	rec.RequirementsSummary = requirements.Extract(rec.Description)
}
