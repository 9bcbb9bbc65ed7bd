// Package orchestrator runs the pipeline region by region.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"ai-job-scraper-go/internal/analysis"
	"ai-job-scraper-go/internal/checkpoint"
	"ai-job-scraper-go/internal/config"
	"ai-job-scraper-go/internal/export"
	"ai-job-scraper-go/internal/merge"
	"ai-job-scraper-go/internal/models"
	"ai-job-scraper-go/internal/scraper"
	"ai-job-scraper-go/internal/scraper/sources"
	"ai-job-scraper-go/internal/storage"
)

// RegionReport is the outcome of one region.
type RegionReport struct {
	Region     models.Region
	Skipped    bool
	Records    int
	Analyzed   int
	OutputFile string
	Stats      scraper.RegionStats
	Merge      *merge.Stats
	Sync       *storage.SyncStats
	Err        error
	Duration   time.Duration
}

// Deps are the collaborators the orchestrator drives. Analyzer and Sink
// are optional.
type Deps struct {
	Sources     *sources.SourceManager
	Executor    *scraper.Executor
	Checkpoints *checkpoint.Store
	Merger      *merge.Merger
	Analyzer    analysis.Analyzer
	Sink        *storage.Sink
}

type Orchestrator struct {
	cfg    *config.Config
	deps   Deps
	logger *log.Logger
}

func New(cfg *config.Config, deps Deps, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if deps.Merger == nil {
		deps.Merger = merge.NewMerger(cfg.Priority(), logger)
	}
	return &Orchestrator{cfg: cfg, deps: deps, logger: logger}
}

// ExecutorOptions maps the configuration onto grid-walk options.
func ExecutorOptions(cfg *config.Config) (scraper.Options, error) {
	minPosted, err := cfg.MinPosted()
	if err != nil {
		return scraper.Options{}, err
	}
	return scraper.Options{
		ResultsWanted:          cfg.ResultsPerSearch,
		MaxTotalJobs:           cfg.MaxTotalJobs,
		MinPostedDate:          minPosted,
		FilterAIRelated:        cfg.FilterAIRelated,
		RequestDelay:           cfg.RequestDelay(),
		CheckpointEveryTriples: cfg.CheckpointIntervalTriples,
		CheckpointEvery:        cfg.CheckpointInterval(),
		RetryAttempts:          cfg.RetryAttempts,
		RetryBaseDelay:         cfg.RetryBaseDelay(),
		ScrapeTimeout:          cfg.ScrapeTimeout(),
	}, nil
}

// Run processes every enabled region in order. A failing region never
// stops the others; cancellation does.
func (o *Orchestrator) Run(ctx context.Context) []RegionReport {
	if err := o.deps.Checkpoints.ClearIfRunChanged(o.cfg.RunID); err != nil {
		o.logger.Printf("Warning: could not reset checkpoints: %v", err)
	}

	var reports []RegionReport
	for _, code := range o.cfg.EnabledRegions {
		if ctx.Err() != nil {
			o.logger.Printf("Stopping before %s: %v", code, ctx.Err())
			break
		}
		reports = append(reports, o.RunRegion(ctx, code))
	}
	return reports
}

// RunRegion scrapes, merges and writes out one region.
func (o *Orchestrator) RunRegion(ctx context.Context, code string) (report RegionReport) {
	started := time.Now()
	report.Region = models.Region(code)
	defer func() { report.Duration = time.Since(started) }()

	info, err := o.cfg.Region(code)
	if err != nil {
		o.logger.Printf("Warning: skipping region %s: %v", code, err)
		report.Skipped = true
		report.Err = err
		return report
	}
	report.Region = info.Code
	o.logger.Printf("=== %s (%s) ===", info.Name, info.Code)

	plan := scraper.Plan{
		Region:      info.Code,
		CountryCode: info.CountryCode,
		Keywords:    o.cfg.Keywords,
		Locations:   info.DefaultLocations,
		Platforms:   o.platforms(),
	}

	result, runErr := o.deps.Executor.Run(ctx, plan)
	report.Stats = result.Stats
	result.Stats.Log(o.logger, info.Code)
	if runErr != nil {
		// partial results stay in the checkpoint for the next run
		report.Err = fmt.Errorf("scrape %s: %w", info.Code, runErr)
		report.Records = len(result.Records)
		return report
	}

	records := result.Records
	if len(plan.Platforms) > 1 {
		merged, stats := o.deps.Merger.Merge(result.ByPlatform)
		records = merged
		report.Merge = &stats
		o.logger.Printf("%s: merged to %d records (%d cross-platform duplicates)", info.Code, len(records), stats.CrossDuplicates)
	}
	report.Records = len(records)

	if o.deps.Analyzer != nil && len(records) > 0 {
		report.Analyzed = analysis.Enrich(ctx, o.deps.Analyzer, records, o.logger)
		o.logger.Printf("%s: analyzed %d/%d records", info.Code, report.Analyzed, len(records))
	}

	path := filepath.Join(o.deps.Checkpoints.RegionDir(info.Code), export.FileName(info))
	if err := export.WriteXLSX(path, records); err != nil {
		report.Err = fmt.Errorf("write spreadsheet: %w", err)
		return report
	}
	report.OutputFile = path
	o.logger.Printf("%s: wrote %d records to %s", info.Code, len(records), path)

	if o.deps.Sink != nil && o.cfg.EnableRemoteUpsert {
		stats, err := o.deps.Sink.Sync(ctx, info, records)
		report.Sync = &stats
		if err != nil {
			if errors.Is(err, storage.ErrRemoteUnavailable) {
				o.logger.Printf("Warning: %s remote table unavailable, spreadsheet kept: %v", info.Code, err)
			}
			report.Err = fmt.Errorf("sync %s: %w", info.TableName(), err)
		}
	}
	return report
}

// platforms lists the enabled platforms registered with the source manager
// in configured order.
func (o *Orchestrator) platforms() []models.Platform {
	var out []models.Platform
	for _, p := range o.cfg.Platforms() {
		if _, ok := o.deps.Sources.GetSource(p); ok {
			out = append(out, p)
		}
	}
	return out
}

// Summary logs one line per region report.
func Summary(logger *log.Logger, reports []RegionReport) {
	total := 0
	for _, r := range reports {
		switch {
		case r.Skipped:
			logger.Printf("%s: skipped (%v)", r.Region, r.Err)
		case r.Err != nil:
			logger.Printf("%s: %d records, error: %v", r.Region, r.Records, r.Err)
		default:
			line := fmt.Sprintf("%s: %d records -> %s", r.Region, r.Records, r.OutputFile)
			if r.Sync != nil {
				line += fmt.Sprintf(" (%d inserted, %d skipped, %d failed)", r.Sync.Inserted, r.Sync.Skipped, r.Sync.Failed)
			}
			logger.Print(line)
		}
		total += r.Records
	}
	logger.Printf("Total records: %d across %d regions", total, len(reports))
}
