package orchestrator

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"ai-job-scraper-go/internal/analysis"
	"ai-job-scraper-go/internal/checkpoint"
	"ai-job-scraper-go/internal/config"
	"ai-job-scraper-go/internal/fx"
	"ai-job-scraper-go/internal/merge"
	"ai-job-scraper-go/internal/models"
	"ai-job-scraper-go/internal/salary"
	"ai-job-scraper-go/internal/scraper"
	"ai-job-scraper-go/internal/scraper/sources"
	"ai-job-scraper-go/internal/storage"
	"ai-job-scraper-go/pkg/httpclient"
)

// Pipeline is a fully wired orchestrator plus the pieces the CLI inspects.
type Pipeline struct {
	*Orchestrator
	Rates   *fx.Cache
	Sources *sources.SourceManager
	close   []func()
}

// Close releases connections opened by Build.
func (p *Pipeline) Close() {
	for i := len(p.close) - 1; i >= 0; i-- {
		p.close[i]()
	}
}

// NewRates builds the exchange-rate cache, sharing it through Redis when a
// URL is configured and through a file under the output dir otherwise.
func NewRates(ctx context.Context, cfg *config.Config, logger *log.Logger) (*fx.Cache, func(), error) {
	provider := fx.NewHTTPProvider(httpclient.NewHttpClient(fx.HTTPTimeout), cfg.FX.Endpoint)
	fxLogger := log.New(logger.Writer(), "[fx] ", logger.Flags())

	var store fx.Store
	cleanup := func() {}
	if cfg.FX.RedisURL != "" {
		rdb, err := fx.NewRedisClient(ctx, cfg.FX.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		store = fx.NewRedisStore(rdb, "", cfg.FXTTL())
		cleanup = func() { _ = rdb.Close() }
	} else if cfg.FX.CacheFile != "" {
		store = fx.NewFileStore(filepath.Join(cfg.OutputDir, cfg.FX.CacheFile))
	}
	return fx.NewCache(provider, store, fxLogger, fx.WithTTL(cfg.FXTTL())), cleanup, nil
}

// NewSources registers every enabled platform.
func NewSources(cfg *config.Config, client *httpclient.HttpClient) *sources.SourceManager {
	sm := sources.NewSourceManager()
	enabled := make(map[models.Platform]bool)
	for _, p := range cfg.Platforms() {
		enabled[p] = true
	}
	liClient := client
	if ua := cfg.Sources.LinkedIn.UserAgent; ua != "" {
		liClient = client.WithUserAgent(ua)
	}
	sm.RegisterSource(sources.NewLinkedInScraper(liClient, sources.LinkedInConfig{
		FetchDescription: cfg.Sources.LinkedIn.FetchDescription,
	}), sources.SourceConfig{Enabled: enabled[models.PlatformLinkedIn], RateLimit: cfg.Sources.LinkedIn.RateLimit})
	sm.RegisterSource(sources.NewAdzunaScraper(client, sources.AdzunaConfig{
		AppID:  cfg.Sources.Adzuna.AppID,
		AppKey: cfg.Sources.Adzuna.AppKey,
	}), sources.SourceConfig{Enabled: enabled[models.PlatformAdzuna], RateLimit: cfg.Sources.Adzuna.RateLimit})
	return sm
}

// NewStore opens the configured remote backend.
func NewStore(ctx context.Context, cfg *config.Config) (storage.Store, func(), error) {
	switch cfg.Database.Backend {
	case config.BackendPostgres:
		pg, err := storage.ConnectPostgres(ctx, cfg.Database.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		pg.CreateTables = cfg.Database.CreateTables
		return pg, pg.Close, nil
	default:
		sb, err := storage.NewSupabaseStore(cfg.Database.SupabaseURL, cfg.Database.SupabaseKey)
		if err != nil {
			return nil, nil, err
		}
		return sb, func() {}, nil
	}
}

// Build wires the whole pipeline from cfg.
func Build(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Pipeline, error) {
	p := &Pipeline{}

	rates, closeRates, err := NewRates(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init fx rates: %w", err)
	}
	p.close = append(p.close, closeRates)
	p.Rates = rates

	client := httpclient.NewHttpClient(cfg.ScrapeTimeout())
	p.Sources = NewSources(cfg, client)

	opts, err := ExecutorOptions(cfg)
	if err != nil {
		p.Close()
		return nil, err
	}
	checkpoints := checkpoint.NewStore(cfg.OutputDir, cfg.RunID, logger)
	deps := Deps{
		Sources:     p.Sources,
		Executor:    scraper.NewExecutor(p.Sources, salary.NewNormalizer(rates, logger), checkpoints, opts, logger),
		Checkpoints: checkpoints,
		Merger:      merge.NewMerger(cfg.Priority(), logger),
	}

	if cfg.Analysis.Enabled {
		deps.Analyzer = analysis.NewChatAnalyzer(nil, cfg.Analysis.Endpoint, cfg.Analysis.APIKey, cfg.Analysis.Model)
	}

	if cfg.EnableRemoteUpsert {
		store, closeStore, err := NewStore(ctx, cfg)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("init remote store: %w", err)
		}
		p.close = append(p.close, closeStore)
		deps.Sink = storage.NewSink(store, logger)
	}

	p.Orchestrator = New(cfg, deps, logger)
	return p, nil
}
