package sources

import (
	"context"
	"errors"

	"ai-job-scraper-go/internal/models"
)

// ErrUnsupportedCountry is returned by a board that has no listings for the
// requested country.
var ErrUnsupportedCountry = errors.New("country not supported by source")

// Query is one (keyword, location) search on one board.
type Query struct {
	Keyword       string
	Location      string
	CountryCode   string
	ResultsWanted int
}

// Scraper fetches raw postings for a single query from one job board.
type Scraper interface {
	Platform() models.Platform
	ScrapeOne(ctx context.Context, q Query) ([]models.RawPosting, error)
	RateLimit() int // requests per minute
}

// SourceConfig holds per-board settings.
type SourceConfig struct {
	Enabled   bool `json:"enabled"`
	RateLimit int  `json:"rate_limit"`
}

// SourceManager maps platform ids to their scrapers.
type SourceManager struct {
	sources map[models.Platform]Scraper
	configs map[models.Platform]SourceConfig
}

// NewSourceManager creates an empty registry.
func NewSourceManager() *SourceManager {
	return &SourceManager{
		sources: make(map[models.Platform]Scraper),
		configs: make(map[models.Platform]SourceConfig),
	}
}

// RegisterSource adds or replaces the scraper for its platform. A zero
// rate limit takes the scraper's own default.
func (sm *SourceManager) RegisterSource(source Scraper, config SourceConfig) {
	if config.RateLimit <= 0 {
		config.RateLimit = source.RateLimit()
	}
	sm.sources[source.Platform()] = source
	sm.configs[source.Platform()] = config
}

// GetSource returns the scraper for p if it is registered and enabled.
func (sm *SourceManager) GetSource(p models.Platform) (Scraper, bool) {
	source, ok := sm.sources[p]
	if !ok || !sm.configs[p].Enabled {
		return nil, false
	}
	return source, true
}

// GetEnabledPlatforms lists enabled platforms in canonical order.
func (sm *SourceManager) GetEnabledPlatforms() []models.Platform {
	var out []models.Platform
	for _, p := range models.Platforms {
		if _, ok := sm.GetSource(p); ok {
			out = append(out, p)
		}
	}
	return out
}

// GetSourceConfig returns configuration for a platform.
func (sm *SourceManager) GetSourceConfig(p models.Platform) (SourceConfig, bool) {
	config, exists := sm.configs[p]
	return config, exists
}
