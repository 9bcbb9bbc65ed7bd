package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"ai-job-scraper-go/internal/models"
)

// ErrRegionInvalid marks a region that has no country code or no locations.
var ErrRegionInvalid = errors.New("region config invalid")

const (
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"
)

// Config holds the application configuration
type Config struct {
	RunID     string `json:"run_id" yaml:"run_id"`
	OutputDir string `json:"output_dir" yaml:"output_dir"`
	LogFile   string `json:"log_file" yaml:"log_file"`

	EnabledRegions   []string            `json:"enabled_regions" yaml:"enabled_regions"`
	EnabledPlatforms []string            `json:"enabled_platforms" yaml:"enabled_platforms"`
	Keywords         []string            `json:"keywords" yaml:"keywords"`
	Locations        map[string][]string `json:"locations" yaml:"locations"`

	ResultsPerSearch          int      `json:"results_per_search" yaml:"results_per_search"`
	MaxTotalJobs              int      `json:"max_total_jobs" yaml:"max_total_jobs"`
	MinPostedDate             string   `json:"min_posted_date" yaml:"min_posted_date"`
	FilterAIRelated           bool     `json:"filter_ai_related" yaml:"filter_ai_related"`
	RequestDelayS             float64  `json:"request_delay_s" yaml:"request_delay_s"`
	CheckpointIntervalTriples int      `json:"checkpoint_interval_triples" yaml:"checkpoint_interval_triples"`
	CheckpointIntervalSeconds int      `json:"checkpoint_interval_seconds" yaml:"checkpoint_interval_seconds"`
	RetryAttempts             int      `json:"retry_attempts" yaml:"retry_attempts"`
	RetryBaseDelayS           float64  `json:"retry_base_delay_s" yaml:"retry_base_delay_s"`
	ScrapeTimeoutS            int      `json:"scrape_timeout_s" yaml:"scrape_timeout_s"`
	FXTTLS                    int      `json:"fx_ttl_s" yaml:"fx_ttl_s"`
	CrossPlatformPriority     []string `json:"cross_platform_priority" yaml:"cross_platform_priority"`
	EnableRemoteUpsert        bool     `json:"enable_remote_upsert" yaml:"enable_remote_upsert"`

	Sources  SourcesConfig  `json:"sources" yaml:"sources"`
	Database DatabaseConfig `json:"database" yaml:"database"`
	FX       FXConfig       `json:"fx" yaml:"fx"`
	Analysis AnalysisConfig `json:"analysis" yaml:"analysis"`
}

// SourcesConfig holds configuration for all job sources
type SourcesConfig struct {
	LinkedIn LinkedInConfig `json:"linkedin" yaml:"linkedin"`
	Adzuna   AdzunaConfig   `json:"adzuna" yaml:"adzuna"`
}

type LinkedInConfig struct {
	RateLimit        int    `json:"rate_limit" yaml:"rate_limit"`
	FetchDescription bool   `json:"fetch_description" yaml:"fetch_description"`
	UserAgent        string `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
}

type AdzunaConfig struct {
	RateLimit int    `json:"rate_limit" yaml:"rate_limit"`
	AppID     string `json:"app_id" yaml:"app_id"`
	AppKey    string `json:"app_key" yaml:"app_key"`
}

// DatabaseConfig selects the remote table backend.
type DatabaseConfig struct {
	Backend      string `json:"backend" yaml:"backend"`
	SupabaseURL  string `json:"supabase_url" yaml:"supabase_url"`
	SupabaseKey  string `json:"supabase_key" yaml:"supabase_key"`
	DatabaseURL  string `json:"database_url" yaml:"database_url"`
	CreateTables bool   `json:"create_tables" yaml:"create_tables"`
}

type FXConfig struct {
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	CacheFile string `json:"cache_file" yaml:"cache_file"`
	RedisURL  string `json:"redis_url" yaml:"redis_url"`
}

type AnalysisConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	APIKey   string `json:"api_key" yaml:"api_key"`
	Model    string `json:"model" yaml:"model"`
}

// DefaultKeywords are the search strings used when none are configured.
var DefaultKeywords = []string{
	"AI Engineer",
	"Machine Learning Engineer",
	"Data Scientist",
	"ML Engineer",
	"NLP Engineer",
	"Computer Vision Engineer",
	"Deep Learning Engineer",
	"LLM Engineer",
	"AI Research Scientist",
	"Generative AI",
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		OutputDir:                 "output",
		LogFile:                   "logs/scraper.log",
		EnabledRegions:            []string{"US", "UK", "AU", "SG", "HK"},
		EnabledPlatforms:          []string{string(models.PlatformLinkedIn), string(models.PlatformAdzuna)},
		Keywords:                  append([]string(nil), DefaultKeywords...),
		ResultsPerSearch:          100,
		FilterAIRelated:           true,
		RequestDelayS:             0.3,
		CheckpointIntervalTriples: 10,
		CheckpointIntervalSeconds: 300,
		RetryAttempts:             3,
		RetryBaseDelayS:           2,
		ScrapeTimeoutS:            60,
		FXTTLS:                    3600,
		CrossPlatformPriority:     []string{string(models.PlatformAdzuna), string(models.PlatformLinkedIn)},
		Sources: SourcesConfig{
			LinkedIn: LinkedInConfig{RateLimit: 20},
			Adzuna:   AdzunaConfig{RateLimit: 25},
		},
		Database: DatabaseConfig{
			Backend: BackendSupabase,
		},
		FX: FXConfig{
			Endpoint:  "https://api.exchangerate-api.com/v4/latest/USD",
			CacheFile: "fx_rates.json",
		},
		Analysis: AnalysisConfig{
			Model: "gpt-4o-mini",
		},
	}
}

// LoadConfig loads configuration from a JSON or YAML file over the defaults,
// then applies environment overrides.
func LoadConfig(filename string) (*Config, error) {
	// Start with default config
	config := DefaultConfig()

	data, err := os.ReadFile(filename)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	case err != nil:
		return nil, fmt.Errorf("failed to open config file: %w", err)
	default:
		if err := decode(filename, data, config); err != nil {
			return nil, err
		}
	}

	config.applyEnv()
	if strings.TrimSpace(config.RunID) == "" {
		config.RunID = uuid.NewString()
	}
	return config, nil
}

func decode(filename string, data []byte, config *Config) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to decode config file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to decode config file: %w", err)
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.RunID, "RUN_ID")
	set(&c.Database.SupabaseURL, "SUPABASE_URL")
	set(&c.Database.SupabaseKey, "SUPABASE_KEY")
	set(&c.Database.DatabaseURL, "DATABASE_URL")
	set(&c.Sources.Adzuna.AppID, "ADZUNA_APP_ID")
	set(&c.Sources.Adzuna.AppKey, "ADZUNA_APP_KEY")
	set(&c.Analysis.APIKey, "OPENAI_API_KEY")
	set(&c.FX.RedisURL, "FX_REDIS_URL")
}

// SaveConfig saves configuration to a JSON file
func (c *Config) SaveConfig(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Unknown region codes are left to Region, so one bad entry only skips
	// that region.
	if len(c.EnabledRegions) == 0 {
		return fmt.Errorf("at least one region must be enabled")
	}

	if len(c.EnabledPlatforms) == 0 {
		return fmt.Errorf("at least one job source must be enabled")
	}
	for _, p := range c.EnabledPlatforms {
		if _, ok := models.ParsePlatform(p); !ok {
			return fmt.Errorf("unknown platform %q", p)
		}
	}
	for _, p := range c.CrossPlatformPriority {
		if _, ok := models.ParsePlatform(p); !ok {
			return fmt.Errorf("unknown platform %q in cross_platform_priority", p)
		}
	}

	if c.ResultsPerSearch <= 0 {
		return fmt.Errorf("results per search must be positive")
	}
	if c.MaxTotalJobs < 0 {
		return fmt.Errorf("max total jobs cannot be negative")
	}
	if _, err := c.MinPosted(); err != nil {
		return err
	}
	if c.RequestDelayS < 0 || c.RetryBaseDelayS < 0 {
		return fmt.Errorf("delays cannot be negative")
	}
	if c.CheckpointIntervalTriples <= 0 || c.CheckpointIntervalSeconds <= 0 {
		return fmt.Errorf("checkpoint intervals must be positive")
	}
	if c.RetryAttempts <= 0 {
		return fmt.Errorf("retry attempts must be positive")
	}
	if c.ScrapeTimeoutS <= 0 {
		return fmt.Errorf("scrape timeout must be positive")
	}
	if c.FXTTLS <= 0 {
		return fmt.Errorf("fx ttl must be positive")
	}

	if c.EnableRemoteUpsert {
		switch c.Database.Backend {
		case BackendSupabase:
			if c.Database.SupabaseURL == "" || c.Database.SupabaseKey == "" {
				return fmt.Errorf("supabase URL and key are required for remote upsert")
			}
		case BackendPostgres:
			if c.Database.DatabaseURL == "" {
				return fmt.Errorf("database URL is required for remote upsert")
			}
		default:
			return fmt.Errorf("unknown database backend %q", c.Database.Backend)
		}
	}

	if c.Analysis.Enabled && c.Analysis.APIKey == "" {
		return fmt.Errorf("analysis API key is required when analysis is enabled")
	}

	return nil
}

// Region resolves an enabled region to its description, applying any
// location override. An override under the canonical code wins over one
// under an alias such as "GB" or "us". It fails with ErrRegionInvalid when
// the region has no country code or no locations.
func (c *Config) Region(code string) (models.RegionInfo, error) {
	r, ok := models.ParseRegion(code)
	if !ok {
		return models.RegionInfo{}, fmt.Errorf("%w: unknown region %q", ErrRegionInvalid, code)
	}
	info, _ := models.LookupRegion(r)
	if locs, ok := c.Locations[string(r)]; ok {
		info.DefaultLocations = locs
	} else {
		for _, key := range slices.Sorted(maps.Keys(c.Locations)) {
			if alias, ok := models.ParseRegion(key); ok && alias == r {
				info.DefaultLocations = c.Locations[key]
				break
			}
		}
	}
	if info.CountryCode == "" {
		return info, fmt.Errorf("%w: %s has no country code", ErrRegionInvalid, r)
	}
	if len(info.DefaultLocations) == 0 {
		return info, fmt.Errorf("%w: %s has no locations", ErrRegionInvalid, r)
	}
	return info, nil
}

// Platforms returns the enabled platforms in configured order.
func (c *Config) Platforms() []models.Platform {
	var out []models.Platform
	for _, p := range c.EnabledPlatforms {
		if pl, ok := models.ParsePlatform(p); ok {
			out = append(out, pl)
		}
	}
	return out
}

// Priority returns the cross-platform priority, first wins.
func (c *Config) Priority() []models.Platform {
	var out []models.Platform
	for _, p := range c.CrossPlatformPriority {
		if pl, ok := models.ParsePlatform(p); ok {
			out = append(out, pl)
		}
	}
	return out
}

// MinPosted parses min_posted_date (YYYY-MM-DD); empty means none.
func (c *Config) MinPosted() (*time.Time, error) {
	if strings.TrimSpace(c.MinPostedDate) == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", strings.TrimSpace(c.MinPostedDate))
	if err != nil {
		return nil, fmt.Errorf("invalid min_posted_date %q: %w", c.MinPostedDate, err)
	}
	return &t, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (c *Config) RequestDelay() time.Duration   { return seconds(c.RequestDelayS) }
func (c *Config) RetryBaseDelay() time.Duration { return seconds(c.RetryBaseDelayS) }
func (c *Config) ScrapeTimeout() time.Duration  { return time.Duration(c.ScrapeTimeoutS) * time.Second }
func (c *Config) FXTTL() time.Duration          { return time.Duration(c.FXTTLS) * time.Second }
func (c *Config) CheckpointInterval() time.Duration {
	return time.Duration(c.CheckpointIntervalSeconds) * time.Second
}
