package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"ai-job-scraper-go/internal/config"
	"ai-job-scraper-go/internal/fx"
	"ai-job-scraper-go/internal/models"
	"ai-job-scraper-go/internal/orchestrator"
	"ai-job-scraper-go/internal/relevance"
	"ai-job-scraper-go/internal/scraper/sources"
	"ai-job-scraper-go/pkg/httpclient"
)

func main() {
	var (
		configFile = flag.String("config", "config.json", "Configuration file path")
		command    = flag.String("cmd", "scrape", "Command to run: scrape, regions, fx, test, config, sources")
		region     = flag.String("region", "", "Restrict to one region (US, UK, AU, SG, HK)")
		source     = flag.String("source", "", "Platform for -cmd test (linkedin, adzuna)")
		keyword    = flag.String("keyword", "AI Engineer", "Keyword for -cmd test")
		location   = flag.String("location", "", "Location for -cmd test (defaults to the region's first)")
		amount     = flag.Float64("amount", 0, "Amount to convert with -cmd fx")
		from       = flag.String("from", "", "Currency to convert from with -cmd fx")
		output     = flag.String("output", "console", "Output format: console, json")
		write      = flag.String("write", "", "Write the effective configuration to this file with -cmd config")
		verbose    = flag.Bool("verbose", false, "Verbose output")
		help       = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	// Show help if requested
	if *help {
		printUsage()
		os.Exit(0)
	}

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *region != "" {
		cfg.EnabledRegions = []string{*region}
	}

	logger := log.New(os.Stdout, "", log.LstdFlags)
	if !*verbose {
		logger = log.New(log.Writer(), "", 0)
	}

	// Execute command
	switch *command {
	case "scrape":
		runScrapeCommand(cfg, *output, logger)
	case "regions":
		runRegionsCommand(cfg, *output)
	case "fx":
		runFXCommand(cfg, *amount, *from, *output, logger)
	case "test":
		runTestCommand(cfg, *source, *keyword, *location, *output)
	case "config":
		runConfigCommand(cfg, *output, *write)
	case "sources":
		runSourcesCommand(cfg, *output)
	default:
		fmt.Printf("Unknown command: %s\n", *command)
		printUsage()
		os.Exit(1)
	}
}

func runScrapeCommand(cfg *config.Config, output string, logger *log.Logger) {
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	fmt.Printf("Scraping regions %v...\n", cfg.EnabledRegions)

	ctx := context.Background()
	pipeline, err := orchestrator.Build(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize pipeline: %v", err)
	}
	defer pipeline.Close()

	reports := pipeline.Run(ctx)
	if output == "json" {
		outputJSON(reportsJSON(reports))
		return
	}
	orchestrator.Summary(log.New(os.Stdout, "", 0), reports)
}

type reportView struct {
	Region     models.Region `json:"region"`
	Skipped    bool          `json:"skipped"`
	Records    int           `json:"records"`
	Requests   int           `json:"requests"`
	Failed     int           `json:"failed_requests"`
	OutputFile string        `json:"output_file,omitempty"`
	Inserted   *int          `json:"inserted,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   string        `json:"duration"`
}

func reportsJSON(reports []orchestrator.RegionReport) []reportView {
	views := make([]reportView, 0, len(reports))
	for _, r := range reports {
		v := reportView{
			Region:     r.Region,
			Skipped:    r.Skipped,
			Records:    r.Records,
			Requests:   r.Stats.RequestsAttempted,
			Failed:     r.Stats.RequestsFailed,
			OutputFile: r.OutputFile,
			Duration:   r.Duration.Round(time.Millisecond).String(),
		}
		if r.Sync != nil {
			v.Inserted = &r.Sync.Inserted
		}
		if r.Err != nil {
			v.Error = r.Err.Error()
		}
		views = append(views, v)
	}
	return views
}

func runRegionsCommand(cfg *config.Config, output string) {
	var infos []models.RegionInfo
	for _, code := range models.Regions {
		info, err := cfg.Region(string(code))
		if err != nil {
			fmt.Printf("%s: %v\n", code, err)
			continue
		}
		infos = append(infos, info)
	}

	if output == "json" {
		outputJSON(infos)
		return
	}
	enabled := make(map[models.Region]bool)
	for _, r := range cfg.EnabledRegions {
		if code, ok := models.ParseRegion(r); ok {
			enabled[code] = true
		}
	}
	fmt.Println("Regions:")
	for _, info := range infos {
		status := "disabled"
		if enabled[info.Code] {
			status = "enabled"
		}
		fmt.Printf("- %s %s (%s): country=%s currency=%s table=%s\n", info.Code, info.Name, status, info.CountryCode, info.Currency, info.TableName())
		fmt.Printf("  locations: %s\n", strings.Join(info.DefaultLocations, "; "))
	}
}

func runFXCommand(cfg *config.Config, amount float64, from, output string, logger *log.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rates, closeRates, err := orchestrator.NewRates(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize exchange rates: %v", err)
	}
	defer closeRates()

	if from != "" {
		if code := fx.NormalizeCode(from); !fx.Supported(code) {
			fmt.Printf("Warning: %s has no fallback rate; conversion needs the live provider\n", code)
		}
		usd, err := rates.Convert(ctx, amount, from, "USD")
		if err != nil {
			fmt.Printf("Warning: %v\n", err)
		}
		fmt.Printf("%.2f %s = %.2f USD\n", amount, strings.ToUpper(from), usd)
		return
	}

	table := rates.Rates(ctx)
	if output == "json" {
		outputJSON(map[string]any{
			"fallback":    rates.IsFallback(),
			"fetched_at":  rates.FetchedAt(),
			"rate_to_usd": table,
		})
		return
	}
	fmt.Printf("Exchange rates to USD (fallback=%t, fetched %s):\n", rates.IsFallback(), rates.FetchedAt().Format("2006-01-02 15:04:05"))
	codes := make([]string, 0, len(table))
	for code := range table {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		fmt.Printf("  %s: %.4f\n", code, table[code])
	}
}

func runTestCommand(cfg *config.Config, sourceName, keyword, location, output string) {
	platform, ok := models.ParsePlatform(sourceName)
	if !ok {
		fmt.Printf("❌ Unknown source: %q. Available sources: linkedin, adzuna\n", sourceName)
		os.Exit(1)
	}
	regionCode := "US"
	if len(cfg.EnabledRegions) > 0 {
		regionCode = cfg.EnabledRegions[0]
	}
	info, err := cfg.Region(regionCode)
	if err != nil {
		log.Fatalf("Invalid region: %v", err)
	}
	if location == "" {
		location = info.DefaultLocations[0]
	}

	sm := orchestrator.NewSources(cfg, httpclient.NewHttpClient(cfg.ScrapeTimeout()))
	src, ok := sm.GetSource(platform)
	if !ok {
		fmt.Printf("❌ %s is disabled in the configuration\n", platform.DisplayName())
		os.Exit(1)
	}

	fmt.Printf("Testing %s: %q in %q (%s)\n", platform.DisplayName(), keyword, location, info.CountryCode)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ScrapeTimeout())
	defer cancel()

	start := time.Now()
	raws, err := src.ScrapeOne(ctx, sources.Query{
		Keyword:       keyword,
		Location:      location,
		CountryCode:   info.CountryCode,
		ResultsWanted: 10,
	})
	if err != nil {
		fmt.Printf("❌ %s test failed: %v\n", platform.DisplayName(), err)
		os.Exit(1)
	}
	fmt.Printf("✅ %s test passed: fetched %d postings in %v\n", platform.DisplayName(), len(raws), time.Since(start))

	if output == "json" {
		outputJSON(raws)
		return
	}
	for _, raw := range raws {
		mark := " "
		if relevance.IsAIRelated(raw.Title, raw.Description) {
			mark = "*"
		}
		fmt.Printf(" %s %s @ %s (%s)\n", mark, raw.Title, raw.Company, raw.Location)
	}
}

func runConfigCommand(cfg *config.Config, output, write string) {
	if write != "" {
		if err := cfg.SaveConfig(write); err != nil {
			log.Fatalf("Failed to write configuration: %v", err)
		}
		fmt.Printf("Configuration written to %s\n", write)
		return
	}
	if output == "json" {
		outputJSON(cfg)
		return
	}
	fmt.Println("Current Configuration:")
	fmt.Printf("Run ID: %s\n", cfg.RunID)
	fmt.Printf("Output Dir: %s\n", cfg.OutputDir)
	fmt.Printf("Regions: %v\n", cfg.EnabledRegions)
	fmt.Printf("Platforms: %v (priority %v)\n", cfg.EnabledPlatforms, cfg.CrossPlatformPriority)
	fmt.Printf("Keywords: %d\n", len(cfg.Keywords))
	fmt.Printf("Results Per Search: %d\n", cfg.ResultsPerSearch)
	fmt.Printf("Max Total Jobs: %d\n", cfg.MaxTotalJobs)
	fmt.Printf("Filter AI Related: %t\n", cfg.FilterAIRelated)
	fmt.Printf("Remote Upsert: %t (%s)\n", cfg.EnableRemoteUpsert, cfg.Database.Backend)
	fmt.Printf("Database URL: %s\n", maskString(cfg.Database.SupabaseURL+cfg.Database.DatabaseURL))
	fmt.Printf("Database Key: %s\n", maskString(cfg.Database.SupabaseKey))
	fmt.Printf("Adzuna App Key: %s\n", maskString(cfg.Sources.Adzuna.AppKey))
	fmt.Printf("Analysis Enabled: %t\n", cfg.Analysis.Enabled)
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Validation: %v\n", err)
	} else {
		fmt.Println("Validation: ok")
	}
}

func runSourcesCommand(cfg *config.Config, output string) {
	sm := orchestrator.NewSources(cfg, httpclient.NewHttpClient(cfg.ScrapeTimeout()))
	type sourceView struct {
		Platform  models.Platform `json:"platform"`
		Enabled   bool            `json:"enabled"`
		RateLimit int             `json:"rate_limit"`
	}
	var views []sourceView
	for _, p := range models.Platforms {
		sc, ok := sm.GetSourceConfig(p)
		if !ok {
			continue
		}
		views = append(views, sourceView{Platform: p, Enabled: sc.Enabled, RateLimit: sc.RateLimit})
	}

	if output == "json" {
		outputJSON(views)
		return
	}
	fmt.Println("Available Job Sources:")
	for _, v := range views {
		status := "disabled"
		if v.Enabled {
			status = "enabled"
		}
		fmt.Printf("- %s: %s (rate limit: %d/min)\n", v.Platform.DisplayName(), status, v.RateLimit)
	}
}

func outputJSON(data interface{}) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		log.Printf("Failed to encode JSON: %v", err)
	}
}

func maskString(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "***" + s[len(s)-4:]
}

func printUsage() {
	fmt.Println("AI Job Scraper CLI Tool")
	fmt.Println("Usage:")
	fmt.Println("  scraper-cli [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  -cmd scrape    - Run the pipeline for the enabled regions")
	fmt.Println("  -cmd regions   - List regions with locations and tables")
	fmt.Println("  -cmd fx        - Show exchange rates or convert an amount to USD")
	fmt.Println("  -cmd test      - Run one query against a job board")
	fmt.Println("  -cmd config    - Show configuration")
	fmt.Println("  -cmd sources   - List available sources")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -config string   - Configuration file (default: config.json)")
	fmt.Println("  -region string   - Restrict to one region (US, UK, AU, SG, HK)")
	fmt.Println("  -source string   - Job board for -cmd test (linkedin, adzuna)")
	fmt.Println("  -keyword string  - Search keyword for -cmd test")
	fmt.Println("  -location string - Search location for -cmd test")
	fmt.Println("  -amount float    - Amount for -cmd fx")
	fmt.Println("  -from string     - Currency code or symbol for -cmd fx")
	fmt.Println("  -write string    - File to save the effective configuration to (-cmd config)")
	fmt.Println("  -output string   - Output format: console, json (default: console)")
	fmt.Println("  -verbose         - Verbose output")
	fmt.Println("  -help            - Show this help message")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  scraper-cli -cmd scrape -region UK                     # Scrape only the UK")
	fmt.Println("  scraper-cli -cmd test -source adzuna -region AU        # One Adzuna query in Sydney")
	fmt.Println("  scraper-cli -cmd fx -amount 750000 -from HKD           # Convert HKD to USD")
	fmt.Println("  scraper-cli -cmd config -write config.json             # Save defaults plus overrides")
}
