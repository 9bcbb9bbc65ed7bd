package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ai-job-scraper-go/internal/config"
	"ai-job-scraper-go/internal/orchestrator"
)

func main() {
	configFile := flag.String("config", "config.json", "Configuration file path (.json, .yaml or .yml)")
	flag.Parse()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	// Setup logging
	logger, logFile, err := setupLogging(cfg.LogFile)
	if err != nil {
		log.Fatalf("Failed to setup logging: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	logger.Printf("Starting AI job scraper run %q: regions=%v platforms=%v keywords=%d",
		cfg.RunID, cfg.EnabledRegions, cfg.EnabledPlatforms, len(cfg.Keywords))

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			logger.Printf("Received signal %v, saving checkpoints and shutting down...", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	pipeline, err := orchestrator.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize pipeline: %v", err)
	}
	defer pipeline.Close()

	start := time.Now()
	reports := pipeline.Run(ctx)
	orchestrator.Summary(logger, reports)

	if pipeline.Rates.IsFallback() {
		logger.Printf("Warning: USD amounts used built-in fallback exchange rates")
	}
	logger.Printf("Run %q finished in %v", cfg.RunID, time.Since(start).Round(time.Second))
}

// setupLogging writes to stdout and, when configured, to a log file.
func setupLogging(logFile string) (*log.Logger, *os.File, error) {
	if logFile == "" {
		return log.New(os.Stdout, "[SCRAPER] ", log.LstdFlags), nil, nil
	}

	// Ensure log directory exists
	if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logOutput, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := log.New(io.MultiWriter(os.Stdout, logOutput), "[SCRAPER] ", log.LstdFlags)
	return logger, logOutput, nil
}
