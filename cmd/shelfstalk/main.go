package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"shelfstalk/internal/config"
	"shelfstalk/internal/engine"
	"shelfstalk/internal/fetcher"
	"shelfstalk/internal/storage"
	"shelfstalk/internal/types"
)

var (
	cfgFile     string
	verbose     bool
	shelf       string
	results     int
	maxPages    int
	details     bool
	outputPath  string
	outputType  string
	concurrent  int
	delay       string
	cookies     string
	cookiesJSON string
	maxRetries  int
	userAgent   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "shelfstalk",
		Short: "ShelfStalk — Goodreads shelf scraper",
		Long: `ShelfStalk crawls Goodreads shelf listings and collects book records.

Features:
  • Shelf pagination with a configurable result budget
  • JSON-LD extraction with CSS selector fallbacks per field
  • Optional per-book detail pages (description, ISBN, publisher, genres)
  • JSON, JSONL, CSV and MongoDB export
  • Proxy rotation and User-Agent randomization
  • Cookie passthrough for logged-in shelves`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// scrapeCmd creates the "scrape" subcommand.
func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape [url...]",
		Short: "Scrape a Goodreads shelf",
		Long: "Scrape book records from a Goodreads shelf. Pass explicit listing URLs\n" +
			"as arguments, or use --shelf to build the URL from a shelf name.",
		Args: cobra.ArbitraryArgs,
		RunE: runScrape,
	}

	cmd.Flags().StringVarP(&shelf, "shelf", "s", "", "shelf name, e.g. fantasy or young-adult")
	cmd.Flags().IntVarP(&results, "results", "r", 0, "number of books to collect (0 = use config default)")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "maximum listing pages per start URL (0 = use config default)")
	cmd.Flags().BoolVar(&details, "details", true, "fetch each book's page for full details")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output directory")
	cmd.Flags().StringVarP(&outputType, "format", "f", "", "output format: json, jsonl, csv, mongodb (comma-separated for multiple)")
	cmd.Flags().IntVarP(&concurrent, "concurrency", "n", 0, "number of concurrent workers")
	cmd.Flags().StringVar(&delay, "delay", "", "politeness delay between requests per domain")
	cmd.Flags().StringVar(&cookies, "cookies", "", "raw Cookie header value")
	cmd.Flags().StringVar(&cookiesJSON, "cookies-json", "", "cookies as a JSON array or object")
	cmd.Flags().IntVar(&maxRetries, "max-retries", -1, "max retries per failed request (-1 = use config default)")
	cmd.Flags().StringVar(&userAgent, "user-agent", "", "custom User-Agent string (disables rotation)")

	return cmd
}

// runScrape executes the scrape command.
func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	applyCLIOverrides(cmd, cfg, args)

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := setupLogger(cfg)

	logger.Info("starting scrape",
		"shelf", cfg.Crawl.Shelf,
		"start_urls", cfg.Crawl.StartURLStrings(),
		"results_wanted", cfg.Crawl.ResultsWanted,
		"collect_details", cfg.Crawl.CollectDetails,
		"output", cfg.Storage.OutputPath,
		"format", cfg.Storage.Type,
	)

	httpFetcher, err := fetcher.NewHTTPFetcher(cfg, logger)
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}

	eng := engine.New(cfg, logger, httpFetcher, store)

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down...", "signal", sig)
		eng.Stop()
	}()

	start := time.Now()
	err = eng.Run(context.Background())
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, types.ErrCrawlStopped) {
		return fmt.Errorf("run crawl: %w", err)
	}

	elapsed := time.Since(start)
	stats := eng.Stats().Snapshot()

	fmt.Printf("\n✅ Scrape complete in %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("   Requests:  %v sent, %v failed\n", stats["requests_sent"], stats["requests_failed"])
	fmt.Printf("   Pages:     %v listing, %v detail\n", stats["list_pages"], stats["detail_pages"])
	fmt.Printf("   Books:     %v found, %v saved\n", stats["books_found"], stats["books_saved"])
	fmt.Printf("   Data:      %v bytes downloaded\n", stats["bytes_downloaded"])
	fmt.Printf("   Output:    %s\n", cfg.Storage.OutputPath)

	if stats["books_saved"] == int64(0) {
		fmt.Println("\n💡 No books were saved. Some shelves require a logged-in session.")
		fmt.Println("   Try passing session cookies:")
		fmt.Println("     shelfstalk scrape --shelf fantasy --cookies-json '[{\"name\":\"...\",\"value\":\"...\"}]'")
	}

	return nil
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ShelfStalk %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Crawl:\n")
			fmt.Printf("  Shelf:             %s\n", cfg.Crawl.Shelf)
			fmt.Printf("  Results Wanted:    %d\n", cfg.Crawl.ResultsWanted)
			fmt.Printf("  Max Pages:         %d\n", cfg.Crawl.MaxPages)
			fmt.Printf("  Collect Details:   %v\n", cfg.Crawl.CollectDetails)
			fmt.Printf("  Concurrency:       %d\n", cfg.Crawl.Concurrency)
			fmt.Printf("  Request Timeout:   %s\n", cfg.Crawl.RequestTimeout)
			fmt.Printf("  Politeness Delay:  %s\n", cfg.Crawl.PolitenessDelay)
			fmt.Printf("  Max Retries:       %d\n", cfg.Crawl.MaxRetries)
			fmt.Printf("  User Agents:       %d configured\n", len(cfg.Crawl.UserAgents))
			fmt.Printf("\nFetcher:\n")
			fmt.Printf("  Follow Redirects:  %v\n", cfg.Fetcher.FollowRedirects)
			fmt.Printf("  Max Body Size:     %d bytes\n", cfg.Fetcher.MaxBodySize)
			fmt.Printf("\nProxy:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Proxy.Enabled)
			fmt.Printf("  Rotation:          %s\n", cfg.Proxy.Rotation)
			fmt.Printf("  Count:             %d\n", len(cfg.Proxy.URLs))
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Type:              %s\n", cfg.Storage.Type)
			fmt.Printf("  Output Path:       %s\n", cfg.Storage.OutputPath)
			fmt.Printf("  Batch Size:        %d\n", cfg.Storage.BatchSize)
			return nil
		},
	}
	return cmd
}

// setupLogger creates a structured logger from the logging config.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cmd *cobra.Command, cfg *config.Config, args []string) {
	if len(args) > 0 {
		cfg.Crawl.StartURLs = args
	}
	if shelf != "" {
		cfg.Crawl.Shelf = shelf
	}
	if results > 0 {
		cfg.Crawl.ResultsWanted = results
	}
	if maxPages > 0 {
		cfg.Crawl.MaxPages = maxPages
	}
	if cmd.Flags().Changed("details") {
		cfg.Crawl.CollectDetails = details
	}
	if concurrent > 0 {
		cfg.Crawl.Concurrency = concurrent
	}
	if delay != "" {
		if d, err := time.ParseDuration(delay); err == nil {
			cfg.Crawl.PolitenessDelay = d
		}
	}
	if cookies != "" {
		cfg.Crawl.Cookies = cookies
	}
	if cookiesJSON != "" {
		cfg.Crawl.CookiesJSON = cookiesJSON
	}
	if maxRetries >= 0 {
		cfg.Crawl.MaxRetries = maxRetries
	}
	if userAgent != "" {
		cfg.Crawl.UserAgents = []string{userAgent}
	}
	if outputPath != "" {
		cfg.Storage.OutputPath = outputPath
	}
	if outputType != "" {
		cfg.Storage.Type = strings.ToLower(outputType)
	}
}
