package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Crawl.Shelf == "" && len(cfg.Crawl.StartURLs) == 0 {
		return fmt.Errorf("crawl.shelf or crawl.start_urls must be set")
	}
	if cfg.Crawl.ResultsWanted < 1 {
		return fmt.Errorf("crawl.results_wanted must be >= 1, got %d", cfg.Crawl.ResultsWanted)
	}
	if cfg.Crawl.MaxPages < 1 {
		return fmt.Errorf("crawl.max_pages must be >= 1, got %d", cfg.Crawl.MaxPages)
	}
	if cfg.Crawl.Concurrency < 1 {
		return fmt.Errorf("crawl.concurrency must be >= 1, got %d", cfg.Crawl.Concurrency)
	}
	if cfg.Crawl.Concurrency > 1000 {
		return fmt.Errorf("crawl.concurrency must be <= 1000, got %d", cfg.Crawl.Concurrency)
	}
	if cfg.Crawl.RequestTimeout <= 0 {
		return fmt.Errorf("crawl.request_timeout must be > 0")
	}
	if cfg.Crawl.PolitenessDelay < 0 {
		return fmt.Errorf("crawl.politeness_delay must be >= 0")
	}
	if cfg.Crawl.MaxRetries < 0 {
		return fmt.Errorf("crawl.max_retries must be >= 0, got %d", cfg.Crawl.MaxRetries)
	}
	for _, rawURL := range cfg.Crawl.StartURLs {
		if err := ValidateURL(rawURL); err != nil {
			return fmt.Errorf("invalid start URL %q: %w", rawURL, err)
		}
	}

	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}

	if cfg.Proxy.Enabled {
		if cfg.Proxy.Rotation != "round_robin" && cfg.Proxy.Rotation != "random" {
			return fmt.Errorf("proxy.rotation must be 'round_robin' or 'random', got %q", cfg.Proxy.Rotation)
		}
		for _, proxyURL := range cfg.Proxy.URLs {
			if _, err := url.Parse(proxyURL); err != nil {
				return fmt.Errorf("invalid proxy URL %q: %w", proxyURL, err)
			}
		}
	}

	validStorageTypes := map[string]bool{
		"json": true, "jsonl": true, "csv": true, "mongodb": true,
	}
	// Comma-separated types fan out to multiple backends.
	for _, t := range strings.Split(cfg.Storage.Type, ",") {
		t = strings.TrimSpace(t)
		if !validStorageTypes[t] {
			return fmt.Errorf("storage.type %q is not supported (valid: json, jsonl, csv, mongodb)", t)
		}
		if t == "mongodb" && cfg.Storage.MongoURI == "" {
			return fmt.Errorf("storage.mongo_uri is required when storage.type includes mongodb")
		}
	}
	if cfg.Storage.BatchSize < 1 {
		return fmt.Errorf("storage.batch_size must be >= 1, got %d", cfg.Storage.BatchSize)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	return nil
}

// ValidateURL checks if a URL string is usable as a crawl seed.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host")
	}
	return nil
}
