package config

import (
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestStartURLStringsFromShelf(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Crawl.Shelf = "young-adult"

	urls := cfg.Crawl.StartURLStrings()
	if len(urls) != 1 {
		t.Fatalf("expected 1 URL, got %d", len(urls))
	}
	want := "https://www.goodreads.com/shelf/show/young-adult"
	if urls[0] != want {
		t.Errorf("got %q, want %q", urls[0], want)
	}
}

func TestStartURLStringsExplicit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Crawl.StartURLs = []string{"https://www.goodreads.com/shelf/show/scifi?page=3"}
	cfg.Crawl.Shelf = "ignored"

	urls := cfg.Crawl.StartURLStrings()
	if len(urls) != 1 || urls[0] != "https://www.goodreads.com/shelf/show/scifi?page=3" {
		t.Errorf("explicit start URLs should win, got %v", urls)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no shelf or urls", func(c *Config) { c.Crawl.Shelf = ""; c.Crawl.StartURLs = nil }},
		{"zero results", func(c *Config) { c.Crawl.ResultsWanted = 0 }},
		{"zero max pages", func(c *Config) { c.Crawl.MaxPages = 0 }},
		{"zero concurrency", func(c *Config) { c.Crawl.Concurrency = 0 }},
		{"bad storage type", func(c *Config) { c.Storage.Type = "parquet" }},
		{"mongodb without uri", func(c *Config) { c.Storage.Type = "mongodb"; c.Storage.MongoURI = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"bad proxy rotation", func(c *Config) { c.Proxy.Enabled = true; c.Proxy.Rotation = "sticky" }},
		{"bad start url", func(c *Config) { c.Crawl.StartURLs = []string{"ftp://example.com"} }},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := DefaultConfig()
			c.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestValidateMultiStorageType(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Type = "jsonl, csv"
	if err := Validate(cfg); err != nil {
		t.Errorf("comma-separated storage types should validate: %v", err)
	}

	cfg.Storage.Type = "jsonl, parquet"
	if err := Validate(cfg); err == nil {
		t.Error("unknown type in list should fail")
	}
}

func TestValidateURL(t *testing.T) {
	if err := ValidateURL("https://www.goodreads.com/shelf/show/fantasy"); err != nil {
		t.Errorf("valid URL rejected: %v", err)
	}
	if err := ValidateURL("not a url"); err == nil {
		t.Error("garbage URL accepted")
	}
	if err := ValidateURL("ftp://example.com/x"); err == nil {
		t.Error("non-http scheme accepted")
	}
}
