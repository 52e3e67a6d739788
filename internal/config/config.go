package config

import (
	"net/url"
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// DefaultBaseURL is the site the shelf URL is built against.
const DefaultBaseURL = "https://www.goodreads.com"

// Config is the root configuration for shelfstalk.
type Config struct {
	Crawl   CrawlConfig   `mapstructure:"crawl"   yaml:"crawl"`
	Fetcher FetcherConfig `mapstructure:"fetcher" yaml:"fetcher"`
	Proxy   ProxyConfig   `mapstructure:"proxy"   yaml:"proxy"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// CrawlConfig controls what is scraped and how hard.
type CrawlConfig struct {
	// Shelf names the shelf to scrape when no explicit start URLs are given.
	Shelf string `mapstructure:"shelf" yaml:"shelf"`

	// StartURLs overrides the shelf-derived start URL when non-empty.
	StartURLs []string `mapstructure:"start_urls" yaml:"start_urls"`

	// ResultsWanted caps how many book records are saved.
	ResultsWanted int `mapstructure:"results_wanted" yaml:"results_wanted"`

	// MaxPages caps how many listing pages are paginated through.
	MaxPages int `mapstructure:"max_pages" yaml:"max_pages"`

	// CollectDetails follows each book's detail page for the full record;
	// when false, listing-page summaries go straight to the sink.
	CollectDetails bool `mapstructure:"collect_details" yaml:"collect_details"`

	Concurrency     int           `mapstructure:"concurrency"      yaml:"concurrency"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"  yaml:"request_timeout"`
	PolitenessDelay time.Duration `mapstructure:"politeness_delay" yaml:"politeness_delay"`
	MaxRetries      int           `mapstructure:"max_retries"      yaml:"max_retries"`
	UserAgents      []string      `mapstructure:"user_agents"      yaml:"user_agents"`

	// Cookies is raw Cookie-header material sent with every request.
	Cookies string `mapstructure:"cookies" yaml:"cookies"`

	// CookiesJSON is an alternative cookie encoding: a JSON array of
	// {name, value} objects or a flat name->value object.
	CookiesJSON string `mapstructure:"cookies_json" yaml:"cookies_json"`
}

// StartURLStrings returns the crawl's seed URLs: the explicit start URLs
// when configured, otherwise the shelf listing URL.
func (c *CrawlConfig) StartURLStrings() []string {
	if len(c.StartURLs) > 0 {
		return c.StartURLs
	}
	return []string{DefaultBaseURL + "/shelf/show/" + url.PathEscape(c.Shelf)}
}

// FetcherConfig controls the HTTP fetcher.
type FetcherConfig struct {
	FollowRedirects bool          `mapstructure:"follow_redirects"  yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
}

// ProxyConfig controls proxy rotation.
type ProxyConfig struct {
	Enabled      bool     `mapstructure:"enabled"        yaml:"enabled"`
	Rotation     string   `mapstructure:"rotation"       yaml:"rotation"`
	URLs         []string `mapstructure:"urls"           yaml:"urls"`
	RotateOnFail bool     `mapstructure:"rotate_on_fail" yaml:"rotate_on_fail"`
}

// StorageConfig controls the output sink.
type StorageConfig struct {
	Type       string `mapstructure:"type"        yaml:"type"`
	OutputPath string `mapstructure:"output_path" yaml:"output_path"`
	BatchSize  int    `mapstructure:"batch_size"  yaml:"batch_size"`

	MongoURI        string `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Crawl: CrawlConfig{
			Shelf:           "fantasy",
			ResultsWanted:   100,
			MaxPages:        999,
			CollectDetails:  true,
			Concurrency:     15,
			RequestTimeout:  45 * time.Second,
			PolitenessDelay: 150 * time.Millisecond,
			MaxRetries:      4,
			UserAgents:      defaultUserAgents(),
		},
		Fetcher: FetcherConfig{
			FollowRedirects: true,
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    100,
		},
		Proxy: ProxyConfig{
			Enabled:      false,
			Rotation:     "round_robin",
			RotateOnFail: true,
		},
		Storage: StorageConfig{
			Type:       "jsonl",
			OutputPath: "./output",
			BatchSize:  50,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// defaultUserAgents is the rotation pool of desktop browser identities.
func defaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:120.0) Gecko/20100101 Firefox/120.0",
	}
}
