package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and defaults.
// Priority (highest to lowest): env vars > config file > defaults.
// CLI flag overrides are applied by the command layer on top of this.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("SHELFSTALK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("shelfstalk")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".shelfstalk"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if not explicitly specified
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("crawl.shelf", cfg.Crawl.Shelf)
	v.SetDefault("crawl.results_wanted", cfg.Crawl.ResultsWanted)
	v.SetDefault("crawl.max_pages", cfg.Crawl.MaxPages)
	v.SetDefault("crawl.collect_details", cfg.Crawl.CollectDetails)
	v.SetDefault("crawl.concurrency", cfg.Crawl.Concurrency)
	v.SetDefault("crawl.request_timeout", cfg.Crawl.RequestTimeout)
	v.SetDefault("crawl.politeness_delay", cfg.Crawl.PolitenessDelay)
	v.SetDefault("crawl.max_retries", cfg.Crawl.MaxRetries)
	v.SetDefault("crawl.user_agents", cfg.Crawl.UserAgents)

	v.SetDefault("fetcher.follow_redirects", cfg.Fetcher.FollowRedirects)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.idle_conn_timeout", cfg.Fetcher.IdleConnTimeout)
	v.SetDefault("fetcher.max_idle_conns", cfg.Fetcher.MaxIdleConns)

	v.SetDefault("proxy.enabled", cfg.Proxy.Enabled)
	v.SetDefault("proxy.rotation", cfg.Proxy.Rotation)
	v.SetDefault("proxy.rotate_on_fail", cfg.Proxy.RotateOnFail)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.output_path", cfg.Storage.OutputPath)
	v.SetDefault("storage.batch_size", cfg.Storage.BatchSize)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
}
