package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Universe struct {
		DirectoryURL string `yaml:"directory_url"`
		OverrideFile string `yaml:"override_file"`
		MaxTickers   int    `yaml:"max_tickers"`
	} `yaml:"universe"`
	Provider struct {
		PrimaryTimeoutSec int    `yaml:"primary_timeout_sec"`
		Retries           int    `yaml:"retries"`
		RetryPauseSec     int    `yaml:"retry_pause_sec"`
		SecondaryBaseURL  string `yaml:"secondary_base_url"`
		SecondaryPerMin   int    `yaml:"secondary_per_min"`
	} `yaml:"provider"`
	Cache struct {
		SQLitePath string `yaml:"sqlite_path"`
		TTLHours   int    `yaml:"ttl_hours"`
	} `yaml:"cache"`
	Scan struct {
		BatchSize        int    `yaml:"batch_size"`
		Workers          int    `yaml:"workers"`
		TickerTimeoutSec int    `yaml:"ticker_timeout_sec"`
		BatchPauseMs     int    `yaml:"batch_pause_ms"`
		Benchmark        string `yaml:"benchmark"`
		Cron             string `yaml:"cron"`
	} `yaml:"scan"`
	Output struct {
		SnapshotFile string `yaml:"snapshot_file"`
		ReportDir    string `yaml:"report_dir"`
	} `yaml:"output"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("UNIVERSE_DIRECTORY_URL"); v != "" {
		cfg.Universe.DirectoryURL = v
	}
	if v := os.Getenv("UNIVERSE_OVERRIDE_FILE"); v != "" {
		cfg.Universe.OverrideFile = v
	}
	if v := os.Getenv("SECONDARY_BASE_URL"); v != "" {
		cfg.Provider.SecondaryBaseURL = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Cache.SQLitePath = v
	}
	if v := os.Getenv("SNAPSHOT_FILE"); v != "" {
		cfg.Output.SnapshotFile = v
	}
	if v := os.Getenv("REPORT_DIR"); v != "" {
		cfg.Output.ReportDir = v
	}
	if v := os.Getenv("SCAN_CRON"); v != "" {
		cfg.Scan.Cron = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SCAN_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Scan.Workers = n
		}
	}

	// Defaults
	if cfg.Universe.DirectoryURL == "" {
		cfg.Universe.DirectoryURL = "https://www.nasdaqtrader.com/dynamic/SymDir/nasdaqlisted.txt"
	}
	if cfg.Universe.MaxTickers == 0 {
		cfg.Universe.MaxTickers = 5000
	}
	if cfg.Provider.PrimaryTimeoutSec == 0 {
		cfg.Provider.PrimaryTimeoutSec = 15
	}
	if cfg.Provider.Retries == 0 {
		cfg.Provider.Retries = 2
	}
	if cfg.Provider.RetryPauseSec == 0 {
		cfg.Provider.RetryPauseSec = 1
	}
	if cfg.Provider.SecondaryPerMin == 0 {
		cfg.Provider.SecondaryPerMin = 30
	}
	if cfg.Cache.SQLitePath == "" {
		cfg.Cache.SQLitePath = "data/candles.db"
	}
	if cfg.Cache.TTLHours == 0 {
		cfg.Cache.TTLHours = 18
	}
	if cfg.Scan.BatchSize == 0 {
		cfg.Scan.BatchSize = 40
	}
	if cfg.Scan.Workers == 0 {
		cfg.Scan.Workers = 6
	}
	if cfg.Scan.TickerTimeoutSec == 0 {
		cfg.Scan.TickerTimeoutSec = 20
	}
	if cfg.Scan.BatchPauseMs == 0 {
		cfg.Scan.BatchPauseMs = 1000
	}
	if cfg.Scan.Benchmark == "" {
		cfg.Scan.Benchmark = "^GSPC"
	}
	if cfg.Scan.Cron == "" {
		cfg.Scan.Cron = "0 0 22 * * 1-5"
	}
	if cfg.Output.SnapshotFile == "" {
		cfg.Output.SnapshotFile = "data/recommendations.json"
	}
	if cfg.Output.ReportDir == "" {
		cfg.Output.ReportDir = "data/reports"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9188"
	}

	return cfg, nil
}

// PrimaryTimeout returns the hard per-call timeout for the primary provider.
func (c *Config) PrimaryTimeout() time.Duration {
	return time.Duration(c.Provider.PrimaryTimeoutSec) * time.Second
}

// RetryPause returns the fixed pause between primary retries.
func (c *Config) RetryPause() time.Duration {
	return time.Duration(c.Provider.RetryPauseSec) * time.Second
}

// TickerTimeout returns the per-ticker pipeline timeout for scans.
func (c *Config) TickerTimeout() time.Duration {
	return time.Duration(c.Scan.TickerTimeoutSec) * time.Second
}

// BatchPause returns the pause inserted between scan batches.
func (c *Config) BatchPause() time.Duration {
	return time.Duration(c.Scan.BatchPauseMs) * time.Millisecond
}

// CacheTTL returns the freshness window for cached series.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// Validate checks that all required fields are set and sane.
func (c *Config) Validate() error {
	if c.Universe.DirectoryURL == "" {
		return fmt.Errorf("universe.directory_url is required")
	}
	if c.Cache.SQLitePath == "" {
		return fmt.Errorf("cache.sqlite_path is required")
	}
	if c.Scan.BatchSize < 1 {
		return fmt.Errorf("scan.batch_size must be positive")
	}
	if c.Scan.Workers < 1 {
		return fmt.Errorf("scan.workers must be positive")
	}
	if c.Provider.Retries < 0 {
		return fmt.Errorf("provider.retries must not be negative")
	}
	return nil
}
