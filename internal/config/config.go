// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Crawler CrawlerConfig `mapstructure:"crawler"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Report  ReportConfig  `mapstructure:"report"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// CrawlerConfig governs dispatcher and task behavior.
type CrawlerConfig struct {
	WorkerCount      int     `mapstructure:"worker_count"`
	UserAgent        string  `mapstructure:"user_agent"`
	PolitenessMinMs  int     `mapstructure:"politeness_min_ms"`
	PolitenessMaxMs  int     `mapstructure:"politeness_max_ms"`
	DataDir          string  `mapstructure:"data_dir"`
	PerHostRateLimit float64 `mapstructure:"per_host_rate_limit"`
}

// HTTPConfig configures the page fetcher's timeout and retry behavior.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	MaxAttempts    int `mapstructure:"max_attempts"`
	BackoffBaseMs  int `mapstructure:"backoff_base_ms"`
}

// ReportConfig sets output locations for run artifacts.
type ReportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PRICESCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("crawler.worker_count", 4)
	v.SetDefault("crawler.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	v.SetDefault("crawler.politeness_min_ms", 1000)
	v.SetDefault("crawler.politeness_max_ms", 2000)
	v.SetDefault("crawler.data_dir", "data")
	v.SetDefault("crawler.per_host_rate_limit", 1.0)
	v.SetDefault("http.timeout_seconds", 10)
	v.SetDefault("http.max_attempts", 3)
	v.SetDefault("http.backoff_base_ms", 1000)
	v.SetDefault("report.output_dir", "data/reports")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawler.WorkerCount <= 0 {
		return fmt.Errorf("crawler.worker_count must be > 0")
	}
	if c.Crawler.PolitenessMinMs < 0 || c.Crawler.PolitenessMaxMs < c.Crawler.PolitenessMinMs {
		return fmt.Errorf("crawler politeness bounds must satisfy 0 <= min <= max")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxAttempts <= 0 {
		return fmt.Errorf("http.max_attempts must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// FetchTimeout converts the HTTP timeout config into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// BackoffBase converts the retry backoff config into a duration.
func (c Config) BackoffBase() time.Duration {
	return time.Duration(c.HTTP.BackoffBaseMs) * time.Millisecond
}

// PolitenessBounds returns the politeness delay window for product tasks.
func (c Config) PolitenessBounds() (time.Duration, time.Duration) {
	return time.Duration(c.Crawler.PolitenessMinMs) * time.Millisecond,
		time.Duration(c.Crawler.PolitenessMaxMs) * time.Millisecond
}
