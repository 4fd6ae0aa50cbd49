// Package config handles configuration loading for etfdj.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ETFDJ_SOURCE_RATE_LIMIT.
const EnvPrefix = "ETFDJ"

// Config represents the complete application configuration.
type Config struct {
	Source    SourceClientConfig `mapstructure:"source"    yaml:"source"`
	Aggregate AggregateConfig    `mapstructure:"aggregate" yaml:"aggregate"`
	News      NewsConfig         `mapstructure:"news"      yaml:"news"`
	API       APIConfig          `mapstructure:"api"       yaml:"api"`
	Logging   LoggingConfig      `mapstructure:"logging"   yaml:"logging"`
}

// SourceClientConfig holds the MoneyDJ client settings.
type SourceClientConfig struct {
	BaseURL    string  `mapstructure:"base_url"    yaml:"base_url"`
	UserAgent  string  `mapstructure:"user_agent"  yaml:"user_agent"`
	TimeoutSec int     `mapstructure:"timeout_sec" yaml:"timeout_sec"`
	RateLimit  float64 `mapstructure:"rate_limit"  yaml:"rate_limit"` // requests per second; <= 0 disables
	Burst      int     `mapstructure:"burst"       yaml:"burst"`
}

// AggregateConfig holds report assembly settings.
type AggregateConfig struct {
	FailFast    bool `mapstructure:"fail_fast"   yaml:"fail_fast"`
	Concurrency int  `mapstructure:"concurrency" yaml:"concurrency"`
}

// NewsConfig holds the ETF news feed settings. An empty FeedURL disables news.
type NewsConfig struct {
	FeedURL string `mapstructure:"feed_url" yaml:"feed_url"`
	Limit   int    `mapstructure:"limit"    yaml:"limit"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "console" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.etfdj/config.yaml (home directory)
//  3. /etc/etfdj/config.yaml (system)
//
// Environment variables override config file values.
// Format: ETFDJ_<SECTION>_<KEY>, e.g., ETFDJ_NEWS_FEED_URL
func Load() (*Config, error) {
	v := newViper()

	// Config file settings
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".etfdj"))
	v.AddConfigPath("/etc/etfdj")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; defaults and env vars still apply
	}

	return unmarshal(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return unmarshal(v)
}

// newViper returns a viper instance with defaults and env overrides wired.
func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// defaults is the single source of default values; Describe uses it to tell
// a default from an explicit setting.
var defaults = map[string]any{
	"source.base_url":    "https://www.moneydj.com",
	"source.user_agent":  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"source.timeout_sec": 30,
	"source.rate_limit":  1.0,
	"source.burst":       2,

	"aggregate.fail_fast":   false,
	"aggregate.concurrency": 4,

	"news.feed_url": "",
	"news.limit":    10,

	"api.host":         "0.0.0.0",
	"api.port":         8080,
	"api.cors_origins": []string{"*"},

	"logging.level":  "info",
	"logging.format": "console",
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	if c.Source.BaseURL == "" {
		return fmt.Errorf("source.base_url must not be empty")
	}
	if c.Source.TimeoutSec <= 0 {
		return fmt.Errorf("source.timeout_sec must be positive, got %d", c.Source.TimeoutSec)
	}
	if c.Aggregate.Concurrency <= 0 {
		return fmt.Errorf("aggregate.concurrency must be positive, got %d", c.Aggregate.Concurrency)
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port out of range: %d", c.API.Port)
	}
	return nil
}

// envVar returns the environment variable overriding key.
func envVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
