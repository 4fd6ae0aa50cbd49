package config

import (
	"fmt"
	"os"
	"strings"
)

// SettingSource represents where a setting's value comes from.
type SettingSource string

const (
	SourceEnv     SettingSource = "env"
	SourceConfig  SettingSource = "config"
	SourceDefault SettingSource = "default"
)

// SettingStatus describes one effective setting for `etfdj status`.
type SettingStatus struct {
	Key    string        `json:"key"`
	Env    string        `json:"env"`
	Value  string        `json:"value"`
	Source SettingSource `json:"source"`
}

// Describe returns the effective settings and where each came from.
// The news feed URL is masked since feed URLs often embed an access token.
func Describe(cfg *Config) []SettingStatus {
	return []SettingStatus{
		describe("source.base_url", cfg.Source.BaseURL),
		describe("source.user_agent", cfg.Source.UserAgent),
		describe("source.timeout_sec", cfg.Source.TimeoutSec),
		describe("source.rate_limit", cfg.Source.RateLimit),
		describe("source.burst", cfg.Source.Burst),
		describe("aggregate.fail_fast", cfg.Aggregate.FailFast),
		describe("aggregate.concurrency", cfg.Aggregate.Concurrency),
		maskValue(describe("news.feed_url", cfg.News.FeedURL)),
		describe("news.limit", cfg.News.Limit),
		describe("api.host", cfg.API.Host),
		describe("api.port", cfg.API.Port),
		describe("api.cors_origins", cfg.API.CORSOrigins),
		describe("logging.level", cfg.Logging.Level),
		describe("logging.format", cfg.Logging.Format),
	}
}

// describe checks where a setting came from.
func describe(key string, value any) SettingStatus {
	status := SettingStatus{
		Key:   key,
		Env:   envVar(key),
		Value: format(value),
	}

	switch {
	case os.Getenv(status.Env) != "":
		status.Source = SourceEnv
	case status.Value != format(defaults[key]):
		status.Source = SourceConfig
	default:
		status.Source = SourceDefault
	}
	return status
}

func format(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case []string:
		return strings.Join(v, ",")
	default:
		return fmt.Sprint(v)
	}
}

func maskValue(s SettingStatus) SettingStatus {
	if s.Value != "" {
		s.Value = maskKey(s.Value)
	}
	return s
}

// maskKey masks a secret for display, showing only the first 3 and last 3 chars.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:3] + "..." + key[len(key)-3:]
}
