// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

// Package config loads and validates Readstream configuration.
//
// Configuration is layered (lowest to highest precedence):
//
//  1. Built-in defaults (defaultConfig)
//  2. Optional YAML file (CONFIG_PATH, ./config.yaml, /etc/readstream/config.yaml)
//  3. Optional .env file, loaded into the process environment without overriding it
//  4. Environment variables listed in envMappings
//
// Every recognized option is a field below; unknown environment variables are ignored.
package config

import (
	"time"
)

// Config is the complete process configuration.
type Config struct {
	Collect   CollectConfig   `koanf:"collect"`
	Recommend RecommendConfig `koanf:"recommend"`
	Ranker    RankerConfig    `koanf:"ranker"`
	Storage   StorageConfig   `koanf:"storage"`
	Feedback  FeedbackConfig  `koanf:"feedback"`
	Sources   SourcesConfig   `koanf:"sources"`
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// CollectConfig controls the collection orchestrator and outbound fetching.
type CollectConfig struct {
	// MaxNewItems caps newly persisted items per run. Items beyond it are dropped.
	MaxNewItems int `koanf:"max_new_items"`

	// Concurrency bounds fetcher groups in flight.
	Concurrency int `koanf:"concurrency"`

	// FetchTimeoutMS bounds each outbound fetch, in milliseconds.
	FetchTimeoutMS int `koanf:"fetch_timeout_ms"`

	// HostRate is the per-host request ceiling per second.
	HostRate int `koanf:"host_rate"`

	// AutoRunIntervalMin schedules background runs; 0 disables the scheduler.
	AutoRunIntervalMin int `koanf:"auto_run_interval_min"`

	RunOnStartup bool   `koanf:"run_on_startup"`
	UserAgent    string `koanf:"user_agent"`
}

// FetchTimeout returns FetchTimeoutMS as a duration.
func (c CollectConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMS) * time.Millisecond
}

// AutoRunInterval returns AutoRunIntervalMin as a duration.
func (c CollectConfig) AutoRunInterval() time.Duration {
	return time.Duration(c.AutoRunIntervalMin) * time.Minute
}

// RecommendConfig controls the recommendation resolver.
type RecommendConfig struct {
	CacheTTL     time.Duration `koanf:"cache_ttl"`
	UserThrottle time.Duration `koanf:"user_throttle"`

	// FallbackLookbackDays limits the fallback pool to recently published content.
	FallbackLookbackDays int `koanf:"fallback_lookback_days"`

	// FallbackPoolSize caps the fallback candidate query.
	FallbackPoolSize int `koanf:"fallback_pool_size"`

	DefaultCount int `koanf:"default_count"`
	MaxCount     int `koanf:"max_count"`
}

// RankerConfig describes the external ranking service.
type RankerConfig struct {
	URL     string        `koanf:"url"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`

	BreakerMaxRequests      uint32        `koanf:"breaker_max_requests"`
	BreakerInterval         time.Duration `koanf:"breaker_interval"`
	BreakerTimeout          time.Duration `koanf:"breaker_timeout"`
	BreakerFailureThreshold uint32        `koanf:"breaker_failure_threshold"`
}

// Enabled reports whether a ranker URL is configured.
func (r RankerConfig) Enabled() bool {
	return r.URL != ""
}

// StorageConfig selects the content store backend.
type StorageConfig struct {
	// Driver is badger, postgres or memory.
	Driver      string `koanf:"driver"`
	Path        string `koanf:"path"`
	PostgresDSN string `koanf:"postgres_dsn"`
	MaxConns    int32  `koanf:"max_conns"`
}

// FeedbackConfig controls the feedback relay into the sync bridge.
type FeedbackConfig struct {
	// Transport is gochannel (in-process) or nats.
	Transport     string        `koanf:"transport"`
	NATSURL       string        `koanf:"nats_url"`
	Topic         string        `koanf:"topic"`
	BatchSize     int           `koanf:"batch_size"`
	FlushInterval time.Duration `koanf:"flush_interval"`

	// BackfillRate paces bulk feedback replays, events per second.
	BackfillRate int `koanf:"backfill_rate"`
}

// SourcesConfig holds source credentials and an optional catalog override.
type SourcesConfig struct {
	// Credentials maps a credential name (e.g. "guardian") to its API key.
	Credentials map[string]string `koanf:"credentials"`

	// Feeds and APIs replace the built-in catalog when either is non-empty.
	Feeds []FeedSourceConfig `koanf:"feeds"`
	APIs  []APISourceConfig  `koanf:"apis"`
}

// FeedSourceConfig declares one syndication feed source.
type FeedSourceConfig struct {
	Name        string   `koanf:"name"`
	Group       string   `koanf:"group"`
	URL         string   `koanf:"url"`
	Tags        []string `koanf:"tags"`
	License     string   `koanf:"license"`
	ContentType string   `koanf:"content_type"`
	Important   bool     `koanf:"important"`
}

// APISourceConfig declares one query-API source.
type APISourceConfig struct {
	Name        string   `koanf:"name"`
	Group       string   `koanf:"group"`
	Kind        string   `koanf:"kind"` // guardian or newsapi
	Endpoint    string   `koanf:"endpoint"`
	Queries     []string `koanf:"queries"`
	Credential  string   `koanf:"credential"`
	Tags        []string `koanf:"tags"`
	License     string   `koanf:"license"`
	ContentType string   `koanf:"content_type"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// SecurityConfig holds CORS and inbound rate limiting.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig mirrors logging.Config for the koanf layers.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Credential returns the configured secret for name, or "".
func (c *Config) Credential(name string) string {
	if c.Sources.Credentials == nil {
		return ""
	}
	return c.Sources.Credentials[name]
}
