// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order; the first existing file wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/readstream/config.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DotEnvPath is loaded into the environment before the env layer, if present.
var DotEnvPath = ".env"

func defaultConfig() *Config {
	return &Config{
		Collect: CollectConfig{
			MaxNewItems:        2000,
			Concurrency:        5,
			FetchTimeoutMS:     10000,
			HostRate:           10,
			AutoRunIntervalMin: 360,
			RunOnStartup:       false,
			UserAgent:          "readstream/1.0 (+https://github.com/tomtom215/readstream)",
		},
		Recommend: RecommendConfig{
			CacheTTL:             5 * time.Minute,
			UserThrottle:         time.Second,
			FallbackLookbackDays: 120,
			FallbackPoolSize:     500,
			DefaultCount:         10,
			MaxCount:             100,
		},
		Ranker: RankerConfig{
			Timeout:                 5 * time.Second,
			BreakerMaxRequests:      3,
			BreakerInterval:         time.Minute,
			BreakerTimeout:          30 * time.Second,
			BreakerFailureThreshold: 5,
		},
		Storage: StorageConfig{
			Driver:   "badger",
			Path:     "/data/readstream",
			MaxConns: 10,
		},
		Feedback: FeedbackConfig{
			Transport:     "gochannel",
			NATSURL:       "nats://127.0.0.1:4222",
			Topic:         "readstream.feedback",
			BatchSize:     50,
			FlushInterval: 5 * time.Second,
			BackfillRate:  20,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Security: SecurityConfig{
			CORSOrigins:     []string{},
			RateLimitReqs:   120,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf loads configuration from defaults, file and environment, then validates it.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// godotenv.Load never overrides variables already present in the environment.
	if err := godotenv.Load(DotEnvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", DotEnvPath, err)
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are split on commas when they arrive as env strings.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	"max_new_items_per_run": "collect.max_new_items",
	"fetch_concurrency":     "collect.concurrency",
	"fetch_timeout_ms":      "collect.fetch_timeout_ms",
	"host_rate_per_second":  "collect.host_rate",
	"auto_run_interval_min": "collect.auto_run_interval_min",
	"collect_on_startup":    "collect.run_on_startup",
	"fetch_user_agent":      "collect.user_agent",

	"recommend_cache_ttl":         "recommend.cache_ttl",
	"recommend_user_throttle":     "recommend.user_throttle",
	"recommend_lookback_days":     "recommend.fallback_lookback_days",
	"recommend_fallback_pool":     "recommend.fallback_pool_size",
	"recommend_default_count":     "recommend.default_count",
	"recommend_max_count":         "recommend.max_count",
	"ranker_url":                  "ranker.url",
	"ranker_api_key":              "ranker.api_key",
	"ranker_timeout":              "ranker.timeout",
	"ranker_breaker_threshold":    "ranker.breaker_failure_threshold",
	"ranker_breaker_timeout":      "ranker.breaker_timeout",
	"storage_driver":              "storage.driver",
	"storage_path":                "storage.path",
	"database_url":                "storage.postgres_dsn",
	"database_max_conns":          "storage.max_conns",
	"feedback_transport":          "feedback.transport",
	"nats_url":                    "feedback.nats_url",
	"feedback_topic":              "feedback.topic",
	"feedback_batch_size":         "feedback.batch_size",
	"feedback_flush_interval":     "feedback.flush_interval",
	"feedback_backfill_rate":      "feedback.backfill_rate",
	"guardian_api_key":            "sources.credentials.guardian",
	"newsapi_api_key":             "sources.credentials.newsapi",
	"http_host":                   "server.host",
	"http_port":                   "server.port",
	"http_read_timeout":           "server.read_timeout",
	"http_write_timeout":          "server.write_timeout",
	"cors_origins":                "security.cors_origins",
	"rate_limit_requests":         "security.rate_limit_reqs",
	"rate_limit_window":           "security.rate_limit_window",
	"disable_rate_limit":          "security.rate_limit_disabled",
	"log_level":                   "logging.level",
	"log_format":                  "logging.format",
	"log_caller":                  "logging.caller",
	"readstream_shutdown_timeout": "server.shutdown_timeout",
}

// envTransformFunc returns "" for unmapped variables so they are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
