// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

var (
	validLicenses     = []string{"public-domain", "rss", "restricted", "api"}
	validContentTypes = []string{"article", "poem"}
	validAPIKinds     = []string{"guardian", "newsapi"}
)

// Validate checks bounds and required combinations once at startup.
// A missing source credential is deliberately not an error.
func (c *Config) Validate() error {
	if err := c.validateCollect(); err != nil {
		return err
	}
	if err := c.validateRecommend(); err != nil {
		return err
	}
	if err := c.validateRanker(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateFeedback(); err != nil {
		return err
	}
	if err := c.validateSources(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateCollect() error {
	if c.Collect.MaxNewItems < 1 {
		return fmt.Errorf("collect.max_new_items must be at least 1, got %d", c.Collect.MaxNewItems)
	}
	if c.Collect.Concurrency < 1 || c.Collect.Concurrency > 64 {
		return fmt.Errorf("collect.concurrency must be between 1 and 64, got %d", c.Collect.Concurrency)
	}
	if c.Collect.FetchTimeoutMS < 100 {
		return fmt.Errorf("collect.fetch_timeout_ms must be at least 100, got %d", c.Collect.FetchTimeoutMS)
	}
	if c.Collect.HostRate < 1 {
		return fmt.Errorf("collect.host_rate must be at least 1, got %d", c.Collect.HostRate)
	}
	if c.Collect.AutoRunIntervalMin < 0 {
		return fmt.Errorf("collect.auto_run_interval_min must not be negative, got %d", c.Collect.AutoRunIntervalMin)
	}
	return nil
}

func (c *Config) validateRecommend() error {
	r := c.Recommend
	if r.CacheTTL < 0 || r.UserThrottle < 0 {
		return fmt.Errorf("recommend.cache_ttl and recommend.user_throttle must not be negative")
	}
	if r.FallbackLookbackDays < 1 {
		return fmt.Errorf("recommend.fallback_lookback_days must be at least 1, got %d", r.FallbackLookbackDays)
	}
	if r.FallbackPoolSize < 1 {
		return fmt.Errorf("recommend.fallback_pool_size must be at least 1, got %d", r.FallbackPoolSize)
	}
	if r.MaxCount < 1 || r.DefaultCount < 1 || r.DefaultCount > r.MaxCount {
		return fmt.Errorf("recommend.default_count (%d) must be between 1 and recommend.max_count (%d)", r.DefaultCount, r.MaxCount)
	}
	return nil
}

func (c *Config) validateRanker() error {
	if !c.Ranker.Enabled() {
		return nil
	}
	if err := validateHTTPURL("ranker.url", c.Ranker.URL); err != nil {
		return err
	}
	if c.Ranker.Timeout <= 0 {
		return fmt.Errorf("ranker.timeout must be positive")
	}
	if c.Ranker.BreakerFailureThreshold == 0 {
		return fmt.Errorf("ranker.breaker_failure_threshold must be at least 1")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Driver {
	case "badger":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the badger driver")
		}
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	case "memory":
	default:
		return fmt.Errorf("storage.driver must be badger, postgres or memory, got %q", c.Storage.Driver)
	}
	return nil
}

func (c *Config) validateFeedback() error {
	f := c.Feedback
	if f.Transport != "gochannel" && f.Transport != "nats" {
		return fmt.Errorf("feedback.transport must be gochannel or nats, got %q", f.Transport)
	}
	if f.Topic == "" {
		return fmt.Errorf("feedback.topic is required")
	}
	if f.BatchSize < 1 {
		return fmt.Errorf("feedback.batch_size must be at least 1, got %d", f.BatchSize)
	}
	if f.FlushInterval < 100*time.Millisecond {
		return fmt.Errorf("feedback.flush_interval must be at least 100ms, got %v", f.FlushInterval)
	}
	if f.BackfillRate < 1 {
		return fmt.Errorf("feedback.backfill_rate must be at least 1, got %d", f.BackfillRate)
	}
	return nil
}

func (c *Config) validateSources() error {
	seen := make(map[string]bool)
	for _, f := range c.Sources.Feeds {
		if err := validateSourceCommon(f.Name, f.License, f.ContentType, seen); err != nil {
			return err
		}
		if err := validateHTTPURL("sources.feeds["+f.Name+"].url", f.URL); err != nil {
			return err
		}
	}
	for _, a := range c.Sources.APIs {
		if err := validateSourceCommon(a.Name, a.License, a.ContentType, seen); err != nil {
			return err
		}
		if !contains(validAPIKinds, a.Kind) {
			return fmt.Errorf("sources.apis[%s].kind must be one of %s", a.Name, strings.Join(validAPIKinds, ", "))
		}
		if len(a.Queries) == 0 {
			return fmt.Errorf("sources.apis[%s] declares no queries", a.Name)
		}
	}
	return nil
}

func validateSourceCommon(name, license, contentType string, seen map[string]bool) error {
	if name == "" {
		return fmt.Errorf("every source needs a name")
	}
	if seen[name] {
		return fmt.Errorf("duplicate source name %q", name)
	}
	seen[name] = true
	if !contains(validLicenses, license) {
		return fmt.Errorf("source %s: license must be one of %s", name, strings.Join(validLicenses, ", "))
	}
	if contentType != "" && !contains(validContentTypes, contentType) {
		return fmt.Errorf("source %s: content_type must be article or poem", name)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if !c.Security.RateLimitDisabled && (c.Security.RateLimitReqs < 1 || c.Security.RateLimitWindow <= 0) {
		return fmt.Errorf("security.rate_limit_reqs and security.rate_limit_window must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not recognized", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func validateHTTPURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", field, raw)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
