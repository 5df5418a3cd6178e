// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/readstream/internal/config"
	"github.com/tomtom215/readstream/internal/testinfra"
)

func testConfig() *config.Config {
	return &config.Config{
		Collect: config.CollectConfig{
			MaxNewItems:    100,
			Concurrency:    2,
			FetchTimeoutMS: 1000,
			HostRate:       10,
			UserAgent:      "readstream-test",
		},
		Recommend: config.RecommendConfig{
			CacheTTL:             time.Minute,
			UserThrottle:         time.Second,
			FallbackLookbackDays: 30,
			FallbackPoolSize:     50,
			DefaultCount:         10,
			MaxCount:             100,
		},
		Storage:  config.StorageConfig{Driver: "memory"},
		Feedback: config.FeedbackConfig{Transport: "gochannel", Topic: "feedback", BatchSize: 10, FlushInterval: time.Second},
		Security: config.SecurityConfig{RateLimitDisabled: true},
	}
}

func TestBuildComponents_ServesHealth(t *testing.T) {
	comps, err := buildComponents(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("buildComponents() error = %v", err)
	}
	defer func() {
		if err := comps.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	}()

	if len(comps.catalog.Infos()) == 0 {
		t.Error("expected the built-in catalog when no sources are configured")
	}

	rec := httptest.NewRecorder()
	comps.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"rankerEnabled":false`) {
		t.Errorf("health body = %s", rec.Body.String())
	}
}

func TestBuildComponents_BadStorageDriver(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.Driver = "sqlite"

	comps, err := buildComponents(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected an error for an unknown storage driver")
	}
	if comps != nil {
		t.Error("components should be nil on error")
	}
}

func TestBuildComponents_BadTransport(t *testing.T) {
	cfg := testConfig()
	cfg.Feedback.Transport = "kafka"

	if _, err := buildComponents(context.Background(), cfg); err == nil {
		t.Fatal("expected an error for an unknown feedback transport")
	}
}

func TestBuildComponents_ProfileReachesRanker(t *testing.T) {
	rs := testinfra.NewRankerServer(t)
	cfg := testConfig()
	cfg.Ranker = config.RankerConfig{URL: rs.URL(), APIKey: "secret", Timeout: time.Second}

	comps, err := buildComponents(context.Background(), cfg)
	if err != nil {
		t.Fatalf("buildComponents() error = %v", err)
	}
	defer func() { _ = comps.Close() }()

	req := httptest.NewRequest(http.MethodPut, "/api/v1/users/u1/profile",
		strings.NewReader(`{"interests":["Go","distributed systems"]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	comps.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT profile status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"synced":true`) {
		t.Errorf("profile not synced: %s", rec.Body.String())
	}

	users := rs.Requests("/api/users")
	if len(users) != 1 {
		t.Fatalf("ranker received %d user batches, want 1", len(users))
	}
	if users[0].APIKey != "secret" {
		t.Errorf("X-API-Key = %q", users[0].APIKey)
	}
	if !strings.Contains(string(users[0].Body), `"UserId":"u1"`) {
		t.Errorf("user body = %s", users[0].Body)
	}
}
