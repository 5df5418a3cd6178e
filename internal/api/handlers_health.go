// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/readstream/internal/models"
	"github.com/tomtom215/readstream/internal/recommend"
)

// Version is reported by the health endpoint; set at build time with
// -ldflags "-X github.com/tomtom215/readstream/internal/api.Version=...".
var Version = "dev"

// readyTimeout bounds the storage ping behind readiness.
const readyTimeout = 2 * time.Second

// HealthStatus is the body of GET /api/v1/health.
type HealthStatus struct {
	Status        string          `json:"status"`
	Version       string          `json:"version"`
	StorageOK     bool            `json:"storageOk"`
	RankerEnabled bool            `json:"rankerEnabled"`
	CollectState  models.RunState `json:"collectState,omitempty"`
	Uptime        float64         `json:"uptimeSeconds"`

	RecommendCache *recommend.CacheStats `json:"recommendCache,omitempty"`
}

// cacheReporter is implemented by recommenders that keep a result cache.
type cacheReporter interface {
	CacheStats() recommend.CacheStats
}

func (h *Handler) storageOK(ctx context.Context) bool {
	if h.deps.Store == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	return h.deps.Store.Ping(ctx) == nil
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ok := h.storageOK(r.Context())

	status := HealthStatus{
		Status:        "healthy",
		Version:       Version,
		StorageOK:     ok,
		RankerEnabled: h.deps.RankerEnabled,
		Uptime:        time.Since(h.startTime).Seconds(),
	}
	if !ok {
		status.Status = "degraded"
	}
	if h.deps.Collector != nil {
		status.CollectState = h.deps.Collector.State()
	}
	if cr, ok := h.deps.Recommender.(cacheReporter); ok {
		st := cr.CacheStats()
		status.RecommendCache = &st
	}
	respondData(w, http.StatusOK, status, start)
}

// HealthLive handles GET /api/v1/health/live. It only proves the process
// is serving.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondData(w, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	}, time.Now())
}

// HealthReady handles GET /api/v1/health/ready: 200 when storage answers a
// ping, 503 otherwise.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if !h.storageOK(r.Context()) {
		respondErrorDetails(w, http.StatusServiceUnavailable, CodeUnavailable, "Storage is not reachable",
			map[string]interface{}{"ready": false}, nil)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{"ready": true}, start)
}
