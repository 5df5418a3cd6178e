// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

// Package metrics holds the Prometheus collectors for every Readstream component.
// Collectors are registered on the default registry at init via promauto and
// exposed by the API router on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Collection runs
	CollectRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readstream_collect_runs_total",
			Help: "Collection runs by outcome (done, partial_failure, dry_run, failed)",
		},
		[]string{"outcome"},
	)

	CollectRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "readstream_collect_run_duration_seconds",
			Help:    "Wall-clock duration of collection runs",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	CollectInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "readstream_collect_in_progress",
			Help: "1 while a live collection run is executing",
		},
	)

	// Source fetching
	SourceFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readstream_source_fetch_total",
			Help: "Source fetches by source and outcome (success, failure)",
		},
		[]string{"source", "outcome"},
	)

	SourceFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "readstream_source_fetch_duration_seconds",
			Help:    "Duration of a single source fetch",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	SourceItemsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readstream_source_items_fetched_total",
			Help: "Raw items returned by each source",
		},
		[]string{"source"},
	)

	// Persistence
	ItemsPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "readstream_items_persisted_total",
			Help: "New content records written to storage",
		},
	)

	ItemsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readstream_items_skipped_total",
			Help: "Items not persisted, by reason (duplicate, cap, write_error)",
		},
		[]string{"reason"},
	)

	StoredItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "readstream_stored_items",
			Help: "Total content records in storage at the end of the last run",
		},
	)

	// Outbound pacing
	RateLimitWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "readstream_ratelimit_wait_seconds",
			Help:    "Time callers spent waiting for a per-host request slot",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"host"},
	)

	RateLimitWindowUsed = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "readstream_ratelimit_window_requests",
			Help: "Requests granted to a host within the current one-second window",
		},
		[]string{"host"},
	)

	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readstream_retry_attempts_total",
			Help: "Retry loop outcomes (retried, terminal, exhausted, success)",
		},
		[]string{"outcome"},
	)

	// Ranker and circuit breaker
	RankerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readstream_ranker_requests_total",
			Help: "Requests to the external ranker by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	RankerRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "readstream_ranker_request_duration_seconds",
			Help:    "Latency of external ranker calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "readstream_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readstream_circuit_breaker_requests_total",
			Help: "Requests through a circuit breaker by result (success, failure, rejected)",
		},
		[]string{"name", "result"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readstream_circuit_breaker_state_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Sync bridge
	SyncSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readstream_sync_submissions_total",
			Help: "Sync bridge submissions by kind (items, users, feedback) and outcome",
		},
		[]string{"kind", "outcome"},
	)

	SyncRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readstream_sync_records_total",
			Help: "Records handed to the ranker by kind",
		},
		[]string{"kind"},
	)

	FeedbackQueued = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "readstream_feedback_buffered",
			Help: "Feedback events buffered in the relay awaiting a flush",
		},
	)

	// Recommendation resolver
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readstream_recommend_requests_total",
			Help: "Resolved recommendation requests by result source (ranker, fallback)",
		},
		[]string{"source"},
	)

	RecommendCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readstream_recommend_cache_total",
			Help: "Recommendation cache lookups by result (hit, miss)",
		},
		[]string{"result"},
	)

	RecommendThrottled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "readstream_recommend_throttled_total",
			Help: "Recommendation requests rejected by the per-user throttle",
		},
	)

	RecommendBackfilled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "readstream_recommend_backfilled_items_total",
			Help: "Items supplied by the fallback scorer to top up ranker results",
		},
	)

	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "readstream_recommend_duration_seconds",
			Help:    "Latency of uncached recommendation resolution",
			Buckets: prometheus.DefBuckets,
		},
	)

	// HTTP API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readstream_api_requests_total",
			Help: "HTTP requests by method, route and status code",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "readstream_api_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "readstream_api_active_requests",
			Help: "HTTP requests currently being served",
		},
	)
)

// RecordSourceFetch records the outcome of one source fetch.
func RecordSourceFetch(source string, duration time.Duration, items int, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	SourceFetchTotal.WithLabelValues(source, outcome).Inc()
	SourceFetchDuration.WithLabelValues(source).Observe(duration.Seconds())
	SourceItemsFetched.WithLabelValues(source).Add(float64(items))
}

// RecordCollectRun records a finished collection run.
func RecordCollectRun(outcome string, duration time.Duration) {
	CollectRunsTotal.WithLabelValues(outcome).Inc()
	CollectRunDuration.Observe(duration.Seconds())
}

// RecordRankerRequest records one ranker call.
func RecordRankerRequest(op string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	RankerRequests.WithLabelValues(op, outcome).Inc()
	RankerRequestDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordSyncSubmission records one sync bridge submission of n records.
func RecordSyncSubmission(kind string, n int, err error) {
	if err != nil {
		SyncSubmissions.WithLabelValues(kind, "failure").Inc()
		return
	}
	SyncSubmissions.WithLabelValues(kind, "success").Inc()
	SyncRecords.WithLabelValues(kind).Add(float64(n))
}

// RecordAPIRequest records an HTTP request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
