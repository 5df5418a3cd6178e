// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package api

import (
	"context"
	"time"

	"github.com/tomtom215/readstream/internal/collector"
	"github.com/tomtom215/readstream/internal/config"
	"github.com/tomtom215/readstream/internal/models"
	"github.com/tomtom215/readstream/internal/sources"
	"github.com/tomtom215/readstream/internal/storage"
)

// Collector runs and inspects collection.
type Collector interface {
	CollectAll(ctx context.Context, opts collector.Options) (models.CollectResult, error)
	TestSource(ctx context.Context, name string) (collector.SourceTest, error)
	State() models.RunState
}

// SourceLister describes the configured catalog.
type SourceLister interface {
	Infos() []sources.Info
}

// Recommender resolves and invalidates recommendations.
type Recommender interface {
	Resolve(ctx context.Context, userID string, count int) (models.RecommendationResult, error)
	Invalidate(userID string) int
}

// Syncer pushes records to the ranker.
type Syncer interface {
	SubmitItems(ctx context.Context, items []models.Content) error
	SubmitUsers(ctx context.Context, profiles []models.UserProfile) error
	Backfill(ctx context.Context, events []models.FeedbackEvent) (int, error)
}

// FeedbackPublisher hands feedback events to the relay.
type FeedbackPublisher interface {
	Publish(ctx context.Context, events []models.FeedbackEvent, immediate bool) error
}

// Deps are the collaborators behind the HTTP surface. Store and Recommender
// are required; the others disable their routes' work when nil.
type Deps struct {
	Collector     Collector
	Sources       SourceLister
	Recommender   Recommender
	Store         storage.Store
	Syncer        Syncer
	Feedback      FeedbackPublisher
	RankerEnabled bool
	Recommend     config.RecommendConfig
}

// Handler serves every API route.
//
// Handler methods are split across files:
//   - handlers_collect.go: collection runs, source testing and catalog listing
//   - handlers_recommend.go: recommendations and cache invalidation
//   - handlers_users.go: interest profiles
//   - handlers_feedback.go: feedback events, backfill and item resync
//   - handlers_health.go: liveness and readiness
type Handler struct {
	deps         Deps
	defaultCount int
	maxCount     int
	startTime    time.Time
	now          func() time.Time
}

// NewHandler creates a handler. Count bounds default to 10 and 100.
func NewHandler(deps Deps) *Handler {
	h := &Handler{
		deps:         deps,
		defaultCount: deps.Recommend.DefaultCount,
		maxCount:     deps.Recommend.MaxCount,
		startTime:    time.Now(),
		now:          time.Now,
	}
	if h.maxCount <= 0 {
		h.maxCount = 100
	}
	if h.defaultCount <= 0 || h.defaultCount > h.maxCount {
		h.defaultCount = min(10, h.maxCount)
	}
	return h
}
