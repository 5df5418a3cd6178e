// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

// Package api is the inbound HTTP surface on chi.
//
// Every response uses the models.APIResponse envelope. Package sentinel
// errors map onto statuses in one place (respondDomainError): unknown
// sources are 400 UNKNOWN_SOURCE, a concurrent live run is 409 CONFLICT and
// a throttled recommendation request is 429 RATE_LIMITED with Retry-After.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/readstream/internal/middleware"
)

// Router binds the handler to routes.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil middleware config uses the defaults.
func NewRouter(handler *Handler, mwConfig *ChiMiddlewareConfig) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(mwConfig),
	}
}

// SetupChi builds the route tree.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()
	h := router.handler

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/", h.Health)
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(middleware.Metrics)
		r.Use(middleware.Compression)

		r.Route("/collect", func(r chi.Router) {
			r.With(router.chiMiddleware.RateLimitCollect()).Post("/", h.Collect)
			r.Get("/sources", h.ListSources)
			r.Post("/sources/{name}/test", h.TestSource)
			r.Get("/runs/latest", h.LatestRun)
			r.Get("/runs/{runID}", h.GetRun)
		})

		r.Get("/recommendations", h.Recommendations)
		r.Delete("/recommendations/cache/{userId}", h.InvalidateRecommendations)

		r.Put("/users/{id}/profile", h.PutProfile)
		r.Get("/users/{id}/profile", h.GetProfile)

		r.Post("/feedback", h.Feedback)
		r.Post("/feedback/backfill", h.FeedbackBackfill)

		r.Post("/sync/items", h.SyncItems)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, CodeNotFound, "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	return r
}
