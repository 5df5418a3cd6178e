// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/readstream/internal/collector"
	"github.com/tomtom215/readstream/internal/logging"
	"github.com/tomtom215/readstream/internal/validation"
)

type collectRequest struct {
	Sources []string `json:"sources" validate:"max=100,dive,required,max=64"`
	DryRun  bool     `json:"dryRun"`
}

// Collect handles POST /api/v1/collect.
//
// The run is detached from the request context, so a client disconnect never
// abandons a live run halfway through persisting.
func (h *Handler) Collect(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req collectRequest
	if err := decodeBody(w, r, &req, true); err != nil {
		respondError(w, http.StatusBadRequest, validation.ErrorCode, err.Error(), nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, verr)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	res, err := h.deps.Collector.CollectAll(ctx, collector.Options{Sources: req.Sources, DryRun: req.DryRun})
	if err != nil {
		if res.RunID != "" {
			// The run happened; only its record could not be written.
			respondErrorDetails(w, http.StatusInternalServerError, CodeInternal,
				"Collection finished but the run record could not be saved",
				map[string]interface{}{"run": res.RunMetrics}, err)
			return
		}
		respondDomainError(w, err)
		return
	}

	respondData(w, http.StatusOK, res, start)
}

// TestSource handles POST /api/v1/collect/sources/{name}/test.
func (h *Handler) TestSource(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	name := chi.URLParam(r, "name")

	res, err := h.deps.Collector.TestSource(r.Context(), name)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	logging.Ctx(r.Context()).Debug().
		Str("source", logging.SanitizeValue(name)).
		Bool("success", res.Success).
		Msg("Source test served")
	respondData(w, http.StatusOK, res, start)
}

// ListSources handles GET /api/v1/collect/sources.
func (h *Handler) ListSources(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	infos := h.deps.Sources.Infos()
	respondData(w, http.StatusOK, map[string]interface{}{
		"sources": infos,
		"count":   len(infos),
	}, start)
}

// LatestRun handles GET /api/v1/collect/runs/latest.
func (h *Handler) LatestRun(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	run, err := h.deps.Store.LatestRun(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondData(w, http.StatusOK, run, start)
}

// GetRun handles GET /api/v1/collect/runs/{runID}.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	run, err := h.deps.Store.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondData(w, http.StatusOK, run, start)
}
