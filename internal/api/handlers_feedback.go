// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/readstream/internal/models"
	"github.com/tomtom215/readstream/internal/validation"
)

// Defaults and ceiling for POST /api/v1/sync/items.
const (
	defaultResyncLimit = 500
	maxResyncLimit     = 5000
)

type feedbackEventRequest struct {
	Type      string    `json:"type" validate:"required,oneof=read like share"`
	UserID    string    `json:"userId" validate:"required,max=128"`
	ItemID    string    `json:"itemId" validate:"required,max=128"`
	Timestamp time.Time `json:"timestamp"`
}

type feedbackRequest struct {
	Events    []feedbackEventRequest `json:"events" validate:"required,min=1,max=1000,dive"`
	Immediate bool                   `json:"immediate"`
}

type backfillRequest struct {
	Events []feedbackEventRequest `json:"events" validate:"required,min=1,max=100000,dive"`
}

func (h *Handler) toEvents(in []feedbackEventRequest) []models.FeedbackEvent {
	now := h.now().UTC()
	out := make([]models.FeedbackEvent, len(in))
	for i, e := range in {
		ts := e.Timestamp
		if ts.IsZero() {
			ts = now
		}
		// Validation already restricted Type to known values.
		out[i] = models.FeedbackEvent{
			Type:      models.FeedbackType(e.Type),
			UserID:    e.UserID,
			ItemID:    e.ItemID,
			Timestamp: ts,
		}
	}
	return out
}

// Feedback handles POST /api/v1/feedback. Events are queued for the relay,
// or sent straight to the ranker when immediate is set.
func (h *Handler) Feedback(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req feedbackRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, validation.ErrorCode, err.Error(), nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, verr)
		return
	}
	if h.deps.Feedback == nil {
		respondError(w, http.StatusServiceUnavailable, CodeUnavailable, "Feedback relay is not running", nil)
		return
	}

	if err := h.deps.Feedback.Publish(r.Context(), h.toEvents(req.Events), req.Immediate); err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternal, "Could not queue feedback", err)
		return
	}

	respondData(w, http.StatusAccepted, map[string]interface{}{
		"accepted":  len(req.Events),
		"immediate": req.Immediate,
	}, start)
}

// FeedbackBackfill handles POST /api/v1/feedback/backfill. The replay is
// paced and runs within the request; failed batches are reported, not fatal.
func (h *Handler) FeedbackBackfill(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req backfillRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, validation.ErrorCode, err.Error(), nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, verr)
		return
	}
	if h.deps.Syncer == nil {
		respondError(w, http.StatusServiceUnavailable, CodeUnavailable, "Sync bridge is not configured", nil)
		return
	}

	sent, err := h.deps.Syncer.Backfill(r.Context(), h.toEvents(req.Events))
	data := map[string]interface{}{
		"requested": len(req.Events),
		"submitted": sent,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	respondData(w, http.StatusOK, data, start)
}

// SyncItems handles POST /api/v1/sync/items?limit=. It resubmits the most
// recently published stored items to the ranker in one batch.
func (h *Handler) SyncItems(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	limit, err := intParam(r, "limit", defaultResyncLimit)
	if err != nil || limit < 1 || limit > maxResyncLimit {
		respondError(w, http.StatusBadRequest, validation.ErrorCode, "limit must be an integer between 1 and 5000", nil)
		return
	}
	if h.deps.Syncer == nil {
		respondError(w, http.StatusServiceUnavailable, CodeUnavailable, "Sync bridge is not configured", nil)
		return
	}

	items, err := h.deps.Store.RecentContents(r.Context(), time.Time{}, limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if err := h.deps.Syncer.SubmitItems(r.Context(), items); err != nil {
		respondError(w, http.StatusBadGateway, CodeUpstream, "Ranker rejected the batch: "+err.Error(), nil)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{"submitted": len(items)}, start)
}
