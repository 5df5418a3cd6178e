// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/readstream/internal/models"
	"github.com/tomtom215/readstream/internal/validation"
)

type recommendRequest struct {
	UserID string `json:"userId" validate:"required,max=128"`
	Count  int    `json:"count" validate:"min=1"`
}

// Recommendations handles GET /api/v1/recommendations?userId=&count=.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	count, err := intParam(r, "count", h.defaultCount)
	if err != nil {
		respondError(w, http.StatusBadRequest, validation.ErrorCode, err.Error(), nil)
		return
	}
	req := recommendRequest{UserID: r.URL.Query().Get("userId"), Count: count}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, verr)
		return
	}
	if req.Count > h.maxCount {
		respondErrorDetails(w, http.StatusBadRequest, validation.ErrorCode,
			fmt.Sprintf("count must be at most %d", h.maxCount),
			map[string]interface{}{"fields": []validation.FieldError{{Field: "count", Tag: "max", Message: fmt.Sprintf("count must be at most %d", h.maxCount)}}}, nil)
		return
	}

	res, err := h.deps.Recommender.Resolve(r.Context(), req.UserID, req.Count)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   res,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
			Cached:      res.Cached,
		},
	})
}

// InvalidateRecommendations handles DELETE /api/v1/recommendations/cache/{userId}.
func (h *Handler) InvalidateRecommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	userID := chi.URLParam(r, "userId")

	n := h.deps.Recommender.Invalidate(userID)
	respondData(w, http.StatusOK, map[string]interface{}{
		"userId":      userID,
		"invalidated": n,
	}, start)
}
