// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/readstream/internal/logging"
	"github.com/tomtom215/readstream/internal/models"
	"github.com/tomtom215/readstream/internal/recommend"
	"github.com/tomtom215/readstream/internal/validation"
)

type profileRequest struct {
	UserID    string   `json:"-" validate:"required,max=128"`
	Interests []string `json:"interests" validate:"max=100,dive,tag"`
	Label     string   `json:"label" validate:"max=64"`
}

// PutProfile handles PUT /api/v1/users/{id}/profile. It stores the profile,
// submits the user to the ranker and drops their cached recommendations.
// A failed ranker submission is logged; the stored profile still counts.
func (h *Handler) PutProfile(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req profileRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, validation.ErrorCode, err.Error(), nil)
		return
	}
	req.UserID = chi.URLParam(r, "id")
	req.Interests = recommend.NormalizeInterests(req.Interests)
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, verr)
		return
	}

	profile := models.UserProfile{
		UserID:    req.UserID,
		Interests: req.Interests,
		Label:     req.Label,
		UpdatedAt: h.now().UTC(),
	}
	if err := h.deps.Store.PutProfile(r.Context(), profile); err != nil {
		respondDomainError(w, err)
		return
	}

	synced := false
	if h.deps.Syncer != nil {
		if err := h.deps.Syncer.SubmitUsers(r.Context(), []models.UserProfile{profile}); err == nil {
			synced = true
		}
	}
	invalidated := h.deps.Recommender.Invalidate(profile.UserID)

	logging.Ctx(r.Context()).Info().
		Str("user_id", logging.SanitizeValue(profile.UserID)).
		Int("interests", len(profile.Interests)).
		Bool("synced", synced).
		Msg("Profile updated")

	respondData(w, http.StatusOK, map[string]interface{}{
		"profile":     profile,
		"synced":      synced,
		"invalidated": invalidated,
	}, start)
}

// GetProfile handles GET /api/v1/users/{id}/profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	p, err := h.deps.Store.GetProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondData(w, http.StatusOK, p, start)
}
