// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package api

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/readstream/internal/collector"
	"github.com/tomtom215/readstream/internal/logging"
	"github.com/tomtom215/readstream/internal/models"
	"github.com/tomtom215/readstream/internal/recommend"
	"github.com/tomtom215/readstream/internal/sources"
	"github.com/tomtom215/readstream/internal/storage"
	"github.com/tomtom215/readstream/internal/validation"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 4 << 20

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondData sends a success envelope.
func respondData(w http.ResponseWriter, status int, data interface{}, start time.Time) {
	respondJSON(w, status, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// respondError sends an error envelope. A non-nil err is logged, never sent.
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	respondErrorDetails(w, status, code, message, nil, err)
}

func respondErrorDetails(w http.ResponseWriter, status int, code, message string, details map[string]interface{}, err error) {
	if err != nil {
		logging.Error().
			Str("code", code).
			Str("error", logging.SanitizeValue(err.Error())).
			Msg("API error")
	}

	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now()},
		Error: &models.APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// respondValidation sends a VALIDATION_ERROR with per-field details.
func respondValidation(w http.ResponseWriter, verr *validation.RequestValidationError) {
	respondErrorDetails(w, http.StatusBadRequest, validation.ErrorCode, verr.Error(), verr.Details(), nil)
}

// respondDomainError maps package sentinel errors onto HTTP statuses.
func respondDomainError(w http.ResponseWriter, err error) {
	var limited *recommend.RateLimitedError
	switch {
	case errors.As(err, &limited):
		secs := int(math.Ceil(limited.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		respondErrorDetails(w, http.StatusTooManyRequests, CodeRateLimited, err.Error(),
			map[string]interface{}{"retryAfterMs": limited.RetryAfter.Milliseconds(), "retryable": limited.Retryable()}, nil)
	case errors.Is(err, sources.ErrUnknownSource):
		respondError(w, http.StatusBadRequest, CodeUnknownSource, err.Error(), nil)
	case errors.Is(err, recommend.ErrInvalidCount):
		respondError(w, http.StatusBadRequest, validation.ErrorCode, err.Error(), nil)
	case errors.Is(err, collector.ErrRunInProgress):
		respondError(w, http.StatusConflict, CodeConflict, err.Error(), nil)
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, CodeNotFound, "Not found", nil)
	default:
		respondError(w, http.StatusInternalServerError, CodeInternal, "Internal error", err)
	}
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched when
// allowEmpty is set.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}, allowEmpty bool) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(body).Decode(v)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	if err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// intParam parses an optional integer query parameter.
func intParam(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}
