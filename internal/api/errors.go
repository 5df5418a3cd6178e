// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package api

// Error codes carried in APIError.Code. VALIDATION_ERROR comes from the
// validation package.
const (
	CodeRateLimited   = "RATE_LIMITED"
	CodeNotFound      = "NOT_FOUND"
	CodeUnknownSource = "UNKNOWN_SOURCE"
	CodeConflict      = "CONFLICT"
	CodeUpstream      = "UPSTREAM_ERROR"
	CodeUnavailable   = "SERVICE_UNAVAILABLE"
	CodeInternal      = "INTERNAL_ERROR"
)
