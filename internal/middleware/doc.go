// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

/*
Package middleware provides the chi-compatible HTTP middleware shared by the
inbound API.

  - RequestID: accepts or generates X-Request-ID and seeds the logging context
    with request and correlation IDs
  - Metrics: records request counts and latency per chi route pattern
  - Compression: gzips responses for clients that accept it

Every middleware has the func(http.Handler) http.Handler shape, so it can be
passed straight to chi's Use:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Metrics)
	r.Use(middleware.Compression)

Metrics labels requests by route pattern ("/api/v1/users/{id}/profile"),
never by raw path, which keeps label cardinality bounded.
*/
package middleware
