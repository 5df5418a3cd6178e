// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package ranker

import "github.com/tomtom215/readstream/internal/config"

// New builds the Ranker described by cfg: Disabled without a URL, otherwise
// an HTTP client behind a circuit breaker.
func New(cfg config.RankerConfig) Ranker {
	if !cfg.Enabled() {
		return Disabled{}
	}
	return NewBreakerClient(
		NewHTTPClient(cfg.URL, cfg.APIKey, cfg.Timeout, nil),
		BreakerSettings{
			Name:             "ranker",
			MaxRequests:      cfg.BreakerMaxRequests,
			Interval:         cfg.BreakerInterval,
			Timeout:          cfg.BreakerTimeout,
			FailureThreshold: cfg.BreakerFailureThreshold,
		},
	)
}
