// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package sources

import (
	"net/http"
	"time"

	"github.com/tomtom215/readstream/internal/metrics"
	"github.com/tomtom215/readstream/internal/ratelimit"
)

// limitedTransport waits for a per-host slot before every round trip.
type limitedTransport struct {
	base    http.RoundTripper
	limiter *ratelimit.HostLimiter
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	host := req.URL.Hostname()
	if err := t.limiter.Wait(req.Context(), host); err != nil {
		return nil, err
	}
	metrics.RateLimitWindowUsed.WithLabelValues(host).Set(float64(t.limiter.InFlight(host)))
	return t.base.RoundTrip(req)
}

// NewHTTPClient returns a client whose requests are paced by limiter. A nil
// base uses a clone of http.DefaultTransport. Per-request deadlines come from
// the request context, so the client itself has no timeout.
func NewHTTPClient(limiter *ratelimit.HostLimiter, base http.RoundTripper) *http.Client {
	if base == nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.MaxIdleConnsPerHost = 4
		tr.IdleConnTimeout = 90 * time.Second
		base = tr
	}
	if limiter == nil {
		return &http.Client{Transport: base}
	}
	return &http.Client{Transport: &limitedTransport{base: base, limiter: limiter}}
}
