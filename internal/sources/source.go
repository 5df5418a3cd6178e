// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

/*
Package sources implements the Source capability and its two families.

A Source fetches raw items from one external endpoint and reports the outcome
as a FetchResult. It never returns an error: failures, including timeouts and
missing credentials, are carried in the result so one broken source cannot
abort a collection run.

  - FeedSource parses RSS, Atom and JSON Feed documents with gofeed.
  - QueryAPISource issues one authenticated request per declared query, each
    wrapped in retry.DoValue, and decodes Guardian- or NewsAPI-style JSON.

Every outbound request goes through the shared per-host rate limiter via the
HTTP client built by NewHTTPClient.
*/
package sources

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/readstream/internal/models"
	"github.com/tomtom215/readstream/internal/normalize"
	"github.com/tomtom215/readstream/internal/ratelimit"
	"github.com/tomtom215/readstream/internal/retry"
)

// DefaultFetchTimeout bounds each outbound fetch.
const DefaultFetchTimeout = 10 * time.Second

var (
	// ErrMissingCredential is reported by a query API source with no key configured.
	ErrMissingCredential = errors.New("source credential not configured")

	// ErrNoQueries is returned when a query API source declares no queries.
	ErrNoQueries = errors.New("no queries configured")

	// ErrUnknownSource is returned when a selection names no known source or group.
	ErrUnknownSource = errors.New("unknown source")
)

// Kind labels a source family.
type Kind string

const (
	KindFeed     Kind = "feed"
	KindGuardian Kind = "guardian"
	KindNewsAPI  Kind = "newsapi"
)

// FetchResult is the common output of every Source.
type FetchResult struct {
	Success bool             `json:"success"`
	Source  string           `json:"source"`
	Items   []models.RawItem `json:"items"`
	Err     error            `json:"-"`
}

// ErrorText returns the error message, or "" on success.
func (r FetchResult) ErrorText() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

func failed(source string, err error) FetchResult {
	return FetchResult{Success: false, Source: source, Err: err}
}

// Info describes a source for listing.
type Info struct {
	Name        string             `json:"name"`
	Group       string             `json:"group"`
	Kind        Kind               `json:"kind"`
	URL         string             `json:"url"`
	Tags        []string           `json:"tags"`
	License     models.License     `json:"license"`
	ContentType models.ContentType `json:"contentType"`
	Configured  bool               `json:"configured"`
}

// Source is one fetchable endpoint.
type Source interface {
	Name() string
	Group() string
	Info() Info
	Declared() normalize.Declared
	Fetch(ctx context.Context) FetchResult
}

// Env carries the collaborators shared by every source.
type Env struct {
	Client    *http.Client
	Timeout   time.Duration
	UserAgent string
	Retry     retry.Policy
}

// NewEnv builds an Env whose client is paced by limiter.
func NewEnv(limiter *ratelimit.HostLimiter, timeout time.Duration, userAgent string) Env {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return Env{
		Client:    NewHTTPClient(limiter, nil),
		Timeout:   timeout,
		UserAgent: userAgent,
		Retry:     retry.DefaultPolicy(),
	}
}
