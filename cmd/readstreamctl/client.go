// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/readstream/internal/models"
)

// envelope mirrors models.APIResponse with Data left raw for the caller.
type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error,omitempty"`
}

// apiError is a non-2xx response from the server.
type apiError struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter string
}

func (e *apiError) Error() string {
	msg := fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Message)
	if e.RetryAfter != "" {
		msg += " (retry after " + e.RetryAfter + "s)"
	}
	return msg
}

// client talks to the readstream HTTP API.
type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// do sends body as JSON (when non-nil) and decodes the envelope's data into out.
func (c *client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 300 || env.Status == "error" {
		ae := &apiError{StatusCode: resp.StatusCode, RetryAfter: resp.Header.Get("Retry-After")}
		if env.Error != nil {
			ae.Code, ae.Message = env.Error.Code, env.Error.Message
		}
		return ae
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

type collectRequest struct {
	Sources []string `json:"sources,omitempty"`
	DryRun  bool     `json:"dryRun"`
}

func (c *client) collect(ctx context.Context, srcs []string, dryRun bool) (models.CollectResult, error) {
	var res models.CollectResult
	err := c.do(ctx, http.MethodPost, "/api/v1/collect/", nil, collectRequest{Sources: srcs, DryRun: dryRun}, &res)
	return res, err
}

// sourceInfo is the subset of a catalog entry the CLI prints.
type sourceInfo struct {
	Name       string   `json:"name"`
	Group      string   `json:"group"`
	Kind       string   `json:"kind"`
	URL        string   `json:"url"`
	Tags       []string `json:"tags"`
	Configured bool     `json:"configured"`
}

func (c *client) sources(ctx context.Context) ([]sourceInfo, error) {
	var out struct {
		Sources []sourceInfo `json:"sources"`
	}
	err := c.do(ctx, http.MethodGet, "/api/v1/collect/sources", nil, nil, &out)
	return out.Sources, err
}

// sourceTest mirrors the test-source response.
type sourceTest struct {
	Source     sourceInfo       `json:"source"`
	Success    bool             `json:"success"`
	Error      string           `json:"error,omitempty"`
	ItemsFound int              `json:"itemsFound"`
	DurationMS int64            `json:"durationMs"`
	Items      []models.Content `json:"items"`
}

func (c *client) testSource(ctx context.Context, name string) (sourceTest, error) {
	var out sourceTest
	err := c.do(ctx, http.MethodPost, "/api/v1/collect/sources/"+url.PathEscape(name)+"/test", nil, nil, &out)
	return out, err
}

func (c *client) latestRun(ctx context.Context) (models.RunMetrics, error) {
	var out models.RunMetrics
	err := c.do(ctx, http.MethodGet, "/api/v1/collect/runs/latest", nil, nil, &out)
	return out, err
}

func (c *client) run(ctx context.Context, id string) (models.RunMetrics, error) {
	var out models.RunMetrics
	err := c.do(ctx, http.MethodGet, "/api/v1/collect/runs/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

func (c *client) recommend(ctx context.Context, userID string, count int) (models.RecommendationResult, error) {
	q := url.Values{"userId": {userID}}
	if count > 0 {
		q.Set("count", fmt.Sprint(count))
	}
	var out models.RecommendationResult
	err := c.do(ctx, http.MethodGet, "/api/v1/recommendations", q, nil, &out)
	return out, err
}

func (c *client) invalidate(ctx context.Context, userID string) (int, error) {
	var out struct {
		Invalidated int `json:"invalidated"`
	}
	err := c.do(ctx, http.MethodDelete, "/api/v1/recommendations/cache/"+url.PathEscape(userID), nil, nil, &out)
	return out.Invalidated, err
}
