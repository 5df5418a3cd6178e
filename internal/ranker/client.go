// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package ranker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/readstream/internal/metrics"
	"github.com/tomtom215/readstream/internal/retry"
)

// HTTPClient talks to the ranker's REST API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	timeout time.Duration
}

// NewHTTPClient creates a client for baseURL. A nil client uses a default one.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, client *http.Client) *HTTPClient {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
		timeout: timeout,
	}
}

func (c *HTTPClient) InsertItems(ctx context.Context, items []Item) error {
	return c.post(ctx, "insert_items", "/api/items", items)
}

func (c *HTTPClient) InsertUsers(ctx context.Context, users []User) error {
	return c.post(ctx, "insert_users", "/api/users", users)
}

func (c *HTTPClient) InsertFeedback(ctx context.Context, feedback []Feedback) error {
	return c.post(ctx, "insert_feedback", "/api/feedback", feedback)
}

// Recommend accepts either a bare list of IDs or a list of {Id, Score}.
// Bare IDs get descending synthetic scores so order is preserved.
func (c *HTTPClient) Recommend(ctx context.Context, userID string, n int) ([]Candidate, error) {
	path := "/api/recommend/" + url.PathEscape(userID) + "?n=" + strconv.Itoa(n)

	var raw json.RawMessage
	if err := c.do(ctx, "recommend", http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return decodeCandidates(raw)
}

func decodeCandidates(raw []byte) ([]Candidate, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var scored []Candidate
	if err := json.Unmarshal(trimmed, &scored); err == nil {
		return scored, nil
	}

	var ids []string
	if err := json.Unmarshal(trimmed, &ids); err != nil {
		return nil, fmt.Errorf("decode recommendations: %w", err)
	}
	out := make([]Candidate, len(ids))
	for i, id := range ids {
		out[i] = Candidate{ID: id, Score: float64(len(ids) - i)}
	}
	return out, nil
}

func (c *HTTPClient) post(ctx context.Context, op, path string, body any) error {
	return c.do(ctx, op, http.MethodPost, path, body, nil)
}

func (c *HTTPClient) do(ctx context.Context, op, method, path string, body, out any) (err error) {
	start := time.Now()
	defer func() { metrics.RecordRankerRequest(op, time.Since(start), err) }()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("ranker %s: marshal: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("ranker %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ranker %s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("ranker %s: read body: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return retry.NewStatusError("ranker "+op, resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("ranker %s: decode: %w", op, err)
	}
	return nil
}

var _ Ranker = (*HTTPClient)(nil)
