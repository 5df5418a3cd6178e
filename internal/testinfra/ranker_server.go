// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package testinfra

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

// RankerRequest is one captured call to the fake ranker.
type RankerRequest struct {
	Method string
	Path   string
	APIKey string
	Body   []byte
}

// RankerServer fakes the external ranking service: it accepts inserts on
// /api/items, /api/users and /api/feedback and answers
// /api/recommend/{user} from Recommendations.
type RankerServer struct {
	Server *httptest.Server

	mu       sync.Mutex
	requests []RankerRequest
	status   int
	recs     map[string][]string
}

// NewRankerServer starts the fake and closes it when the test ends.
func NewRankerServer(t *testing.T) *RankerServer {
	t.Helper()
	rs := &RankerServer{status: http.StatusOK, recs: make(map[string][]string)}
	rs.Server = httptest.NewServer(http.HandlerFunc(rs.serve))
	t.Cleanup(rs.Server.Close)
	return rs
}

// URL is the base URL to configure the ranker client with.
func (rs *RankerServer) URL() string {
	return rs.Server.URL
}

// SetStatus makes every later request fail (or succeed) with status.
func (rs *RankerServer) SetStatus(status int) {
	rs.mu.Lock()
	rs.status = status
	rs.mu.Unlock()
}

// SetRecommendations sets the ID list returned for userID.
func (rs *RankerServer) SetRecommendations(userID string, ids ...string) {
	rs.mu.Lock()
	rs.recs[userID] = ids
	rs.mu.Unlock()
}

// Requests returns the captured calls whose path starts with prefix.
func (rs *RankerServer) Requests(prefix string) []RankerRequest {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	var out []RankerRequest
	for _, r := range rs.requests {
		if strings.HasPrefix(r.Path, prefix) {
			out = append(out, r)
		}
	}
	return out
}

// DecodeAll unmarshals every captured body under prefix into a flat slice.
func DecodeAll[T any](rs *RankerServer, prefix string) ([]T, error) {
	var all []T
	for _, r := range rs.Requests(prefix) {
		var batch []T
		if err := json.Unmarshal(r.Body, &batch); err != nil {
			return nil, err
		}
		all = append(all, batch...)
	}
	return all, nil
}

// WaitForRequests polls until n requests under prefix have arrived.
func (rs *RankerServer) WaitForRequests(prefix string, n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if len(rs.Requests(prefix)) >= n {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func (rs *RankerServer) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	rs.mu.Lock()
	rs.requests = append(rs.requests, RankerRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		APIKey: r.Header.Get("X-API-Key"),
		Body:   body,
	})
	status := rs.status
	ids := rs.recs[strings.TrimPrefix(r.URL.Path, "/api/recommend/")]
	rs.mu.Unlock()

	if status != http.StatusOK {
		http.Error(w, http.StatusText(status), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/recommend/"):
		if ids == nil {
			ids = []string{}
		}
		_ = json.NewEncoder(w).Encode(ids)
	case r.Method == http.MethodPost:
		_, _ = io.WriteString(w, `{"RowAffected":1}`)
	default:
		http.NotFound(w, r)
	}
}
