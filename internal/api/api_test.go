// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/readstream/internal/collector"
	"github.com/tomtom215/readstream/internal/models"
	"github.com/tomtom215/readstream/internal/ranker"
	"github.com/tomtom215/readstream/internal/recommend"
	"github.com/tomtom215/readstream/internal/sources"
	"github.com/tomtom215/readstream/internal/storage"
)

type fakeCollector struct {
	mu      sync.Mutex
	lastOpt collector.Options
	result  models.CollectResult
	err     error
}

func (f *fakeCollector) CollectAll(_ context.Context, opts collector.Options) (models.CollectResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastOpt = opts
	return f.result, f.err
}

func (f *fakeCollector) TestSource(_ context.Context, name string) (collector.SourceTest, error) {
	if name != "known" {
		return collector.SourceTest{}, fmt.Errorf("%w: %s", sources.ErrUnknownSource, name)
	}
	return collector.SourceTest{Source: sources.Info{Name: name}, Success: true, ItemsFound: 2}, nil
}

func (f *fakeCollector) State() models.RunState { return models.RunIdle }

type fakeLister struct{}

func (fakeLister) Infos() []sources.Info {
	return []sources.Info{{Name: "poetry-daily", Group: "poetry"}, {Name: "guardian-tech", Group: "news-guardian"}}
}

type fakeSyncer struct {
	mu       sync.Mutex
	items    [][]models.Content
	users    []models.UserProfile
	backfill []models.FeedbackEvent
	err      error
}

func (f *fakeSyncer) SubmitItems(_ context.Context, items []models.Content) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, items)
	return f.err
}

func (f *fakeSyncer) SubmitUsers(_ context.Context, profiles []models.UserProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, profiles...)
	return f.err
}

func (f *fakeSyncer) Backfill(_ context.Context, events []models.FeedbackEvent) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.backfill = append(f.backfill, events...)
	return len(events), f.err
}

type fakePublisher struct {
	mu        sync.Mutex
	events    []models.FeedbackEvent
	immediate bool
}

func (f *fakePublisher) Publish(_ context.Context, events []models.FeedbackEvent, immediate bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, events...)
	f.immediate = immediate
	return nil
}

type testEnv struct {
	server    *httptest.Server
	store     *storage.Memory
	collector *fakeCollector
	syncer    *fakeSyncer
	publisher *fakePublisher
	resolver  *recommend.Resolver
}

func newTestEnv(t *testing.T, mw *ChiMiddlewareConfig) *testEnv {
	t.Helper()

	store := storage.NewMemory()
	resolver := recommend.NewResolver(ranker.Disabled{}, store, store, recommend.DefaultOptions())
	t.Cleanup(resolver.Close)

	env := &testEnv{
		store:     store,
		collector: &fakeCollector{},
		syncer:    &fakeSyncer{},
		publisher: &fakePublisher{},
		resolver:  resolver,
	}
	h := NewHandler(Deps{
		Collector:   env.collector,
		Sources:     fakeLister{},
		Recommender: resolver,
		Store:       store,
		Syncer:      env.syncer,
		Feedback:    env.publisher,
	})
	if mw == nil {
		mw = DefaultChiMiddlewareConfig()
		mw.RateLimitDisabled = true
	}
	env.server = httptest.NewServer(NewRouter(h, mw).SetupChi())
	t.Cleanup(env.server.Close)
	return env
}

type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*http.Response, envelope) {
	t.Helper()

	req, err := http.NewRequest(method, e.server.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("%s %s: decode envelope: %v", method, path, err)
	}
	return resp, env
}

func wantError(t *testing.T, resp *http.Response, env envelope, status int, code string) {
	t.Helper()
	if resp.StatusCode != status {
		t.Errorf("status = %d, want %d", resp.StatusCode, status)
	}
	if env.Status != "error" || env.Error == nil || env.Error.Code != code {
		t.Errorf("error envelope = %+v, want code %s", env.Error, code)
	}
}

func TestCollect_PassesOptions(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	env.collector.result = models.CollectResult{RunMetrics: models.RunMetrics{RunID: "r1", ItemsFound: 3, FeedsSucceeded: 1, FeedsAttempted: 2}}

	resp, body := env.do(t, http.MethodPost, "/api/v1/collect", `{"sources":["poetry"],"dryRun":true}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%+v)", resp.StatusCode, body.Error)
	}
	if !env.collector.lastOpt.DryRun || len(env.collector.lastOpt.Sources) != 1 || env.collector.lastOpt.Sources[0] != "poetry" {
		t.Errorf("options = %+v", env.collector.lastOpt)
	}

	var got models.CollectResult
	if err := json.Unmarshal(body.Data, &got); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if got.ItemsFound != 3 || got.FeedsSucceeded != 1 || got.FeedsAttempted != 2 {
		t.Errorf("result = %+v", got.RunMetrics)
	}
}

func TestCollect_EmptyBodyCollectsEverything(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	env.collector.result = models.CollectResult{RunMetrics: models.RunMetrics{RunID: "r1"}}

	resp, _ := env.do(t, http.MethodPost, "/api/v1/collect", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if env.collector.lastOpt.DryRun || len(env.collector.lastOpt.Sources) != 0 {
		t.Errorf("options = %+v, want a live run of all sources", env.collector.lastOpt)
	}
}

func TestCollect_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		result models.CollectResult
		err    error
		status int
		code   string
	}{
		{"unknown source", models.CollectResult{}, fmt.Errorf("%w: nope", sources.ErrUnknownSource), http.StatusBadRequest, CodeUnknownSource},
		{"run in progress", models.CollectResult{}, collector.ErrRunInProgress, http.StatusConflict, CodeConflict},
		{"run record failed", models.CollectResult{RunMetrics: models.RunMetrics{RunID: "r9"}}, errors.New("disk full"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t, nil)
			env.collector.result, env.collector.err = tt.result, tt.err

			resp, body := env.do(t, http.MethodPost, "/api/v1/collect", `{}`)
			wantError(t, resp, body, tt.status, tt.code)
		})
	}
}

func TestCollect_RejectsMalformedBody(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	resp, body := env.do(t, http.MethodPost, "/api/v1/collect", `{"sources":`)
	wantError(t, resp, body, http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestSourcesAndTestSource(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)

	resp, body := env.do(t, http.MethodGet, "/api/v1/collect/sources", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body.Data), "poetry-daily") {
		t.Errorf("list sources = %d %s", resp.StatusCode, body.Data)
	}

	resp, body = env.do(t, http.MethodPost, "/api/v1/collect/sources/known/test", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body.Data), `"itemsFound":2`) {
		t.Errorf("test known = %d %s", resp.StatusCode, body.Data)
	}

	resp, body = env.do(t, http.MethodPost, "/api/v1/collect/sources/other/test", "")
	wantError(t, resp, body, http.StatusBadRequest, CodeUnknownSource)
}

func TestLatestRun(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)

	resp, body := env.do(t, http.MethodGet, "/api/v1/collect/runs/latest", "")
	wantError(t, resp, body, http.StatusNotFound, CodeNotFound)

	run := models.RunMetrics{RunID: "run-1", NewItemsAdded: 4, State: models.RunDone}
	if err := env.store.SaveRun(context.Background(), run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	resp, body = env.do(t, http.MethodGet, "/api/v1/collect/runs/latest", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body.Data), `"run-1"`) {
		t.Errorf("latest = %d %s", resp.StatusCode, body.Data)
	}
	resp, _ = env.do(t, http.MethodGet, "/api/v1/collect/runs/run-1", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("get run status = %d", resp.StatusCode)
	}
}

func TestRecommendations_Validation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	for _, q := range []string{
		"",
		"?userId=u1&count=0",
		"?userId=u1&count=101",
		"?userId=u1&count=ten",
	} {
		resp, body := env.do(t, http.MethodGet, "/api/v1/recommendations"+q, "")
		if resp.StatusCode != http.StatusBadRequest || body.Error == nil || body.Error.Code != "VALIDATION_ERROR" {
			t.Errorf("query %q: status=%d error=%+v", q, resp.StatusCode, body.Error)
		}
	}
}

func TestRecommendations_FallbackThenThrottled(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	ctx := context.Background()
	now := time.Now()
	_ = env.store.PutProfile(ctx, models.UserProfile{UserID: "u1", Interests: []string{"technology"}})
	_ = env.store.PutContent(ctx, models.Content{ID: "c1", Title: "Chips", Tags: []string{"technology"}, PublishedAt: now, ContentType: models.ContentArticle})

	resp, body := env.do(t, http.MethodGet, "/api/v1/recommendations?userId=u1&count=3", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d (%+v)", resp.StatusCode, body.Error)
	}
	var res models.RecommendationResult
	if err := json.Unmarshal(body.Data, &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Source != models.SourceFallback || len(res.Items) != 1 || res.Items[0].ContentID != "c1" {
		t.Errorf("result = %+v", res)
	}

	resp, body = env.do(t, http.MethodGet, "/api/v1/recommendations?userId=u1&count=3", "")
	wantError(t, resp, body, http.StatusTooManyRequests, CodeRateLimited)
	if resp.Header.Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q, want 1", resp.Header.Get("Retry-After"))
	}

	resp, body = env.do(t, http.MethodDelete, "/api/v1/recommendations/cache/u1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("invalidate status = %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodGet, "/api/v1/recommendations?userId=u1&count=3", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("after invalidate status = %d, want 200", resp.StatusCode)
	}
}

func TestProfile_PutAndGet(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)

	resp, body := env.do(t, http.MethodPut, "/api/v1/users/u7/profile", `{"interests":["Technology"," design ","technology"],"label":"reader"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put status = %d (%+v)", resp.StatusCode, body.Error)
	}
	if len(env.syncer.users) != 1 || env.syncer.users[0].UserID != "u7" {
		t.Errorf("synced users = %+v", env.syncer.users)
	}

	resp, body = env.do(t, http.MethodGet, "/api/v1/users/u7/profile", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	var p models.UserProfile
	if err := json.Unmarshal(body.Data, &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(p.Interests) != 2 || p.Interests[0] != "technology" || p.Interests[1] != "design" {
		t.Errorf("interests = %v, want [technology design]", p.Interests)
	}

	resp, body = env.do(t, http.MethodGet, "/api/v1/users/nobody/profile", "")
	wantError(t, resp, body, http.StatusNotFound, CodeNotFound)

	resp, body = env.do(t, http.MethodPut, "/api/v1/users/u7/profile", `{"interests":["sci-fi!"]}`)
	wantError(t, resp, body, http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestProfile_SyncFailureStillStores(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	env.syncer.err = errors.New("ranker down")

	resp, body := env.do(t, http.MethodPut, "/api/v1/users/u8/profile", `{"interests":["poetry"]}`)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body.Data), `"synced":false`) {
		t.Errorf("put = %d %s", resp.StatusCode, body.Data)
	}
	if _, err := env.store.GetProfile(context.Background(), "u8"); err != nil {
		t.Errorf("profile not stored: %v", err)
	}
}

func TestFeedback(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)

	resp, body := env.do(t, http.MethodPost, "/api/v1/feedback",
		`{"events":[{"type":"like","userId":"u1","itemId":"c1"},{"type":"read","userId":"u1","itemId":"c2","timestamp":"2026-01-02T03:04:05Z"}],"immediate":true}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d (%+v)", resp.StatusCode, body.Error)
	}
	if len(env.publisher.events) != 2 || !env.publisher.immediate {
		t.Fatalf("published = %+v immediate=%v", env.publisher.events, env.publisher.immediate)
	}
	if env.publisher.events[0].Timestamp.IsZero() {
		t.Error("missing timestamp was not defaulted")
	}
	if got := env.publisher.events[1].Timestamp; !got.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("explicit timestamp = %v", got)
	}

	for _, bad := range []string{
		`{"events":[]}`,
		`{"events":[{"type":"dislike","userId":"u1","itemId":"c1"}]}`,
		`{"events":[{"type":"read","itemId":"c1"}]}`,
	} {
		resp, body := env.do(t, http.MethodPost, "/api/v1/feedback", bad)
		wantError(t, resp, body, http.StatusBadRequest, "VALIDATION_ERROR")
	}
}

func TestFeedbackBackfill(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	resp, body := env.do(t, http.MethodPost, "/api/v1/feedback/backfill",
		`{"events":[{"type":"share","userId":"u1","itemId":"c1"},{"type":"like","userId":"u2","itemId":"c1"}]}`)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body.Data), `"submitted":2`) {
		t.Errorf("backfill = %d %s", resp.StatusCode, body.Data)
	}
	if len(env.syncer.backfill) != 2 {
		t.Errorf("backfilled %d events, want 2", len(env.syncer.backfill))
	}
}

func TestSyncItems(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	ctx := context.Background()
	now := time.Now()
	for i := 0; i < 3; i++ {
		_ = env.store.PutContent(ctx, models.Content{ID: fmt.Sprintf("c%d", i), PublishedAt: now.Add(-time.Duration(i) * time.Hour)})
	}

	resp, body := env.do(t, http.MethodPost, "/api/v1/sync/items?limit=2", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body.Data), `"submitted":2`) {
		t.Errorf("sync items = %d %s", resp.StatusCode, body.Data)
	}
	if len(env.syncer.items) != 1 || env.syncer.items[0][0].ID != "c0" {
		t.Errorf("submitted batches = %+v, want newest first", env.syncer.items)
	}

	resp, body = env.do(t, http.MethodPost, "/api/v1/sync/items?limit=0", "")
	wantError(t, resp, body, http.StatusBadRequest, "VALIDATION_ERROR")

	env.syncer.err = errors.New("ranker down")
	resp, body = env.do(t, http.MethodPost, "/api/v1/sync/items", "")
	wantError(t, resp, body, http.StatusBadGateway, CodeUpstream)
}

type downStore struct{ *storage.Memory }

func (downStore) Ping(context.Context) error { return errors.New("unreachable") }

func TestHealth(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	for _, path := range []string{"/api/v1/health/live", "/api/v1/health/ready", "/api/v1/health"} {
		resp, _ := env.do(t, http.MethodGet, path, "")
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d", path, resp.StatusCode)
		}
	}

	_, body := env.do(t, http.MethodGet, "/api/v1/health", "")
	var status HealthStatus
	if err := json.Unmarshal(body.Data, &status); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if status.RecommendCache == nil {
		t.Error("health is missing the recommendation cache summary")
	}

	h := NewHandler(Deps{Store: downStore{storage.NewMemory()}})
	rec := httptest.NewRecorder()
	h.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready with down storage = %d, want 503", rec.Code)
	}
}

func TestRouter_NotFoundAndMetrics(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	resp, body := env.do(t, http.MethodGet, "/api/v1/nothing-here", "")
	wantError(t, resp, body, http.StatusNotFound, CodeNotFound)

	mresp, err := env.server.Client().Get(env.server.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer mresp.Body.Close()
	if mresp.StatusCode != http.StatusOK {
		t.Errorf("/metrics status = %d", mresp.StatusCode)
	}
}

func TestRouter_RateLimit(t *testing.T) {
	t.Parallel()

	mw := DefaultChiMiddlewareConfig()
	mw.RateLimitRequests = 2
	mw.RateLimitWindow = time.Minute
	env := newTestEnv(t, mw)

	for i := 0; i < 2; i++ {
		resp, _ := env.do(t, http.MethodGet, "/api/v1/collect/sources", "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d status = %d", i, resp.StatusCode)
		}
	}
	resp, body := env.do(t, http.MethodGet, "/api/v1/collect/sources", "")
	wantError(t, resp, body, http.StatusTooManyRequests, CodeRateLimited)
	if resp.Header.Get("Retry-After") == "" {
		t.Error("missing Retry-After on limiter rejection")
	}
}
