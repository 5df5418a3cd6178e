// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package recommend

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/readstream/internal/models"
	"github.com/tomtom215/readstream/internal/ranker"
	"github.com/tomtom215/readstream/internal/storage"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// scriptedRanker returns a fixed candidate list and counts calls.
type scriptedRanker struct {
	ranker.Disabled
	mu         sync.Mutex
	candidates []ranker.Candidate
	err        error
	calls      int
	lastN      int
}

func (s *scriptedRanker) Recommend(_ context.Context, _ string, n int) ([]ranker.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastN = n
	return s.candidates, s.err
}

func (s *scriptedRanker) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func candidates(ids ...string) []ranker.Candidate {
	out := make([]ranker.Candidate, len(ids))
	for i, id := range ids {
		out[i] = ranker.Candidate{ID: id, Score: float64(len(ids) - i)}
	}
	return out
}

type fixture struct {
	clock    *stepClock
	store    *storage.Memory
	ranker   *scriptedRanker
	resolver *Resolver
}

func newFixture(t *testing.T, interests []string, content ...models.Content) *fixture {
	t.Helper()

	clock := &stepClock{now: scoreNow}
	store := storage.NewMemory()
	ctx := context.Background()
	for _, c := range content {
		if err := store.PutContent(ctx, c); err != nil {
			t.Fatalf("PutContent(%s) error = %v", c.ID, err)
		}
	}
	if interests != nil {
		if err := store.PutProfile(ctx, models.UserProfile{UserID: "u1", Interests: interests}); err != nil {
			t.Fatalf("PutProfile() error = %v", err)
		}
	}

	sr := &scriptedRanker{}
	opts := DefaultOptions()
	opts.Now = clock.Now
	r := NewResolver(sr, store, store, opts)
	t.Cleanup(r.Close)

	return &fixture{clock: clock, store: store, ranker: sr, resolver: r}
}

func resultIDs(res models.RecommendationResult) []string {
	ids := make([]string, len(res.Items))
	for i, it := range res.Items {
		ids[i] = it.ContentID
	}
	return ids
}

func TestResolve_RelevanceFilter(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"technology", "design"},
		article("exact", daysAgo(1), "technology"),
		article("partial", daysAgo(1), "tech-news"),
		article("unrelated", daysAgo(1), "poetry"),
	)
	f.ranker.candidates = candidates("exact", "partial", "unrelated")

	res, err := f.resolver.Resolve(context.Background(), "u1", 3)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	ids := resultIDs(res)
	if len(ids) != 2 || ids[0] != "exact" || ids[1] != "partial" {
		t.Errorf("items = %v, want [exact partial]", ids)
	}
	if res.Source != models.SourceRanker {
		t.Errorf("source = %q, want ranker", res.Source)
	}
	if f.ranker.lastN != 6 {
		t.Errorf("ranker asked for %d candidates, want 2*count = 6", f.ranker.lastN)
	}
}

func TestResolve_CacheAndInvalidate(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, article("a", daysAgo(1), "design"))
	f.ranker.candidates = candidates("a")
	ctx := context.Background()

	first, err := f.resolver.Resolve(ctx, "u1", 5)
	if err != nil {
		t.Fatalf("first Resolve() error = %v", err)
	}
	if first.Cached {
		t.Error("first result should not be cached")
	}

	second, err := f.resolver.Resolve(ctx, "u1", 5)
	if err != nil {
		t.Fatalf("second Resolve() error = %v", err)
	}
	if !second.Cached {
		t.Error("second result inside the TTL should be cached")
	}
	if got, want := resultIDs(second), resultIDs(first); len(got) != len(want) || got[0] != want[0] {
		t.Errorf("cached items = %v, want %v", got, want)
	}
	if f.ranker.callCount() != 1 {
		t.Errorf("ranker calls = %d, want 1", f.ranker.callCount())
	}
	if st := f.resolver.CacheStats(); st.Entries != 1 || st.HitRate != 50 {
		t.Errorf("CacheStats() = %+v, want 1 entry at 50%% hits", st)
	}

	if n := f.resolver.Invalidate("u1"); n != 1 {
		t.Errorf("Invalidate() dropped %d entries, want 1", n)
	}
	third, err := f.resolver.Resolve(ctx, "u1", 5)
	if err != nil {
		t.Fatalf("Resolve() after invalidate error = %v", err)
	}
	if third.Cached {
		t.Error("result after invalidate should not be cached")
	}
	if f.ranker.callCount() != 2 {
		t.Errorf("ranker calls = %d, want 2", f.ranker.callCount())
	}
}

func TestResolve_CacheExpires(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, article("a", daysAgo(1), "design"))
	f.ranker.candidates = candidates("a")
	ctx := context.Background()

	if _, err := f.resolver.Resolve(ctx, "u1", 5); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	f.clock.Advance(5 * time.Minute)
	res, err := f.resolver.Resolve(ctx, "u1", 5)
	if err != nil {
		t.Fatalf("Resolve() after TTL error = %v", err)
	}
	if res.Cached {
		t.Error("result at the TTL should be recomputed")
	}
}

func TestResolve_InvalidateClearsEveryCount(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, article("a", daysAgo(1), "design"))
	f.ranker.candidates = candidates("a")
	ctx := context.Background()

	for _, count := range []int{5, 10} {
		if _, err := f.resolver.Resolve(ctx, "u1", count); err != nil {
			t.Fatalf("Resolve(%d) error = %v", count, err)
		}
		f.clock.Advance(time.Second)
	}
	if _, err := f.resolver.Resolve(ctx, "u2", 5); err != nil {
		t.Fatalf("Resolve(u2) error = %v", err)
	}

	if n := f.resolver.Invalidate("u1"); n != 2 {
		t.Errorf("Invalidate(u1) dropped %d entries, want 2", n)
	}
	res, err := f.resolver.Resolve(ctx, "u2", 5)
	if err != nil || !res.Cached {
		t.Errorf("u2 entry should survive u1 invalidation, cached=%v err=%v", res.Cached, err)
	}
}

func TestResolve_PerUserThrottle(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, article("a", daysAgo(1), "design"))
	f.ranker.candidates = candidates("a")
	ctx := context.Background()

	if _, err := f.resolver.Resolve(ctx, "u1", 5); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	f.clock.Advance(300 * time.Millisecond)
	_, err := f.resolver.Resolve(ctx, "u1", 6)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("second uncached request inside 1s: error = %v, want ErrRateLimited", err)
	}
	var rl *RateLimitedError
	if !errors.As(err, &rl) || rl.RetryAfter != 700*time.Millisecond {
		t.Errorf("RetryAfter = %v, want 700ms", rl)
	}

	if _, err := f.resolver.Resolve(ctx, "u2", 6); err != nil {
		t.Errorf("another user should not be throttled: %v", err)
	}

	f.clock.Advance(700 * time.Millisecond)
	if _, err := f.resolver.Resolve(ctx, "u1", 6); err != nil {
		t.Errorf("request after the window: %v", err)
	}
}

func TestResolve_InvalidateResetsThrottle(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, article("a", daysAgo(1), "design"))
	f.ranker.candidates = candidates("a")
	ctx := context.Background()

	if _, err := f.resolver.Resolve(ctx, "u1", 5); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	f.resolver.Invalidate("u1")
	if _, err := f.resolver.Resolve(ctx, "u1", 5); err != nil {
		t.Errorf("Resolve() right after invalidate error = %v", err)
	}
}

func TestResolve_FallbackWhenRankerFails(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name string
		cand []ranker.Candidate
		err  error
	}{
		{"error", nil, errors.New("connection refused")},
		{"empty", nil, nil},
		{"disabled", nil, ranker.ErrDisabled},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, []string{"poetry"},
				article("poem", daysAgo(2), "poetry"),
				article("news", daysAgo(2), "politics"),
			)
			f.ranker.candidates, f.ranker.err = tc.cand, tc.err

			res, err := f.resolver.Resolve(context.Background(), "u1", 5)
			if err != nil {
				t.Fatalf("Resolve() error = %v, ranker failures must not surface", err)
			}
			if res.Source != models.SourceFallback {
				t.Errorf("source = %q, want fallback", res.Source)
			}
			if ids := resultIDs(res); len(ids) != 1 || ids[0] != "poem" {
				t.Errorf("items = %v, want [poem]", ids)
			}
		})
	}
}

func TestResolve_FallbackWithoutInterestsIsEmpty(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, article("a", daysAgo(1), "design"))
	f.ranker.err = errors.New("down")

	res, err := f.resolver.Resolve(context.Background(), "u1", 5)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(res.Items) != 0 || res.Items == nil {
		t.Errorf("items = %v, want an empty non-nil list", res.Items)
	}
}

func TestResolve_BackfillsShortfall(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"science"},
		article("ranked", daysAgo(1), "science"),
		article("off-topic", daysAgo(1), "sport"),
		article("pool-1", daysAgo(2), "science"),
		article("pool-2", daysAgo(3), "space-science"),
		article("too-old", daysAgo(200), "science"),
	)
	f.ranker.candidates = candidates("ranked", "off-topic", "missing")

	res, err := f.resolver.Resolve(context.Background(), "u1", 4)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	ids := resultIDs(res)
	want := []string{"ranked", "pool-1", "pool-2"}
	if len(ids) != len(want) {
		t.Fatalf("items = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("items = %v, want %v", ids, want)
			break
		}
	}
	if res.Source != models.SourceRanker || res.Backfilled != 2 {
		t.Errorf("source = %q backfilled = %d; want ranker, 2", res.Source, res.Backfilled)
	}
}

func TestResolve_NoInterestsNoBackfill(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil,
		article("a", daysAgo(1), "poetry"),
		article("b", daysAgo(1), "science"),
	)
	f.ranker.candidates = candidates("a")

	res, err := f.resolver.Resolve(context.Background(), "u1", 5)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if ids := resultIDs(res); len(ids) != 1 || res.Backfilled != 0 {
		t.Errorf("items = %v backfilled = %d; want only the ranked item", ids, res.Backfilled)
	}
}

func TestResolve_TruncatesToCount(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil,
		article("a", daysAgo(1), "x"),
		article("b", daysAgo(1), "x"),
		article("c", daysAgo(1), "x"),
	)
	f.ranker.candidates = candidates("a", "b", "c")

	res, err := f.resolver.Resolve(context.Background(), "u1", 2)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(res.Items) != 2 {
		t.Errorf("len(items) = %d, want 2", len(res.Items))
	}
}

func TestResolve_InvalidCount(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	if _, err := f.resolver.Resolve(context.Background(), "u1", 0); !errors.Is(err, ErrInvalidCount) {
		t.Errorf("Resolve(count=0) error = %v, want ErrInvalidCount", err)
	}
}
