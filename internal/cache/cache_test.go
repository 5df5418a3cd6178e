// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package cache

import (
	"strconv"
	"sync"
	"testing"
	"time"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (m *manualClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *manualClock) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

func newTestCache[V any](ttl time.Duration) (*Cache[V], *manualClock) {
	clock := &manualClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	return New[V](ttl, WithClock(clock.Now), WithCleanupInterval(0)), clock
}

func TestCacheBasicOperations(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache[string](time.Minute)
	c.Set("key1", "value1")

	value, exists := c.Get("key1")
	if !exists || value != "value1" {
		t.Errorf("Get(key1) = %q, %v; want value1, true", value, exists)
	}
	if _, exists := c.Get("key2"); exists {
		t.Error("Expected key2 to not exist")
	}
}

func TestCacheExpiration(t *testing.T) {
	t.Parallel()

	c, clock := newTestCache[int](5 * time.Minute)
	c.Set("k", 1)

	clock.Advance(5*time.Minute - time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Error("entry expired before its TTL")
	}
	clock.Advance(time.Second)
	if _, ok := c.Get("k"); ok {
		t.Error("entry still present at its TTL")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not removed on read, Len() = %d", c.Len())
	}
}

func TestCacheDeletePrefix(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache[int](time.Minute)
	c.Set("rec:alice:10", 1)
	c.Set("rec:alice:20", 2)
	c.Set("rec:alicia:10", 3)
	c.Set("rec:bob:10", 4)

	if n := c.DeletePrefix("rec:alice:"); n != 2 {
		t.Errorf("DeletePrefix() = %d, want 2", n)
	}
	for _, key := range []string{"rec:alicia:10", "rec:bob:10"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("%s removed by an unrelated prefix", key)
		}
	}
}

func TestCacheSetIfAbsent(t *testing.T) {
	t.Parallel()

	c, clock := newTestCache[struct{}](time.Second)

	if !c.SetIfAbsent("u1", struct{}{}) {
		t.Fatal("first SetIfAbsent should win")
	}
	if c.SetIfAbsent("u1", struct{}{}) {
		t.Error("second SetIfAbsent inside the TTL should lose")
	}
	clock.Advance(400 * time.Millisecond)
	if left, ok := c.Remaining("u1"); !ok || left != 600*time.Millisecond {
		t.Errorf("Remaining() = %v, %v; want 600ms, true", left, ok)
	}
	clock.Advance(600 * time.Millisecond)
	if !c.SetIfAbsent("u1", struct{}{}) {
		t.Error("SetIfAbsent after expiry should win")
	}
}

func TestCacheStats(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache[int](time.Minute)
	c.Set("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	stats := c.GetStats()
	if stats.Hits != 2 || stats.Misses != 1 || stats.TotalKeys != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if rate := c.HitRate(); rate < 66.6 || rate > 66.7 {
		t.Errorf("HitRate() = %.2f, want ~66.67", rate)
	}
	c.Clear()
	if c.Len() != 0 || c.GetStats().TotalKeys != 0 {
		t.Error("Clear() left entries behind")
	}
}

func TestCacheCleanup(t *testing.T) {
	t.Parallel()

	c, clock := newTestCache[int](time.Minute)
	c.Set("old", 1)
	clock.Advance(30 * time.Second)
	c.Set("new", 2)
	clock.Advance(45 * time.Second)

	c.cleanup()
	if c.Len() != 1 {
		t.Errorf("Len() after cleanup = %d, want 1", c.Len())
	}
	if _, ok := c.Get("new"); !ok {
		t.Error("live entry swept")
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	t.Parallel()

	c := New[int](time.Minute)
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := "k" + strconv.Itoa(i%5)
			c.Set(key, i)
			c.Get(key)
			if i%7 == 0 {
				c.DeletePrefix("k")
			}
		}(i)
	}
	wg.Wait()
}
