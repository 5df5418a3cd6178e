// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

// Package ratelimit paces outbound requests per target host.
//
// Each host owns a sliding window of recent grant timestamps. On every call,
// stamps older than the window are evicted first; if the window is full the
// caller sleeps until the oldest stamp leaves it (plus a small margin) and
// checks again. State is process-local and lost on restart.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/readstream/internal/metrics"
)

const (
	// DefaultRate is the per-host request budget per window.
	DefaultRate = 10

	// DefaultWindow is the sliding window length.
	DefaultWindow = time.Second

	// SafetyMargin is added to each computed wait.
	SafetyMargin = 10 * time.Millisecond
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// window holds grant timestamps in ascending order.
type window struct {
	stamps []time.Time
}

// evict drops stamps that are at least size old.
func (w *window) evict(now time.Time, size time.Duration) {
	i := 0
	for i < len(w.stamps) && now.Sub(w.stamps[i]) >= size {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}

// HostLimiter throttles callers per host. It is safe for concurrent use.
type HostLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	rate    int
	size    time.Duration
	margin  time.Duration
	clock   Clock
}

// Option configures a HostLimiter.
type Option func(*HostLimiter)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(l *HostLimiter) { l.clock = c }
}

// WithWindow replaces the one-second window.
func WithWindow(d time.Duration) Option {
	return func(l *HostLimiter) {
		if d > 0 {
			l.size = d
		}
	}
}

// New creates a limiter allowing rate requests per host per window.
// A non-positive rate falls back to DefaultRate.
func New(rate int, opts ...Option) *HostLimiter {
	if rate <= 0 {
		rate = DefaultRate
	}
	l := &HostLimiter{
		windows: make(map[string]*window),
		rate:    rate,
		size:    DefaultWindow,
		margin:  SafetyMargin,
		clock:   realClock{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Rate returns the configured per-window budget.
func (l *HostLimiter) Rate() int {
	return l.rate
}

// Wait blocks until a request to host fits in its window, then records it.
func (l *HostLimiter) Wait(ctx context.Context, host string) error {
	start := l.clock.Now()
	defer func() {
		metrics.RateLimitWait.WithLabelValues(host).Observe(l.clock.Now().Sub(start).Seconds())
	}()

	for {
		wait, ok := l.tryAcquire(host)
		if ok {
			return nil
		}
		if err := l.clock.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// tryAcquire records a grant if there is room, otherwise returns how long the
// caller should sleep before checking again.
func (l *HostLimiter) tryAcquire(host string) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[host]
	if !ok {
		w = &window{stamps: make([]time.Time, 0, l.rate)}
		l.windows[host] = w
	}

	now := l.clock.Now()
	w.evict(now, l.size)

	if len(w.stamps) < l.rate {
		w.stamps = append(w.stamps, now)
		return 0, true
	}

	wait := l.size - now.Sub(w.stamps[0]) + l.margin
	if wait < l.margin {
		wait = l.margin
	}
	return wait, false
}

// InFlight reports how many grants for host fall inside the current window.
func (l *HostLimiter) InFlight(host string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[host]
	if !ok {
		return 0
	}
	w.evict(l.clock.Now(), l.size)
	return len(w.stamps)
}
