// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package ranker

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/readstream/internal/logging"
	"github.com/tomtom215/readstream/internal/metrics"
	"github.com/tomtom215/readstream/internal/retry"
)

// BreakerSettings configures the circuit breaker around a Ranker.
type BreakerSettings struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// BreakerClient wraps a Ranker with a circuit breaker. While the circuit is
// open every call fails fast with gobreaker.ErrOpenState, which the resolver
// treats like any other ranker failure.
//
// Client errors (non-retryable statuses such as 404 for an unknown user)
// do not count toward tripping.
type BreakerClient struct {
	next Ranker
	cb   *gobreaker.CircuitBreaker[any]
	name string
}

// NewBreakerClient wraps next.
func NewBreakerClient(next Ranker, s BreakerSettings) *BreakerClient {
	if s.Name == "" {
		s.Name = "ranker"
	}
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 5
	}

	metrics.CircuitBreakerState.WithLabelValues(s.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= s.FailureThreshold
			if trip {
				logging.Warn().
					Str("breaker", s.Name).
					Uint32("consecutive_failures", counts.ConsecutiveFailures).
					Msg("Opening circuit")
			}
			return trip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("Circuit state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var se *retry.StatusError
			return errors.As(err, &se) && !se.Retryable()
		},
	})

	return &BreakerClient{next: next, cb: cb, name: s.Name}
}

// State returns the breaker state as a label.
func (b *BreakerClient) State() string {
	return stateToString(b.cb.State())
}

func (b *BreakerClient) execute(fn func() (any, error)) (any, error) {
	result, err := b.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		}
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	return result, nil
}

// castResult type-asserts a breaker result.
func castResult[T any](result any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func (b *BreakerClient) InsertItems(ctx context.Context, items []Item) error {
	_, err := b.execute(func() (any, error) { return nil, b.next.InsertItems(ctx, items) })
	return err
}

func (b *BreakerClient) InsertUsers(ctx context.Context, users []User) error {
	_, err := b.execute(func() (any, error) { return nil, b.next.InsertUsers(ctx, users) })
	return err
}

func (b *BreakerClient) InsertFeedback(ctx context.Context, feedback []Feedback) error {
	_, err := b.execute(func() (any, error) { return nil, b.next.InsertFeedback(ctx, feedback) })
	return err
}

func (b *BreakerClient) Recommend(ctx context.Context, userID string, n int) ([]Candidate, error) {
	return castResult[[]Candidate](b.execute(func() (any, error) {
		return b.next.Recommend(ctx, userID, n)
	}))
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

var _ Ranker = (*BreakerClient)(nil)
