// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

// Package retry runs an operation with exponential backoff when, and only when,
// its error is classified as transient.
//
// Classification is typed: an error is retried if anything in its chain
// implements Retryable and reports true. StatusError does so for HTTP 429 and 5xx.
// Every other error (4xx, decode errors, plain network errors) is terminal and
// returned immediately.
//
// When all attempts fail with transient errors the result wraps
// ErrRetriesExhausted and the last underlying error:
//
//	err := retry.Do(ctx, 3, func(ctx context.Context) error { ... })
//	if errors.Is(err, retry.ErrRetriesExhausted) { ... }
package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/readstream/internal/logging"
	"github.com/tomtom215/readstream/internal/metrics"
)

// DefaultMaxAttempts is used when a policy leaves MaxAttempts unset.
const DefaultMaxAttempts = 3

// ErrRetriesExhausted marks a transient failure that outlived every attempt.
var ErrRetriesExhausted = errors.New("retries exhausted")

// Retryable is implemented by errors that know their own classification.
type Retryable interface {
	Retryable() bool
}

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

// NewStatusError builds a StatusError, trimming body to a loggable size.
func NewStatusError(op string, statusCode int, body []byte) *StatusError {
	const maxBody = 256
	if len(body) > maxBody {
		body = body[:maxBody]
	}
	return &StatusError{Op: op, StatusCode: statusCode, Body: string(body)}
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Retryable is true for 429 Too Many Requests and any 5xx.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsRetryable reports whether err (or anything it wraps) is transient.
func IsRetryable(err error) bool {
	var r Retryable
	return errors.As(err, &r) && r.Retryable()
}

// ExhaustedError wraps the last transient error after the final attempt.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s after %d attempts: %v", ErrRetriesExhausted, e.Attempts, e.Last)
}

// Is matches ErrRetriesExhausted.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrRetriesExhausted
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy configures a retry loop.
type Policy struct {
	// MaxAttempts includes the first call.
	MaxAttempts int

	// BaseDelay is multiplied by 2^attempt; with the default of one second the
	// waits after attempts 1 and 2 are 2s and 4s.
	BaseDelay time.Duration

	// Sleep defaults to a context-aware timer wait.
	Sleep SleepFunc
}

// DefaultPolicy returns three attempts with 2^attempt second waits.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, BaseDelay: time.Second, Sleep: sleepContext}
}

// Do runs fn under DefaultPolicy with maxAttempts.
func Do(ctx context.Context, maxAttempts int, fn func(ctx context.Context) error) error {
	p := DefaultPolicy()
	p.MaxAttempts = maxAttempts
	return p.Do(ctx, fn)
}

// Do runs fn until it succeeds, fails terminally, or attempts run out.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := DoValue(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if p.MaxAttempts < 1 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	if p.Sleep == nil {
		p.Sleep = sleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		v, err := fn(ctx)
		if err == nil {
			metrics.RetryAttempts.WithLabelValues("success").Inc()
			return v, nil
		}
		if !IsRetryable(err) {
			metrics.RetryAttempts.WithLabelValues("terminal").Inc()
			return zero, err
		}
		lastErr = err

		if attempt == p.MaxAttempts {
			break
		}

		delay := p.BaseDelay << attempt
		metrics.RetryAttempts.WithLabelValues("retried").Inc()
		logging.Ctx(ctx).Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", p.MaxAttempts).
			Dur("delay", delay).
			Msg("Transient failure, backing off")

		if err := p.Sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	metrics.RetryAttempts.WithLabelValues("exhausted").Inc()
	return zero, &ExhaustedError{Attempts: p.MaxAttempts, Last: lastErr}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
