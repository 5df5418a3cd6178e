// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

// Package syncbridge pushes content, users and feedback to the ranking service.
//
// Every direction is fire-and-forget for its caller: failures are logged and
// counted, and the error is returned only so the caller can note it (for
// example in a run record). No caller should abort on a bridge error.
package syncbridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/readstream/internal/config"
	"github.com/tomtom215/readstream/internal/logging"
	"github.com/tomtom215/readstream/internal/metrics"
	"github.com/tomtom215/readstream/internal/models"
	"github.com/tomtom215/readstream/internal/ranker"
)

// Submission kinds, used as metric labels.
const (
	KindItems    = "items"
	KindUsers    = "users"
	KindFeedback = "feedback"
)

// Bridge translates local records to the ranker's shapes and submits them.
type Bridge struct {
	ranker ranker.Ranker
	now    func() time.Time

	backfillRate  int
	backfillBatch int
}

// New creates a bridge in front of r. BackfillRate and BatchSize come from cfg.
func New(r ranker.Ranker, cfg config.FeedbackConfig) *Bridge {
	if r == nil {
		r = ranker.Disabled{}
	}
	b := &Bridge{
		ranker:        r,
		now:           time.Now,
		backfillRate:  cfg.BackfillRate,
		backfillBatch: cfg.BatchSize,
	}
	if b.backfillRate <= 0 {
		b.backfillRate = 20
	}
	if b.backfillBatch <= 0 {
		b.backfillBatch = 50
	}
	return b
}

// SubmitItems sends content records in one bulk call. An empty slice is a no-op.
func (b *Bridge) SubmitItems(ctx context.Context, items []models.Content) error {
	if len(items) == 0 {
		return nil
	}
	wire := make([]ranker.Item, len(items))
	for i, c := range items {
		wire[i] = ranker.ItemFromContent(c)
	}
	err := b.ranker.InsertItems(ctx, wire)
	b.record(ctx, KindItems, len(wire), err)
	return err
}

// SubmitUsers sends user profiles in one bulk call.
func (b *Bridge) SubmitUsers(ctx context.Context, profiles []models.UserProfile) error {
	if len(profiles) == 0 {
		return nil
	}
	wire := make([]ranker.User, len(profiles))
	for i, p := range profiles {
		wire[i] = ranker.UserFromProfile(p)
	}
	err := b.ranker.InsertUsers(ctx, wire)
	b.record(ctx, KindUsers, len(wire), err)
	return err
}

// SubmitFeedback sends feedback events in one call.
func (b *Bridge) SubmitFeedback(ctx context.Context, events []models.FeedbackEvent) error {
	if len(events) == 0 {
		return nil
	}
	now := b.now()
	wire := make([]ranker.Feedback, len(events))
	for i, e := range events {
		wire[i] = ranker.FeedbackFromEvent(e, now)
	}
	err := b.ranker.InsertFeedback(ctx, wire)
	b.record(ctx, KindFeedback, len(wire), err)
	return err
}

// Backfill replays events in batches, paced at the configured events per
// second. It keeps going past failed batches and returns how many events were
// accepted along with every batch error joined.
func (b *Bridge) Backfill(ctx context.Context, events []models.FeedbackEvent) (int, error) {
	burst := b.backfillRate
	if b.backfillBatch > burst {
		burst = b.backfillBatch
	}
	limiter := rate.NewLimiter(rate.Limit(b.backfillRate), burst)

	var (
		sent int
		errs []error
	)
	for start := 0; start < len(events); start += b.backfillBatch {
		end := start + b.backfillBatch
		if end > len(events) {
			end = len(events)
		}
		batch := events[start:end]

		if err := limiter.WaitN(ctx, len(batch)); err != nil {
			errs = append(errs, fmt.Errorf("backfill paused at %d/%d: %w", start, len(events), err))
			break
		}
		if err := b.SubmitFeedback(ctx, batch); err != nil {
			errs = append(errs, fmt.Errorf("backfill batch %d-%d: %w", start, end, err))
			continue
		}
		sent += len(batch)
	}
	return sent, errors.Join(errs...)
}

func (b *Bridge) record(ctx context.Context, kind string, n int, err error) {
	metrics.RecordSyncSubmission(kind, n, err)
	log := logging.Ctx(ctx)
	switch {
	case err == nil:
		log.Debug().Str("kind", kind).Int("count", n).Msg("Submitted to ranker")
	case errors.Is(err, ranker.ErrDisabled):
		log.Debug().Str("kind", kind).Int("count", n).Msg("Ranker disabled, submission skipped")
	default:
		log.Warn().Err(err).Str("kind", kind).Int("count", n).Msg("Ranker submission failed")
	}
}
