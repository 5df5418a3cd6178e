// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package services

import (
	"context"
	"fmt"

	"github.com/tomtom215/readstream/internal/logging"
)

// Relay consumes feedback events until ctx is done.
// Satisfied by *syncbridge.Relay.
type Relay interface {
	Serve(ctx context.Context) error
}

// FeedbackRelayService supervises the feedback relay. The relay flushes its
// buffer before Serve returns, so a restart never loses accepted events.
type FeedbackRelayService struct {
	relay Relay
	name  string
}

// NewFeedbackRelayService wraps relay.
func NewFeedbackRelayService(relay Relay) *FeedbackRelayService {
	return &FeedbackRelayService{relay: relay, name: "feedback-relay"}
}

// Serve implements suture.Service.
func (f *FeedbackRelayService) Serve(ctx context.Context) error {
	log := logging.WithComponent(f.name)
	log.Info().Msg("Feedback relay starting")

	if err := f.relay.Serve(ctx); err != nil {
		return fmt.Errorf("feedback relay: %w", err)
	}
	if ctx.Err() != nil {
		log.Info().Msg("Feedback relay stopped")
		return ctx.Err()
	}
	// The router exited on its own; let suture restart it.
	return fmt.Errorf("feedback relay exited unexpectedly")
}

func (f *FeedbackRelayService) String() string {
	return f.name
}
