// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package main

import (
	"fmt"

	"github.com/tomtom215/readstream/internal/config"
	"github.com/tomtom215/readstream/internal/logging"
	"github.com/tomtom215/readstream/internal/syncbridge"
)

// initFeedback opens the configured transport and builds the relay that
// batches feedback into the bridge.
func initFeedback(cfg config.FeedbackConfig, bridge *syncbridge.Bridge) (*syncbridge.Relay, error) {
	wmLogger := logging.NewWatermillLogger()

	ps, err := syncbridge.NewPubSub(cfg, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("open feedback transport: %w", err)
	}

	ev := logging.Info().
		Str("transport", cfg.Transport).
		Str("topic", cfg.Topic).
		Int("batch_size", cfg.BatchSize).
		Dur("flush_interval", cfg.FlushInterval)
	if cfg.Transport == syncbridge.TransportNATS {
		ev = ev.Str("nats_url", cfg.NATSURL)
	}
	ev.Msg("Feedback transport opened")

	return syncbridge.NewRelay(ps, bridge, cfg, wmLogger), nil
}
