// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

//go:build !nats

package syncbridge

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/tomtom215/readstream/internal/config"
)

// newNATSPubSub returns an error when built without NATS support.
// Build with -tags=nats to enable it.
func newNATSPubSub(config.FeedbackConfig, watermill.LoggerAdapter) (PubSub, error) {
	return PubSub{}, fmt.Errorf("NATS feedback transport not available: build with -tags=nats")
}
