// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package syncbridge

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/readstream/internal/config"
	"github.com/tomtom215/readstream/internal/logging"
)

// Transports for the feedback topic.
const (
	TransportGoChannel = "gochannel"
	TransportNATS      = "nats"
)

// PubSub is a publisher and subscriber pair for the feedback topic.
type PubSub struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Close closes both sides. For gochannel they are the same value.
func (p PubSub) Close() error {
	perr := p.Publisher.Close()
	if any(p.Subscriber) == any(p.Publisher) {
		return perr
	}
	serr := p.Subscriber.Close()
	if perr != nil {
		return perr
	}
	return serr
}

// NewPubSub opens the transport named by cfg.Transport.
func NewPubSub(cfg config.FeedbackConfig, logger watermill.LoggerAdapter) (PubSub, error) {
	if logger == nil {
		logger = logging.NewWatermillLogger()
	}
	switch cfg.Transport {
	case "", TransportGoChannel:
		ch := gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: int64(max(cfg.BatchSize, 1) * 4),
		}, logger)
		return PubSub{Publisher: ch, Subscriber: ch}, nil
	case TransportNATS:
		return newNATSPubSub(cfg, logger)
	default:
		return PubSub{}, fmt.Errorf("unknown feedback transport %q", cfg.Transport)
	}
}

// keepOpen hides Close from the router so a restarted relay can subscribe again.
type keepOpen struct {
	message.Subscriber
}

func (keepOpen) Close() error { return nil }
