// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package syncbridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/readstream/internal/config"
	"github.com/tomtom215/readstream/internal/logging"
	"github.com/tomtom215/readstream/internal/metrics"
	"github.com/tomtom215/readstream/internal/models"
)

// DefaultTopic carries feedback events between the API and the relay.
const DefaultTopic = "readstream.feedback"

// FeedbackSubmitter is the part of Bridge the relay needs.
type FeedbackSubmitter interface {
	SubmitFeedback(ctx context.Context, events []models.FeedbackEvent) error
}

// Relay moves feedback events from a watermill topic to the ranker in
// batches. A batch is flushed when it reaches BatchSize or every
// FlushInterval, whichever comes first.
type Relay struct {
	pubsub        PubSub
	bridge        FeedbackSubmitter
	logger        watermill.LoggerAdapter
	topic         string
	batchSize     int
	flushInterval time.Duration

	mu     sync.Mutex
	buffer []models.FeedbackEvent

	readyOnce sync.Once
	ready     chan struct{}
}

// NewRelay creates a relay publishing to and consuming from ps.
func NewRelay(ps PubSub, bridge FeedbackSubmitter, cfg config.FeedbackConfig, logger watermill.LoggerAdapter) *Relay {
	if logger == nil {
		logger = logging.NewWatermillLogger()
	}
	r := &Relay{
		pubsub:        ps,
		bridge:        bridge,
		logger:        logger,
		topic:         cfg.Topic,
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		ready:         make(chan struct{}),
	}
	if r.topic == "" {
		r.topic = DefaultTopic
	}
	if r.batchSize <= 0 {
		r.batchSize = 50
	}
	if r.flushInterval <= 0 {
		r.flushInterval = 5 * time.Second
	}
	return r
}

// Publish hands events to the relay. Immediate events skip the topic and
// are submitted straight away; a submission failure there is logged by the
// bridge and not returned. Only a failure to publish is an error.
func (r *Relay) Publish(ctx context.Context, events []models.FeedbackEvent, immediate bool) error {
	if len(events) == 0 {
		return nil
	}
	if immediate {
		_ = r.bridge.SubmitFeedback(ctx, events)
		return nil
	}

	msgs := make([]*message.Message, 0, len(events))
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode feedback event: %w", err)
		}
		msg := message.NewMessage(uuid.NewString(), payload)
		if id := logging.CorrelationIDFromContext(ctx); id != "" {
			msg.Metadata.Set("correlation_id", id)
		}
		msgs = append(msgs, msg)
	}
	if err := r.pubsub.Publisher.Publish(r.topic, msgs...); err != nil {
		return fmt.Errorf("publish feedback: %w", err)
	}
	return nil
}

// Ready is closed once the relay's router is consuming.
func (r *Relay) Ready() <-chan struct{} {
	return r.ready
}

// Buffered returns the number of events waiting for a flush.
func (r *Relay) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buffer)
}

// Serve consumes the topic until ctx is done, then flushes what is left.
// It may be called again after returning.
func (r *Relay) Serve(ctx context.Context) error {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, r.logger)
	if err != nil {
		return fmt.Errorf("create feedback router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)
	router.AddMiddleware(middleware.Retry{
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2.0,
		Logger:          r.logger,
	}.Middleware)
	router.AddConsumerHandler("feedback_relay", r.topic, keepOpen{r.pubsub.Subscriber}, r.handle)

	go func() {
		select {
		case <-router.Running():
			r.readyOnce.Do(func() { close(r.ready) })
		case <-ctx.Done():
		}
	}()

	done := make(chan struct{})
	go r.flushLoop(ctx, done)

	runErr := router.Run(ctx)
	close(done)

	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	r.Flush(flushCtx)

	if runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("feedback router: %w", runErr)
	}
	return nil
}

// handle buffers one event. Undecodable payloads are dropped.
func (r *Relay) handle(msg *message.Message) error {
	var e models.FeedbackEvent
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		r.logger.Error("Dropping undecodable feedback event", err, watermill.LogFields{"uuid": msg.UUID})
		return nil
	}

	r.mu.Lock()
	r.buffer = append(r.buffer, e)
	full := len(r.buffer) >= r.batchSize
	metrics.FeedbackQueued.Set(float64(len(r.buffer)))
	r.mu.Unlock()

	if full {
		r.Flush(msg.Context())
	}
	return nil
}

func (r *Relay) flushLoop(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.Flush(ctx)
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Flush submits every buffered event as one batch.
func (r *Relay) Flush(ctx context.Context) {
	r.mu.Lock()
	batch := r.buffer
	r.buffer = nil
	metrics.FeedbackQueued.Set(0)
	r.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	_ = r.bridge.SubmitFeedback(ctx, batch)
}

// Close releases the transport.
func (r *Relay) Close() error {
	return r.pubsub.Close()
}
