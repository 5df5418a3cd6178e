// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package services

import (
	"context"
	"errors"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/readstream/internal/collector"
	"github.com/tomtom215/readstream/internal/config"
	"github.com/tomtom215/readstream/internal/logging"
	"github.com/tomtom215/readstream/internal/models"
)

// Collector runs a collection pass.
type Collector interface {
	CollectAll(ctx context.Context, opts collector.Options) (models.CollectResult, error)
}

// SchedulerConfig controls background collection.
type SchedulerConfig struct {
	// Interval between runs. Zero disables the periodic loop.
	Interval time.Duration

	// RunOnStartup triggers one run as soon as the service starts.
	RunOnStartup bool
}

// SchedulerConfigFromConfig maps the collect section onto a SchedulerConfig.
func SchedulerConfigFromConfig(cfg config.CollectConfig) SchedulerConfig {
	return SchedulerConfig{
		Interval:     cfg.AutoRunInterval(),
		RunOnStartup: cfg.RunOnStartup,
	}
}

// CollectScheduler runs live collections on a ticker. A tick that lands on
// an in-flight run is skipped. Run failures are logged, not returned, so one
// bad run does not count against the supervisor's failure threshold.
type CollectScheduler struct {
	collector Collector
	config    SchedulerConfig
	name      string
}

// NewCollectScheduler creates the scheduler service.
func NewCollectScheduler(c Collector, cfg SchedulerConfig) *CollectScheduler {
	return &CollectScheduler{
		collector: c,
		config:    cfg,
		name:      "collect-scheduler",
	}
}

// Serve implements suture.Service. With no interval it runs at most the
// startup pass and then asks not to be restarted.
func (s *CollectScheduler) Serve(ctx context.Context) error {
	log := logging.WithComponent(s.name)

	if s.config.RunOnStartup {
		s.runOnce(ctx)
	}

	if s.config.Interval <= 0 {
		log.Info().Msg("Periodic collection disabled")
		return suture.ErrDoNotRestart
	}

	log.Info().Dur("interval", s.config.Interval).Msg("Collect scheduler started")
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Collect scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *CollectScheduler) runOnce(ctx context.Context) {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	log := logging.Ctx(ctx).With().Str("component", s.name).Logger()

	res, err := s.collector.CollectAll(ctx, collector.Options{})
	switch {
	case errors.Is(err, collector.ErrRunInProgress):
		log.Debug().Msg("Skipping scheduled run, another run is in progress")
	case err != nil:
		log.Error().Err(err).Str("run_id", res.RunID).Msg("Scheduled collection failed")
	default:
		log.Info().
			Str("run_id", res.RunID).
			Str("state", string(res.State)).
			Int("items_found", res.ItemsFound).
			Int("added", res.NewItemsAdded).
			Int("source_errors", len(res.Errors)).
			Msg("Scheduled collection finished")
	}
}

func (s *CollectScheduler) String() string {
	return s.name
}
