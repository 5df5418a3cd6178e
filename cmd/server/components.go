// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tomtom215/readstream/internal/api"
	"github.com/tomtom215/readstream/internal/collector"
	"github.com/tomtom215/readstream/internal/config"
	"github.com/tomtom215/readstream/internal/logging"
	"github.com/tomtom215/readstream/internal/ranker"
	"github.com/tomtom215/readstream/internal/ratelimit"
	"github.com/tomtom215/readstream/internal/recommend"
	"github.com/tomtom215/readstream/internal/sources"
	"github.com/tomtom215/readstream/internal/storage"
	"github.com/tomtom215/readstream/internal/syncbridge"
)

// components holds everything main wires together.
type components struct {
	store        storage.Store
	ranker       ranker.Ranker
	bridge       *syncbridge.Bridge
	relay        *syncbridge.Relay
	catalog      *sources.Catalog
	orchestrator *collector.Orchestrator
	resolver     *recommend.Resolver
	handler      http.Handler
}

// buildComponents opens storage and the feedback transport and wires the
// rest. On error everything opened so far is closed.
func buildComponents(ctx context.Context, cfg *config.Config) (c *components, err error) {
	c = &components{}
	defer func() {
		if err != nil {
			if cerr := c.Close(); cerr != nil {
				logging.Warn().Err(cerr).Msg("Error releasing partially built components")
			}
			c = nil
		}
	}()

	c.store, err = storage.Open(ctx, cfg.Storage)
	if err != nil {
		return c, fmt.Errorf("open storage: %w", err)
	}
	logging.Info().Str("driver", cfg.Storage.Driver).Msg("Storage opened")

	c.ranker = ranker.New(cfg.Ranker)
	if cfg.Ranker.Enabled() {
		logging.Info().Str("url", cfg.Ranker.URL).Msg("Ranker enabled")
	} else {
		logging.Warn().Msg("RANKER_URL not set, recommendations use the local fallback only")
	}

	c.bridge = syncbridge.New(c.ranker, cfg.Feedback)
	c.relay, err = initFeedback(cfg.Feedback, c.bridge)
	if err != nil {
		return c, err
	}

	limiter := ratelimit.New(cfg.Collect.HostRate)
	env := sources.NewEnv(limiter, cfg.Collect.FetchTimeout(), cfg.Collect.UserAgent)
	c.catalog, err = sources.FromConfig(cfg, env)
	if err != nil {
		return c, fmt.Errorf("build source catalog: %w", err)
	}
	logging.Info().Int("sources", len(c.catalog.Infos())).Msg("Source catalog loaded")

	c.orchestrator = collector.New(c.catalog, c.store, c.bridge, collector.SettingsFromConfig(cfg.Collect))
	c.resolver = recommend.NewResolver(c.ranker, c.store, c.store, recommend.OptionsFromConfig(cfg.Recommend))

	handler := api.NewHandler(api.Deps{
		Collector:     c.orchestrator,
		Sources:       c.catalog,
		Recommender:   c.resolver,
		Store:         c.store,
		Syncer:        c.bridge,
		Feedback:      c.relay,
		RankerEnabled: cfg.Ranker.Enabled(),
		Recommend:     cfg.Recommend,
	})
	c.handler = api.NewRouter(handler, api.ChiMiddlewareConfigFromSecurity(cfg.Security)).SetupChi()

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Inbound rate limiting is DISABLED (RATE_LIMIT_DISABLED=true)")
	}
	return c, nil
}

// Close releases the resolver caches, the transport and storage, in that order.
func (c *components) Close() error {
	var errs []error
	if c.resolver != nil {
		c.resolver.Close()
	}
	if c.relay != nil {
		if err := c.relay.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close feedback transport: %w", err))
		}
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	return errors.Join(errs...)
}
