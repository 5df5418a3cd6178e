// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

// Package collector runs collection: fetch every selected source, normalize
// and deduplicate what they return, persist new records up to a per-run cap,
// push them to the ranker and record the run.
//
// A run moves through idle, fetching, persisting and syncing before ending as
// done or partial_failure. Source failures, single write failures and sync
// failures are recorded in the run and never abort it. Only a failure to
// write the run record itself is returned as an error.
package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/readstream/internal/config"
	"github.com/tomtom215/readstream/internal/identity"
	"github.com/tomtom215/readstream/internal/logging"
	"github.com/tomtom215/readstream/internal/metrics"
	"github.com/tomtom215/readstream/internal/models"
	"github.com/tomtom215/readstream/internal/normalize"
	"github.com/tomtom215/readstream/internal/sources"
	"github.com/tomtom215/readstream/internal/storage"
)

// Defaults for Settings.
const (
	DefaultMaxNewItems = 2000
	DefaultConcurrency = 5
)

// ErrRunInProgress is returned when a live run is requested while one is
// already executing. Dry runs are never refused.
var ErrRunInProgress = errors.New("collection run already in progress")

// Catalog selects sources.
type Catalog interface {
	Select(names []string) ([]sources.Source, error)
	Get(name string) (sources.Source, error)
}

// Store is the storage the orchestrator writes to.
type Store interface {
	ContentExists(ctx context.Context, id string) (bool, error)
	PutContent(ctx context.Context, c models.Content) error
	CountContents(ctx context.Context) (int64, error)
	SaveRun(ctx context.Context, run models.RunMetrics) error
}

// Syncer receives newly persisted records.
type Syncer interface {
	SubmitItems(ctx context.Context, items []models.Content) error
}

// Options selects what a run does.
type Options struct {
	// Sources names sources or groups; empty means all.
	Sources []string `json:"sources,omitempty"`
	DryRun  bool     `json:"dryRun"`
}

// Settings bounds a run.
type Settings struct {
	MaxNewItems int
	Concurrency int

	// Now defaults to time.Now.
	Now func() time.Time
}

// SettingsFromConfig maps the collect config section onto Settings.
func SettingsFromConfig(cfg config.CollectConfig) Settings {
	return Settings{MaxNewItems: cfg.MaxNewItems, Concurrency: cfg.Concurrency}
}

// Orchestrator runs collection. It is safe for concurrent use.
type Orchestrator struct {
	catalog  Catalog
	store    Store
	syncer   Syncer
	settings Settings

	liveMu sync.Mutex

	mu        sync.RWMutex
	state     models.RunState
	lastRunID string
}

// New creates an orchestrator. A nil syncer disables the sync step.
func New(catalog Catalog, store Store, syncer Syncer, settings Settings) *Orchestrator {
	if settings.MaxNewItems <= 0 {
		settings.MaxNewItems = DefaultMaxNewItems
	}
	if settings.Concurrency <= 0 {
		settings.Concurrency = DefaultConcurrency
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}
	return &Orchestrator{
		catalog:  catalog,
		store:    store,
		syncer:   syncer,
		settings: settings,
		state:    models.RunIdle,
	}
}

// State returns the state of the current or most recent live run.
func (o *Orchestrator) State() models.RunState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// LastRunID returns the ID of the current or most recent live run.
func (o *Orchestrator) LastRunID() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastRunID
}

// run is the bookkeeping for one CollectAll call.
type run struct {
	o       *Orchestrator
	live    bool
	metrics models.RunMetrics
	log     zerolog.Logger
}

func (r *run) enter(s models.RunState) {
	r.metrics.State = s
	if !r.live {
		return
	}
	r.o.mu.Lock()
	r.o.state = s
	r.o.mu.Unlock()
	r.log.Debug().Str("state", string(s)).Msg("Run state changed")
}

// CollectAll runs every source selected by opts. Unknown source names fail
// with sources.ErrUnknownSource before anything is fetched.
func (o *Orchestrator) CollectAll(ctx context.Context, opts Options) (models.CollectResult, error) {
	selected, err := o.catalog.Select(opts.Sources)
	if err != nil {
		return models.CollectResult{}, err
	}

	live := !opts.DryRun
	if live {
		if !o.liveMu.TryLock() {
			return models.CollectResult{}, ErrRunInProgress
		}
		defer o.liveMu.Unlock()
		metrics.CollectInProgress.Set(1)
		defer metrics.CollectInProgress.Set(0)
	}

	runID := uuid.NewString()
	ctx = logging.ContextWithRunID(logging.ContextWithNewCorrelationID(ctx), runID)
	r := &run{
		o:    o,
		live: live,
		log: logging.Ctx(ctx).With().
			Str("component", "collector").
			Bool("dry_run", opts.DryRun).
			Logger(),
		metrics: models.RunMetrics{
			RunID:          runID,
			DryRun:         opts.DryRun,
			StartedAt:      o.settings.Now(),
			FeedsAttempted: len(selected),
			Errors:         []models.SourceError{},
		},
	}
	if live {
		o.mu.Lock()
		o.lastRunID = runID
		o.mu.Unlock()
	}
	r.log.Info().Int("sources", len(selected)).Msg("Collection run started")

	r.enter(models.RunFetching)
	results := o.fetchAll(ctx, selected)
	items := r.gather(selected, results)

	if opts.DryRun {
		r.finish()
		o.record(r)
		return models.CollectResult{RunMetrics: r.metrics, Items: items}, nil
	}

	r.enter(models.RunPersisting)
	added := o.persist(ctx, r, items)

	r.enter(models.RunSyncing)
	o.submit(ctx, r, added)

	total, err := o.store.CountContents(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("Could not count stored items")
	} else {
		r.metrics.TotalStored = total
		metrics.StoredItems.Set(float64(total))
	}

	r.finish()
	o.record(r)

	if err := o.store.SaveRun(ctx, r.metrics); err != nil {
		r.log.Error().Err(err).Msg("Failed to write run record")
		return models.CollectResult{RunMetrics: r.metrics}, fmt.Errorf("save run record: %w", err)
	}
	return models.CollectResult{RunMetrics: r.metrics}, nil
}

// fetchAll runs every source with at most Concurrency in flight. Results keep
// catalog order.
func (o *Orchestrator) fetchAll(ctx context.Context, selected []sources.Source) []sources.FetchResult {
	results := make([]sources.FetchResult, len(selected))
	sem := make(chan struct{}, o.settings.Concurrency)
	var wg sync.WaitGroup

	for i, src := range selected {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, src sources.Source) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = fetchOne(ctx, src)
		}(i, src)
	}
	wg.Wait()
	return results
}

// fetchOne isolates a single source, including panics.
func fetchOne(ctx context.Context, src sources.Source) (res sources.FetchResult) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			res = sources.FetchResult{Source: src.Name(), Err: fmt.Errorf("source panicked: %v", p)}
		}
		if !res.Success && res.Err == nil {
			res.Err = errors.New("fetch failed")
		}
		metrics.RecordSourceFetch(src.Name(), time.Since(start), len(res.Items), res.Err)
	}()

	res = src.Fetch(ctx)
	if res.Source == "" {
		res.Source = src.Name()
	}
	return res
}

// gather normalizes every successful result into records with IDs, in
// source then item order, and fills the fetch counters.
func (r *run) gather(selected []sources.Source, results []sources.FetchResult) []models.Content {
	now := r.o.settings.Now()
	var items []models.Content

	for i, res := range results {
		if !res.Success {
			r.metrics.Errors = append(r.metrics.Errors, models.SourceError{Source: res.Source, Error: res.ErrorText()})
			r.log.Warn().Err(res.Err).Str("source", res.Source).Msg("Source failed")
			continue
		}
		r.metrics.FeedsSucceeded++

		declared := selected[i].Declared()
		for _, raw := range res.Items {
			c := normalize.Item(raw, declared, now)
			if c.ArticleURL == "" {
				continue
			}
			c.ID = identity.DeriveID(c.ArticleURL)
			c.CreatedAt = now
			items = append(items, c)
		}
		r.log.Debug().Str("source", res.Source).Int("items", len(res.Items)).Msg("Source fetched")
	}

	r.metrics.ItemsFound = len(items)
	return items
}

// persist writes new records in arrival order until the cap is reached.
func (o *Orchestrator) persist(ctx context.Context, r *run, items []models.Content) []models.Content {
	added := make([]models.Content, 0, min(len(items), o.settings.MaxNewItems))

	for i, c := range items {
		if len(added) >= o.settings.MaxNewItems {
			r.metrics.DroppedOverCap = len(items) - i
			metrics.ItemsSkipped.WithLabelValues("cap").Add(float64(r.metrics.DroppedOverCap))
			r.log.Warn().
				Int("cap", o.settings.MaxNewItems).
				Int("dropped", r.metrics.DroppedOverCap).
				Msg("New item cap reached")
			break
		}

		exists, err := o.store.ContentExists(ctx, c.ID)
		if err != nil {
			r.writeError(c, err)
			continue
		}
		if exists {
			r.metrics.SkippedExisting++
			metrics.ItemsSkipped.WithLabelValues("duplicate").Inc()
			continue
		}

		switch err := o.store.PutContent(ctx, c); {
		case err == nil:
			added = append(added, c)
			metrics.ItemsPersisted.Inc()
		case errors.Is(err, storage.ErrAlreadyExists):
			r.metrics.SkippedExisting++
			metrics.ItemsSkipped.WithLabelValues("duplicate").Inc()
		default:
			r.writeError(c, err)
		}
	}

	r.metrics.NewItemsAdded = len(added)
	return added
}

func (r *run) writeError(c models.Content, err error) {
	r.metrics.WriteErrors++
	metrics.ItemsSkipped.WithLabelValues("write_error").Inc()
	r.log.Warn().Err(err).Str("id", c.ID).Str("source", c.Source).Msg("Item write failed, skipping")
}

// submit sends the new records as one batch. Failure is noted, not returned.
func (o *Orchestrator) submit(ctx context.Context, r *run, added []models.Content) {
	if len(added) == 0 || o.syncer == nil {
		return
	}
	if err := o.syncer.SubmitItems(ctx, added); err != nil {
		r.metrics.SyncError = err.Error()
		return
	}
	r.metrics.SyncedCount = len(added)
}

func (r *run) finish() {
	r.metrics.FinishedAt = r.o.settings.Now()
	r.metrics.DurationMS = r.metrics.FinishedAt.Sub(r.metrics.StartedAt).Milliseconds()
	if len(r.metrics.Errors) > 0 || r.metrics.WriteErrors > 0 {
		r.enter(models.RunPartialFailure)
	} else {
		r.enter(models.RunDone)
	}
}

func (o *Orchestrator) record(r *run) {
	outcome := string(r.metrics.State)
	if r.metrics.DryRun {
		outcome = "dry_run"
	}
	metrics.RecordCollectRun(outcome, time.Duration(r.metrics.DurationMS)*time.Millisecond)

	r.log.Info().
		Str("state", string(r.metrics.State)).
		Int("attempted", r.metrics.FeedsAttempted).
		Int("succeeded", r.metrics.FeedsSucceeded).
		Int("found", r.metrics.ItemsFound).
		Int("added", r.metrics.NewItemsAdded).
		Int("skipped", r.metrics.SkippedExisting).
		Int("dropped", r.metrics.DroppedOverCap).
		Int64("duration_ms", r.metrics.DurationMS).
		Msg("Collection run finished")
}
