// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package recommend

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/readstream/internal/cache"
	"github.com/tomtom215/readstream/internal/config"
	"github.com/tomtom215/readstream/internal/logging"
	"github.com/tomtom215/readstream/internal/metrics"
	"github.com/tomtom215/readstream/internal/models"
	"github.com/tomtom215/readstream/internal/ranker"
	"github.com/tomtom215/readstream/internal/storage"
)

// ErrRateLimited is returned when a user asks again inside the throttle window.
var ErrRateLimited = errors.New("recommendation requests too frequent")

// ErrInvalidCount is returned for a non-positive count.
var ErrInvalidCount = errors.New("count must be positive")

// RateLimitedError carries how long the caller should wait.
type RateLimitedError struct {
	UserID     string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s for user %q, retry after %v", ErrRateLimited, e.UserID, e.RetryAfter)
}

// Is matches ErrRateLimited.
func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// Retryable is always true.
func (e *RateLimitedError) Retryable() bool { return true }

// ContentLookup is the part of the content store the resolver reads.
type ContentLookup interface {
	GetContents(ctx context.Context, ids []string) (map[string]models.Content, error)
	RecentContents(ctx context.Context, since time.Time, limit int) ([]models.Content, error)
}

// ProfileLookup loads user interest profiles.
type ProfileLookup interface {
	GetProfile(ctx context.Context, userID string) (models.UserProfile, error)
}

// Options tunes a Resolver.
type Options struct {
	CacheTTL     time.Duration
	UserThrottle time.Duration
	LookbackDays int
	PoolSize     int

	// Now defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns a five minute cache, a one second per-user throttle
// and a 120 day, 500 item fallback pool.
func DefaultOptions() Options {
	return Options{
		CacheTTL:     5 * time.Minute,
		UserThrottle: time.Second,
		LookbackDays: 120,
		PoolSize:     500,
		Now:          time.Now,
	}
}

// OptionsFromConfig maps the recommend config section onto Options.
func OptionsFromConfig(cfg config.RecommendConfig) Options {
	o := DefaultOptions()
	if cfg.CacheTTL > 0 {
		o.CacheTTL = cfg.CacheTTL
	}
	if cfg.UserThrottle > 0 {
		o.UserThrottle = cfg.UserThrottle
	}
	if cfg.FallbackLookbackDays > 0 {
		o.LookbackDays = cfg.FallbackLookbackDays
	}
	if cfg.FallbackPoolSize > 0 {
		o.PoolSize = cfg.FallbackPoolSize
	}
	return o
}

// Resolver answers recommendation requests from the ranker, falling back to
// local scoring. It owns its result cache and per-user throttle.
type Resolver struct {
	ranker   ranker.Ranker
	contents ContentLookup
	profiles ProfileLookup
	opts     Options

	results  *cache.Cache[models.RecommendationResult]
	throttle *cache.Cache[struct{}]
}

// NewResolver wires a resolver. A nil ranker behaves as a disabled one.
func NewResolver(r ranker.Ranker, contents ContentLookup, profiles ProfileLookup, opts Options) *Resolver {
	if r == nil {
		r = ranker.Disabled{}
	}
	def := DefaultOptions()
	if opts.Now == nil {
		opts.Now = def.Now
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = def.CacheTTL
	}
	if opts.UserThrottle <= 0 {
		opts.UserThrottle = def.UserThrottle
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = def.LookbackDays
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = def.PoolSize
	}
	return &Resolver{
		ranker:   r,
		contents: contents,
		profiles: profiles,
		opts:     opts,
		results:  cache.New[models.RecommendationResult](opts.CacheTTL, cache.WithClock(opts.Now)),
		throttle: cache.New[struct{}](opts.UserThrottle, cache.WithClock(opts.Now), cache.WithCleanupInterval(time.Minute)),
	}
}

// CacheStats summarizes the result cache for the health endpoint.
type CacheStats struct {
	Entries   int     `json:"entries"`
	HitRate   float64 `json:"hitRatePercent"`
	Evictions int64   `json:"evictions"`
}

// CacheStats reports the result cache's size and hit rate.
func (r *Resolver) CacheStats() CacheStats {
	return CacheStats{
		Entries:   r.results.Len(),
		HitRate:   r.results.HitRate(),
		Evictions: r.results.GetStats().Evictions,
	}
}

// Close stops the cache sweepers.
func (r *Resolver) Close() {
	r.results.Close()
	r.throttle.Close()
}

func resultKey(userID string, count int) string {
	return userPrefix(userID) + strconv.Itoa(count)
}

func userPrefix(userID string) string {
	return "rec:" + strconv.Quote(userID) + ":"
}

// Resolve returns up to count recommendations for userID. Ranker and storage
// failures degrade to the fallback scorer and are never returned; the only
// errors are ErrInvalidCount and a RateLimitedError.
func (r *Resolver) Resolve(ctx context.Context, userID string, count int) (models.RecommendationResult, error) {
	if count <= 0 {
		return models.RecommendationResult{}, ErrInvalidCount
	}

	key := resultKey(userID, count)
	if cached, ok := r.results.Get(key); ok {
		metrics.RecommendCache.WithLabelValues("hit").Inc()
		return copyResult(cached, true), nil
	}
	metrics.RecommendCache.WithLabelValues("miss").Inc()

	if !r.throttle.SetIfAbsent(userID, struct{}{}) {
		wait, _ := r.throttle.Remaining(userID)
		metrics.RecommendThrottled.Inc()
		return models.RecommendationResult{}, &RateLimitedError{UserID: userID, RetryAfter: wait}
	}

	start := r.opts.Now()
	defer func() { metrics.RecommendDuration.Observe(r.opts.Now().Sub(start).Seconds()) }()

	log := r.requestLogger(ctx, userID, count)
	interests := r.interests(ctx, userID, log)

	candidates, err := r.ranker.Recommend(ctx, userID, 2*count)
	if err != nil || len(candidates) == 0 {
		if err != nil && !errors.Is(err, ranker.ErrDisabled) {
			log.Warn().Err(err).Msg("Ranker unavailable, using fallback")
		}
		return r.fallbackResult(ctx, userID, interests, count, log), nil
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	found, err := r.contents.GetContents(ctx, ids)
	if err != nil {
		log.Warn().Err(err).Msg("Candidate lookup failed, using fallback")
		return r.fallbackResult(ctx, userID, interests, count, log), nil
	}

	items := make([]models.Recommendation, 0, count)
	seen := make(map[string]struct{}, len(candidates))
	for _, cand := range candidates {
		c, ok := found[cand.ID]
		if !ok {
			continue
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		if !Relevant(c.Tags, interests) {
			continue
		}
		seen[c.ID] = struct{}{}
		items = append(items, toRecommendation(c, cand.Score))
	}

	backfilled := 0
	if len(items) < count && len(interests) > 0 {
		extra := r.fallback(ctx, interests, count-len(items), seen, log)
		for _, s := range extra {
			items = append(items, toRecommendation(s.Content, s.Score))
		}
		backfilled = len(extra)
		metrics.RecommendBackfilled.Add(float64(backfilled))
	}
	if len(items) > count {
		items = items[:count]
	}

	result := models.RecommendationResult{
		UserID:      userID,
		Items:       items,
		Source:      models.SourceRanker,
		Backfilled:  backfilled,
		GeneratedAt: r.opts.Now(),
	}
	r.results.Set(key, result)
	metrics.RecommendRequests.WithLabelValues(string(models.SourceRanker)).Inc()

	log.Debug().
		Int("candidates", len(candidates)).
		Int("returned", len(items)).
		Int("backfilled", backfilled).
		Msg("Recommendation resolved")
	return copyResult(result, false), nil
}

// Invalidate drops every cached result for userID and resets their throttle.
func (r *Resolver) Invalidate(userID string) int {
	n := r.results.DeletePrefix(userPrefix(userID))
	r.throttle.Delete(userID)
	return n
}

func (r *Resolver) requestLogger(ctx context.Context, userID string, count int) zerolog.Logger {
	return logging.Ctx(ctx).With().
		Str("component", "recommend").
		Str("user_id", logging.SanitizeValue(userID)).
		Int("count", count).
		Logger()
}

func (r *Resolver) interests(ctx context.Context, userID string, log zerolog.Logger) []string {
	if r.profiles == nil {
		return nil
	}
	p, err := r.profiles.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Warn().Err(err).Msg("Profile lookup failed, treating as no interests")
		}
		return nil
	}
	return NormalizeInterests(p.Interests)
}

func (r *Resolver) fallbackResult(ctx context.Context, userID string, interests []string, count int, log zerolog.Logger) models.RecommendationResult {
	scored := r.fallback(ctx, interests, count, nil, log)
	items := make([]models.Recommendation, len(scored))
	for i, s := range scored {
		items[i] = toRecommendation(s.Content, s.Score)
	}
	metrics.RecommendRequests.WithLabelValues(string(models.SourceFallback)).Inc()
	return models.RecommendationResult{
		UserID:      userID,
		Items:       items,
		Source:      models.SourceFallback,
		GeneratedAt: r.opts.Now(),
	}
}

// fallback scores the recent pool, leaving out IDs in exclude.
func (r *Resolver) fallback(ctx context.Context, interests []string, limit int, exclude map[string]struct{}, log zerolog.Logger) []Scored {
	if len(interests) == 0 || limit <= 0 || r.contents == nil {
		return nil
	}
	now := r.opts.Now()
	since := now.AddDate(0, 0, -r.opts.LookbackDays)
	pool, err := r.contents.RecentContents(ctx, since, r.opts.PoolSize)
	if err != nil {
		log.Warn().Err(err).Msg("Fallback pool query failed")
		return nil
	}
	if len(exclude) > 0 {
		kept := pool[:0:0]
		for _, c := range pool {
			if _, skip := exclude[c.ID]; !skip {
				kept = append(kept, c)
			}
		}
		pool = kept
	}
	return Score(interests, pool, now, limit)
}

func toRecommendation(c models.Content, score float64) models.Recommendation {
	return models.Recommendation{
		ContentID:   c.ID,
		Score:       score,
		Title:       c.Title,
		Excerpt:     c.Excerpt,
		Tags:        c.Tags,
		PublishedAt: c.PublishedAt,
		URL:         c.ArticleURL,
	}
}

func copyResult(r models.RecommendationResult, cached bool) models.RecommendationResult {
	out := r
	out.Items = make([]models.Recommendation, len(r.Items))
	copy(out.Items, r.Items)
	out.Cached = cached
	return out
}
