// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

/*
Package storage persists content records, run records and user profiles.

Three drivers implement Store:

  - badger (default): embedded key-value store with a publish-time index
  - postgres: pgxpool with squirrel-built queries
  - memory: maps behind a mutex, for tests and previews

Content writes are insert-only. PutContent on an existing ID returns
ErrAlreadyExists and leaves the stored record untouched.
*/
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/readstream/internal/config"
	"github.com/tomtom215/readstream/internal/models"
)

var (
	// ErrNotFound is returned for a missing run or profile.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when a content ID is already stored.
	ErrAlreadyExists = errors.New("content already exists")
)

// ContentStore holds content records.
type ContentStore interface {
	ContentExists(ctx context.Context, id string) (bool, error)
	PutContent(ctx context.Context, c models.Content) error
	// GetContents returns the records found among ids. Missing IDs are omitted.
	GetContents(ctx context.Context, ids []string) (map[string]models.Content, error)
	// RecentContents returns records published at or after since, newest
	// first, at most limit of them.
	RecentContents(ctx context.Context, since time.Time, limit int) ([]models.Content, error)
	CountContents(ctx context.Context) (int64, error)
}

// RunStore holds collection run records.
type RunStore interface {
	// SaveRun overwrites the latest slot and records the run under its ID.
	SaveRun(ctx context.Context, run models.RunMetrics) error
	LatestRun(ctx context.Context) (models.RunMetrics, error)
	GetRun(ctx context.Context, runID string) (models.RunMetrics, error)
}

// ProfileStore holds user interest profiles.
type ProfileStore interface {
	PutProfile(ctx context.Context, p models.UserProfile) error
	GetProfile(ctx context.Context, userID string) (models.UserProfile, error)
}

// Store is the full persistence surface.
type Store interface {
	ContentStore
	RunStore
	ProfileStore
	Ping(ctx context.Context) error
	Close() error
}

// Open creates the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "", "badger":
		return OpenBadger(cfg.Path)
	case "postgres":
		return OpenPostgres(ctx, cfg.PostgresDSN, cfg.MaxConns)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// lessRecent orders newest first with ID as tie-break.
func lessRecent(a, b models.Content) bool {
	if !a.PublishedAt.Equal(b.PublishedAt) {
		return a.PublishedAt.After(b.PublishedAt)
	}
	return a.ID < b.ID
}
