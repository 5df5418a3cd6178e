// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/readstream/internal/models"
)

// Memory is a process-local Store.
type Memory struct {
	mu       sync.RWMutex
	contents map[string]models.Content
	runs     map[string]models.RunMetrics
	latest   string
	profiles map[string]models.UserProfile
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		contents: make(map[string]models.Content),
		runs:     make(map[string]models.RunMetrics),
		profiles: make(map[string]models.UserProfile),
	}
}

func (m *Memory) ContentExists(_ context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.contents[id]
	return ok, nil
}

func (m *Memory) PutContent(_ context.Context, c models.Content) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.contents[c.ID]; ok {
		return ErrAlreadyExists
	}
	m.contents[c.ID] = c
	return nil
}

func (m *Memory) GetContents(_ context.Context, ids []string) (map[string]models.Content, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]models.Content, len(ids))
	for _, id := range ids {
		if c, ok := m.contents[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (m *Memory) RecentContents(_ context.Context, since time.Time, limit int) ([]models.Content, error) {
	m.mu.RLock()
	out := make([]models.Content, 0, len(m.contents))
	for _, c := range m.contents {
		if !c.PublishedAt.Before(since) {
			out = append(out, c)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return lessRecent(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) CountContents(context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.contents)), nil
}

func (m *Memory) SaveRun(_ context.Context, run models.RunMetrics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.RunID] = run
	m.latest = run.RunID
	return nil
}

func (m *Memory) LatestRun(ctx context.Context) (models.RunMetrics, error) {
	m.mu.RLock()
	id := m.latest
	m.mu.RUnlock()
	if id == "" {
		return models.RunMetrics{}, ErrNotFound
	}
	return m.GetRun(ctx, id)
}

func (m *Memory) GetRun(_ context.Context, runID string) (models.RunMetrics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[runID]
	if !ok {
		return models.RunMetrics{}, ErrNotFound
	}
	return run, nil
}

func (m *Memory) PutProfile(_ context.Context, p models.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.UserID] = p
	return nil
}

func (m *Memory) GetProfile(_ context.Context, userID string) (models.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	if !ok {
		return models.UserProfile{}, ErrNotFound
	}
	return p, nil
}

func (m *Memory) Ping(context.Context) error { return nil }
func (m *Memory) Close() error               { return nil }

var _ Store = (*Memory)(nil)
