// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package collector

import (
	"context"
	"time"

	"github.com/tomtom215/readstream/internal/identity"
	"github.com/tomtom215/readstream/internal/logging"
	"github.com/tomtom215/readstream/internal/models"
	"github.com/tomtom215/readstream/internal/normalize"
	"github.com/tomtom215/readstream/internal/sources"
)

// SourceTest is the outcome of fetching one source without persisting.
type SourceTest struct {
	Source     sources.Info     `json:"source"`
	Success    bool             `json:"success"`
	Error      string           `json:"error,omitempty"`
	ItemsFound int              `json:"itemsFound"`
	DurationMS int64            `json:"durationMs"`
	Items      []models.Content `json:"items"`
}

// TestSource fetches and normalizes a single source by name. Nothing is
// stored or synced, and it may run alongside a live collection.
func (o *Orchestrator) TestSource(ctx context.Context, name string) (SourceTest, error) {
	src, err := o.catalog.Get(name)
	if err != nil {
		return SourceTest{}, err
	}

	start := time.Now()
	res := fetchOne(ctx, src)
	out := SourceTest{
		Source:     src.Info(),
		Success:    res.Success,
		Error:      res.ErrorText(),
		DurationMS: time.Since(start).Milliseconds(),
		Items:      []models.Content{},
	}

	if res.Success {
		now := o.settings.Now()
		declared := src.Declared()
		for _, raw := range res.Items {
			c := normalize.Item(raw, declared, now)
			if c.ArticleURL == "" {
				continue
			}
			c.ID = identity.DeriveID(c.ArticleURL)
			out.Items = append(out.Items, c)
		}
	}
	out.ItemsFound = len(out.Items)

	logging.Ctx(ctx).Info().
		Str("source", name).
		Bool("success", out.Success).
		Int("items", out.ItemsFound).
		Msg("Source tested")
	return out, nil
}
