// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package recommend

import (
	"math"
	"sort"
	"time"

	"github.com/tomtom215/readstream/internal/models"
)

// Fallback scoring weights.
const (
	ExactWeight      = 10.0
	PartialWeight    = 5.0
	MaxRecencyBoost  = 5.0
	ImportanceBoost  = 3.0
	PoemFactor       = 0.8
	recencyDecayDays = 7.0
)

// Scored is one fallback candidate with its score breakdown.
type Scored struct {
	Content models.Content
	Score   float64
	Exact   int
	Partial int
}

// Score ranks pool against interests and returns at most limit results,
// highest score first. Candidates matching no interest are left out, so an
// empty interest set yields nothing. Ties keep pool order.
func Score(interests []string, pool []models.Content, now time.Time, limit int) []Scored {
	interests = NormalizeInterests(interests)
	if len(interests) == 0 || limit <= 0 {
		return nil
	}

	scored := make([]Scored, 0, len(pool))
	for _, c := range pool {
		exact, partial := matchCounts(c.Tags, interests)
		if exact == 0 && partial == 0 {
			continue
		}
		scored = append(scored, Scored{
			Content: c,
			Score:   scoreOf(c, exact, partial, now),
			Exact:   exact,
			Partial: partial,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

func scoreOf(c models.Content, exact, partial int, now time.Time) float64 {
	days := now.Sub(c.PublishedAt).Hours() / 24
	if days < 0 {
		days = 0
	}
	recency := math.Max(0, MaxRecencyBoost-days/recencyDecayDays)

	importance := 0.0
	if c.Important {
		importance = ImportanceBoost
	}

	factor := 1.0
	if c.ContentType == models.ContentPoem {
		factor = PoemFactor
	}

	return (float64(exact)*ExactWeight + float64(partial)*PartialWeight + recency + importance) * factor
}
