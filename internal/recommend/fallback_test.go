// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package recommend

import (
	"math"
	"testing"
	"time"

	"github.com/tomtom215/readstream/internal/models"
)

var scoreNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func daysAgo(d int) time.Time {
	return scoreNow.AddDate(0, 0, -d)
}

func article(id string, published time.Time, tags ...string) models.Content {
	return models.Content{ID: id, Tags: tags, PublishedAt: published, ContentType: models.ContentArticle}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScore_ExactToday_BeatsPartialMonthOld(t *testing.T) {
	t.Parallel()

	pool := []models.Content{
		article("partial-old", daysAgo(30), "tech-news"),
		article("exact-new", daysAgo(0), "technology", "design"),
	}
	got := Score([]string{"technology", "design"}, pool, scoreNow, 10)

	if len(got) != 2 {
		t.Fatalf("Score() returned %d results, want 2", len(got))
	}
	if got[0].Content.ID != "exact-new" || !(got[0].Score > got[1].Score) {
		t.Errorf("order = %s(%.2f), %s(%.2f); want exact-new strictly first",
			got[0].Content.ID, got[0].Score, got[1].Content.ID, got[1].Score)
	}
	if !approx(got[0].Score, 25) {
		t.Errorf("exact-new score = %v, want 25 (2*10 + 5)", got[0].Score)
	}
	if want := 5 + (5 - 30.0/7); !approx(got[1].Score, want) {
		t.Errorf("partial-old score = %v, want %v", got[1].Score, want)
	}
}

func TestScore_Components(t *testing.T) {
	t.Parallel()

	important := article("imp", daysAgo(70), "poetry")
	important.Important = true
	poem := article("poem", daysAgo(70), "poetry")
	poem.ContentType = models.ContentPoem
	future := article("future", scoreNow.Add(48*time.Hour), "poetry")

	tests := []struct {
		name string
		c    models.Content
		want float64
	}{
		{"recency fully decayed", article("old", daysAgo(70), "poetry"), 10},
		{"importance boost", important, 13},
		{"poem factor", poem, 8},
		{"future date gets full recency", future, 15},
		{"half decayed", article("mid", daysAgo(14), "poetry"), 13},
	}
	for _, tt := range tests {
		got := Score([]string{"poetry"}, []models.Content{tt.c}, scoreNow, 1)
		if len(got) != 1 {
			t.Errorf("%s: no result", tt.name)
			continue
		}
		if !approx(got[0].Score, tt.want) {
			t.Errorf("%s: score = %v, want %v", tt.name, got[0].Score, tt.want)
		}
	}
}

func TestScore_ExcludesUnmatched(t *testing.T) {
	t.Parallel()

	pool := []models.Content{
		article("a", daysAgo(1), "poetry"),
		article("b", daysAgo(1), "gardening"),
		article("c", daysAgo(1)),
	}
	got := Score([]string{"poetry"}, pool, scoreNow, 10)
	if len(got) != 1 || got[0].Content.ID != "a" {
		t.Errorf("Score() = %v, want only a", got)
	}
	if got := Score(nil, pool, scoreNow, 10); len(got) != 0 {
		t.Errorf("Score() with no interests = %d results, want 0", len(got))
	}
}

func TestScore_StableTiesAndLimit(t *testing.T) {
	t.Parallel()

	published := daysAgo(3)
	pool := []models.Content{
		article("first", published, "design"),
		article("second", published, "design"),
		article("third", published, "design"),
		article("best", published, "design", "technology"),
	}
	got := Score([]string{"design", "technology"}, pool, scoreNow, 3)
	ids := make([]string, len(got))
	for i, s := range got {
		ids[i] = s.Content.ID
	}
	want := []string{"best", "first", "second"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids = %v, want %v", ids, want)
			break
		}
	}
}

func TestScore_ExactTagAlsoCountsPartialPairs(t *testing.T) {
	t.Parallel()

	pool := []models.Content{article("tech", daysAgo(70), "technology")}
	got := Score([]string{"technology", "tech"}, pool, scoreNow, 1)
	if len(got) != 1 {
		t.Fatalf("Score() returned %d results, want 1", len(got))
	}
	if got[0].Exact != 1 || got[0].Partial != 1 {
		t.Errorf("exact=%d partial=%d, want 1 and 1", got[0].Exact, got[0].Partial)
	}
	if !approx(got[0].Score, 15) {
		t.Errorf("score = %v, want 15 (10 + 5)", got[0].Score)
	}
}
