// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/readstream/internal/models"
)

var suiteNow = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func sampleContent(id string, age time.Duration) models.Content {
	return models.Content{
		ID:          id,
		Title:       "Title " + id,
		Excerpt:     "Excerpt " + id,
		FullText:    "Excerpt " + id,
		Tags:        []string{"technology", "design"},
		PublishedAt: suiteNow.Add(-age),
		SourceURL:   "https://example.com/feed",
		ArticleURL:  "https://example.com/" + id,
		Source:      "test",
		License:     models.LicenseRSS,
		ContentType: models.ContentArticle,
		CreatedAt:   suiteNow,
	}
}

// runStoreSuite exercises the Store contract against any driver.
func runStoreSuite(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("content insert only", func(t *testing.T) {
		c := sampleContent("c1", time.Hour)
		if err := s.PutContent(ctx, c); err != nil {
			t.Fatalf("PutContent() error = %v", err)
		}
		ok, err := s.ContentExists(ctx, "c1")
		if err != nil || !ok {
			t.Fatalf("ContentExists(c1) = %v, %v", ok, err)
		}

		changed := c
		changed.Title = "overwritten"
		if err := s.PutContent(ctx, changed); !errors.Is(err, ErrAlreadyExists) {
			t.Errorf("second PutContent() error = %v, want ErrAlreadyExists", err)
		}
		got, err := s.GetContents(ctx, []string{"c1"})
		if err != nil {
			t.Fatalf("GetContents() error = %v", err)
		}
		if got["c1"].Title != c.Title {
			t.Errorf("stored title = %q, want first writer's %q", got["c1"].Title, c.Title)
		}

		ok, err = s.ContentExists(ctx, "missing")
		if err != nil || ok {
			t.Errorf("ContentExists(missing) = %v, %v", ok, err)
		}
	})

	t.Run("batch get omits missing", func(t *testing.T) {
		if err := s.PutContent(ctx, sampleContent("c2", 2*time.Hour)); err != nil {
			t.Fatalf("PutContent() error = %v", err)
		}
		got, err := s.GetContents(ctx, []string{"c1", "nope", "c2"})
		if err != nil {
			t.Fatalf("GetContents() error = %v", err)
		}
		if len(got) != 2 {
			t.Errorf("GetContents() returned %d records, want 2", len(got))
		}
		c2 := got["c2"]
		if len(c2.Tags) != 2 || c2.License != models.LicenseRSS || !c2.PublishedAt.Equal(suiteNow.Add(-2*time.Hour)) {
			t.Errorf("round-tripped record = %+v", c2)
		}
	})

	t.Run("recent ordering and bounds", func(t *testing.T) {
		for id, age := range map[string]time.Duration{
			"old":   200 * 24 * time.Hour,
			"mid":   10 * 24 * time.Hour,
			"fresh": time.Minute,
		} {
			if err := s.PutContent(ctx, sampleContent(id, age)); err != nil {
				t.Fatalf("PutContent(%s) error = %v", id, err)
			}
		}

		since := suiteNow.Add(-120 * 24 * time.Hour)
		got, err := s.RecentContents(ctx, since, 0)
		if err != nil {
			t.Fatalf("RecentContents() error = %v", err)
		}
		want := []string{"fresh", "c1", "c2", "mid"}
		if len(got) != len(want) {
			t.Fatalf("RecentContents() = %d records, want %d", len(got), len(want))
		}
		for i, id := range want {
			if got[i].ID != id {
				t.Errorf("RecentContents()[%d] = %s, want %s", i, got[i].ID, id)
			}
		}

		limited, err := s.RecentContents(ctx, since, 2)
		if err != nil {
			t.Fatalf("RecentContents(limit) error = %v", err)
		}
		if len(limited) != 2 || limited[0].ID != "fresh" {
			t.Errorf("RecentContents(limit 2) = %v", limited)
		}

		n, err := s.CountContents(ctx)
		if err != nil || n != 5 {
			t.Errorf("CountContents() = %d, %v; want 5", n, err)
		}
	})

	t.Run("runs", func(t *testing.T) {
		if _, err := s.GetRun(ctx, "nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetRun(nope) error = %v, want ErrNotFound", err)
		}

		first := models.RunMetrics{RunID: "r1", State: models.RunDone, FinishedAt: suiteNow, NewItemsAdded: 3}
		second := models.RunMetrics{RunID: "r2", State: models.RunPartialFailure, FinishedAt: suiteNow.Add(time.Minute),
			Errors: []models.SourceError{{Source: "broken", Error: "boom"}}}
		for _, r := range []models.RunMetrics{first, second} {
			if err := s.SaveRun(ctx, r); err != nil {
				t.Fatalf("SaveRun(%s) error = %v", r.RunID, err)
			}
		}

		latest, err := s.LatestRun(ctx)
		if err != nil {
			t.Fatalf("LatestRun() error = %v", err)
		}
		if latest.RunID != "r2" || len(latest.Errors) != 1 || latest.Errors[0].Source != "broken" {
			t.Errorf("LatestRun() = %+v", latest)
		}
		r1, err := s.GetRun(ctx, "r1")
		if err != nil || r1.NewItemsAdded != 3 {
			t.Errorf("GetRun(r1) = %+v, %v", r1, err)
		}
	})

	t.Run("profiles", func(t *testing.T) {
		if _, err := s.GetProfile(ctx, "u1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetProfile(missing) error = %v, want ErrNotFound", err)
		}
		p := models.UserProfile{UserID: "u1", Interests: []string{"poetry"}, Label: "Reader", UpdatedAt: suiteNow}
		if err := s.PutProfile(ctx, p); err != nil {
			t.Fatalf("PutProfile() error = %v", err)
		}
		p.Interests = []string{"technology", "design"}
		if err := s.PutProfile(ctx, p); err != nil {
			t.Fatalf("PutProfile(update) error = %v", err)
		}
		got, err := s.GetProfile(ctx, "u1")
		if err != nil {
			t.Fatalf("GetProfile() error = %v", err)
		}
		if len(got.Interests) != 2 || got.Interests[0] != "technology" || got.Label != "Reader" {
			t.Errorf("GetProfile() = %+v", got)
		}
	})

	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
