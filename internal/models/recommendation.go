// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package models

import (
	"fmt"
	"time"
)

// UserProfile is a reader's stated interests. Interests are lowercase labels.
type UserProfile struct {
	UserID    string    `json:"userId"`
	Interests []string  `json:"interests"`
	Label     string    `json:"label"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RecommendationSource tags which path produced a result.
type RecommendationSource string

const (
	SourceRanker   RecommendationSource = "ranker"
	SourceFallback RecommendationSource = "fallback"
)

// Recommendation is one entry of a RecommendationResult.
type Recommendation struct {
	ContentID   string    `json:"contentId"`
	Score       float64   `json:"score"`
	Title       string    `json:"title"`
	Excerpt     string    `json:"excerpt"`
	Tags        []string  `json:"tags"`
	PublishedAt time.Time `json:"publishedAt"`
	URL         string    `json:"url"`
}

// RecommendationResult is the resolver's answer for (userId, count).
//
// Source is a coarse label: a ranker result topped up by the fallback scorer
// is still tagged ranker. Backfilled counts the fallback-supplied entries.
type RecommendationResult struct {
	UserID      string               `json:"userId"`
	Items       []Recommendation     `json:"items"`
	Source      RecommendationSource `json:"source"`
	Cached      bool                 `json:"cached"`
	Backfilled  int                  `json:"backfilled"`
	GeneratedAt time.Time            `json:"generatedAt"`
}

// FeedbackType enumerates interactions forwarded to the ranker.
type FeedbackType string

const (
	FeedbackRead  FeedbackType = "read"
	FeedbackLike  FeedbackType = "like"
	FeedbackShare FeedbackType = "share"
)

// ParseFeedbackType validates a feedback type label.
func ParseFeedbackType(s string) (FeedbackType, error) {
	switch t := FeedbackType(s); t {
	case FeedbackRead, FeedbackLike, FeedbackShare:
		return t, nil
	default:
		return "", fmt.Errorf("unknown feedback type %q", s)
	}
}

// FeedbackEvent is one user interaction with one content record.
type FeedbackEvent struct {
	Type      FeedbackType `json:"type"`
	UserID    string       `json:"userId"`
	ItemID    string       `json:"itemId"`
	Timestamp time.Time    `json:"timestamp"`
}
