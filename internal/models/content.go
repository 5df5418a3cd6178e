// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

/*
Package models defines the data structures shared across Readstream.

Key types:

  - Content: the canonical normalized, stored representation of one collected item
  - RunMetrics: the observational record written at the end of every collection run
  - UserProfile: a reader's interest set, owned by the profile collaborator
  - RecommendationResult: an ordered, source-tagged list of recommended content
  - FeedbackEvent: a user interaction forwarded to the ranker
  - APIResponse: the JSON envelope used by every HTTP endpoint
*/
package models

import (
	"fmt"
	"time"
)

// License governs how much text may be retained for a content record.
type License string

const (
	LicensePublicDomain License = "public-domain"
	LicenseRSS          License = "rss"
	LicenseRestricted   License = "restricted"
	LicenseAPI          License = "api"
)

// ParseLicense validates a license label.
func ParseLicense(s string) (License, error) {
	switch l := License(s); l {
	case LicensePublicDomain, LicenseRSS, LicenseRestricted, LicenseAPI:
		return l, nil
	default:
		return "", fmt.Errorf("unknown license %q", s)
	}
}

// AllowsFullText reports whether the full body may be stored.
func (l License) AllowsFullText() bool {
	return l == LicensePublicDomain
}

// ContentType distinguishes prose from verse for ranking.
type ContentType string

const (
	ContentArticle ContentType = "article"
	ContentPoem    ContentType = "poem"
)

// ParseContentType defaults empty input to article.
func ParseContentType(s string) (ContentType, error) {
	switch s {
	case "", string(ContentArticle):
		return ContentArticle, nil
	case string(ContentPoem):
		return ContentPoem, nil
	default:
		return "", fmt.Errorf("unknown content type %q", s)
	}
}

// Content is the canonical stored unit. It is created once per ID and never
// mutated afterward by the collection pipeline.
type Content struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Excerpt     string      `json:"excerpt"`
	FullText    string      `json:"fullText,omitempty"`
	Tags        []string    `json:"tags"`
	PublishedAt time.Time   `json:"publishedAt"`
	SourceURL   string      `json:"sourceUrl"`
	ArticleURL  string      `json:"articleUrl"`
	Source      string      `json:"source"`
	License     License     `json:"license"`
	ContentType ContentType `json:"contentType"`
	Important   bool        `json:"important"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// RawItem is what a source emits before normalization.
type RawItem struct {
	Title       string
	Link        string
	Description string
	Published   string
	PublishedAt *time.Time
	Categories  []string
}
