// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

// Package ranker is the outbound client for the external recommendation
// service. The wire shapes follow the Gorse REST API.
package ranker

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/readstream/internal/models"
)

// ErrDisabled is returned by every call when no ranker URL is configured.
var ErrDisabled = errors.New("ranker not configured")

// Ranker is the contract this service depends on.
type Ranker interface {
	InsertItems(ctx context.Context, items []Item) error
	InsertUsers(ctx context.Context, users []User) error
	InsertFeedback(ctx context.Context, feedback []Feedback) error
	// Recommend returns up to n candidates for userID, best first.
	Recommend(ctx context.Context, userID string, n int) ([]Candidate, error)
}

// Item is the ranker's item shape.
type Item struct {
	ItemID     string   `json:"ItemId"`
	IsHidden   bool     `json:"IsHidden"`
	Categories []string `json:"Categories"`
	Timestamp  string   `json:"Timestamp"`
	Labels     []string `json:"Labels"`
	Comment    string   `json:"Comment"`
}

// User is the ranker's user shape.
type User struct {
	UserID  string   `json:"UserId"`
	Labels  []string `json:"Labels"`
	Comment string   `json:"Comment"`
}

// Feedback is the ranker's feedback shape.
type Feedback struct {
	FeedbackType string `json:"FeedbackType"`
	UserID       string `json:"UserId"`
	ItemID       string `json:"ItemId"`
	Timestamp    string `json:"Timestamp"`
}

// Candidate is one ranked item ID.
type Candidate struct {
	ID    string  `json:"Id"`
	Score float64 `json:"Score"`
}

// Importance labels attached to items.
const (
	LabelImportant = "importance:high"
	LabelNormal    = "importance:normal"
)

// ItemFromContent translates a content record.
func ItemFromContent(c models.Content) Item {
	importance := LabelNormal
	if c.Important {
		importance = LabelImportant
	}
	cats := c.Tags
	if cats == nil {
		cats = []string{}
	}
	return Item{
		ItemID:     c.ID,
		Categories: cats,
		Timestamp:  c.PublishedAt.UTC().Format(time.RFC3339),
		Labels:     []string{importance, "type:" + string(c.ContentType)},
		Comment:    c.Title,
	}
}

// UserFromProfile translates an interest profile.
func UserFromProfile(p models.UserProfile) User {
	labels := p.Interests
	if labels == nil {
		labels = []string{}
	}
	return User{UserID: p.UserID, Labels: labels, Comment: p.Label}
}

// FeedbackFromEvent translates a feedback event. A zero timestamp becomes now.
func FeedbackFromEvent(e models.FeedbackEvent, now time.Time) Feedback {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = now
	}
	return Feedback{
		FeedbackType: string(e.Type),
		UserID:       e.UserID,
		ItemID:       e.ItemID,
		Timestamp:    ts.UTC().Format(time.RFC3339),
	}
}

// Disabled is the Ranker used when none is configured.
type Disabled struct{}

func (Disabled) InsertItems(context.Context, []Item) error        { return ErrDisabled }
func (Disabled) InsertUsers(context.Context, []User) error        { return ErrDisabled }
func (Disabled) InsertFeedback(context.Context, []Feedback) error { return ErrDisabled }
func (Disabled) Recommend(context.Context, string, int) ([]Candidate, error) {
	return nil, ErrDisabled
}
