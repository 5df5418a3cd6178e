// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package models

import "time"

// RunState is the collection orchestrator's lifecycle position.
type RunState string

const (
	RunIdle           RunState = "idle"
	RunFetching       RunState = "fetching"
	RunPersisting     RunState = "persisting"
	RunSyncing        RunState = "syncing"
	RunDone           RunState = "done"
	RunPartialFailure RunState = "partial_failure"
)

// Terminal reports whether s ends a run.
func (s RunState) Terminal() bool {
	return s == RunDone || s == RunPartialFailure
}

// SourceError pairs a failing source with its error text.
type SourceError struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// RunMetrics is written once at the end of every collection run.
type RunMetrics struct {
	RunID           string        `json:"runId"`
	DryRun          bool          `json:"dryRun"`
	State           RunState      `json:"state"`
	StartedAt       time.Time     `json:"startedAt"`
	FinishedAt      time.Time     `json:"finishedAt"`
	DurationMS      int64         `json:"durationMs"`
	FeedsAttempted  int           `json:"feedsAttempted"`
	FeedsSucceeded  int           `json:"feedsSucceeded"`
	ItemsFound      int           `json:"itemsFound"`
	NewItemsAdded   int           `json:"newItemsAdded"`
	SkippedExisting int           `json:"skippedExisting"`
	DroppedOverCap  int           `json:"droppedOverCap"`
	WriteErrors     int           `json:"writeErrors"`
	TotalStored     int64         `json:"totalStored"`
	SyncedCount     int           `json:"syncedCount"`
	SyncError       string        `json:"syncError,omitempty"`
	Errors          []SourceError `json:"errors"`
}

// CollectResult is returned by a collection run. Items is populated only for dry runs.
type CollectResult struct {
	RunMetrics
	Items []Content `json:"items,omitempty"`
}
