// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

// Package services adapts readstream's long-running components to
// suture.Service.
//
//   - HTTPServerService: the chi router behind an *http.Server
//   - CollectScheduler: periodic live collection runs
//   - FeedbackRelayService: the watermill feedback relay
//
// Each service returns ctx.Err() on cancellation so suture can tell a
// shutdown from a crash.
package services
