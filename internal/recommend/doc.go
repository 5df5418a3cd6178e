// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

// Package recommend resolves personalized reading lists.
//
// # Resolution
//
// Resolver.Resolve(userID, count) runs these steps:
//
//  1. Return a cached result for (userID, count) if one is younger than the
//     cache TTL, marked Cached.
//  2. Reject with a RateLimitedError if the user asked within the throttle
//     window.
//  3. Ask the ranker for 2*count candidates. On error or an empty answer the
//     whole result comes from the fallback scorer, tagged "fallback".
//  4. Resolve candidate IDs to stored content and keep those relevant to the
//     user's interests (see Relevant). With no interests, all pass.
//  5. If fewer than count survive and the user has interests, top up from
//     the fallback scorer.
//  6. Truncate, cache and return, tagged "ranker". Backfilled counts the
//     entries that came from the fallback scorer.
//
// Invalidate(userID) drops every cached count for the user and resets their
// throttle so the next request goes straight through.
//
// # Fallback scoring
//
// Score is a pure function over a pool of recent content:
//
//	score = (exact*10 + partial*5 + max(0, 5 - days/7) + 3*important) * typeFactor
//
// where typeFactor is 1.0 for articles and 0.8 for poems. Content with no
// exact or partial match is never returned.
package recommend
