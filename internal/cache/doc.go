// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

/*
Package cache provides a thread-safe in-memory cache with TTL expiry.

Entries expire lazily on read and are also swept periodically in the
background. Keys are plain strings; callers that need group invalidation
choose a common prefix and use DeletePrefix:

	c := cache.New[models.RecommendationResult](5 * time.Minute)
	defer c.Close()

	c.Set("rec:alice:10", result)
	c.Set("rec:alice:20", result)
	c.DeletePrefix("rec:alice:") // both gone

SetIfAbsent gives a cheap per-key cooldown: with a one-second TTL, the first
caller in any second wins and the rest are told to wait Remaining(key).

Time is injectable with WithClock so expiry can be tested without sleeping.
*/
package cache
