// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

/*
Package main is the entry point for the readstream server.

Readstream collects articles, papers and videos from syndication feeds and
query APIs, stores them once per canonical URL, pushes new items to an
external ranking service and serves per-user recommendations with a local
fallback when the ranker is unavailable.

# Application Architecture

	readstream (root)
	├── collection-layer
	│   └── collect-scheduler (when AUTO_RUN_INTERVAL_MIN > 0 or COLLECT_ON_STARTUP)
	├── messaging-layer
	│   └── feedback-relay (watermill over gochannel or NATS)
	└── api-layer
	    └── http-server (chi)

Initialization order:

 1. Configuration: koanf v2 (defaults, config.yaml, .env, environment)
 2. Logging: zerolog, JSON or console
 3. Storage: badger, postgres or memory
 4. Ranker client behind a gobreaker circuit breaker
 5. Sync bridge and feedback relay
 6. Source catalog with the per-host limiter
 7. Orchestrator, resolver and HTTP router
 8. Supervisor tree

# Configuration

	PORT=8087
	STORAGE_DRIVER=badger        # badger, postgres or memory
	STORAGE_PATH=./data/readstream
	DATABASE_URL=postgres://...  # when STORAGE_DRIVER=postgres
	RANKER_URL=https://...       # empty disables the ranker
	RANKER_API_KEY=...
	FEEDBACK_TRANSPORT=gochannel # or nats (build with -tags nats)
	AUTO_RUN_INTERVAL_MIN=360    # 0 disables scheduled collection
	LOG_LEVEL=info
	LOG_FORMAT=json

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains, the
relay flushes buffered feedback and storage is closed last.
*/
package main
