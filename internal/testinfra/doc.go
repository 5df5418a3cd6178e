// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

// Package testinfra provides test infrastructure: testcontainers-go helpers
// for Postgres and NATS, and an in-process fake of the external ranking
// service.
//
// Container helpers are behind the integration build tag:
//
//	func TestPostgresStore(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    pg, err := testinfra.NewPostgresContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, pg)
//
//	    store, err := storage.OpenPostgres(ctx, pg.DSN, 4)
//	    // ...
//	}
//
// Container tests need Docker. They skip when the daemon is unreachable.
// The first run pulls images.
package testinfra
