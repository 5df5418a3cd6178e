// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package storage

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/readstream/internal/config"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	runStoreSuite(t, NewMemory())
}

func TestBadgerStore_InMemory(t *testing.T) {
	t.Parallel()

	s, err := OpenBadger("")
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}
	defer s.Close()

	runStoreSuite(t, s)
}

func TestBadgerStore_Persists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := context.Background()

	s, err := OpenBadger(dir)
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}
	if err := s.PutContent(ctx, sampleContent("kept", time.Hour)); err != nil {
		t.Fatalf("PutContent() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Ping(ctx); err == nil {
		t.Error("Ping() after Close() should fail")
	}

	reopened, err := OpenBadger(dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	ok, err := reopened.ContentExists(ctx, "kept")
	if err != nil || !ok {
		t.Errorf("ContentExists(kept) after reopen = %v, %v", ok, err)
	}
}

func TestBadgerStore_ConcurrentSameID(t *testing.T) {
	t.Parallel()

	s, err := OpenBadger("")
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}
	defer s.Close()

	var (
		wg       sync.WaitGroup
		inserted atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.PutContent(context.Background(), sampleContent("race", time.Hour))
			switch {
			case err == nil:
				inserted.Add(1)
			case !errors.Is(err, ErrAlreadyExists):
				t.Errorf("PutContent() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if inserted.Load() != 1 {
		t.Errorf("inserted = %d, want exactly 1", inserted.Load())
	}
}

func TestOpen_Drivers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	mem, err := Open(ctx, config.StorageConfig{Driver: "memory"})
	if err != nil {
		t.Fatalf("Open(memory) error = %v", err)
	}
	if _, ok := mem.(*Memory); !ok {
		t.Errorf("Open(memory) = %T", mem)
	}

	b, err := Open(ctx, config.StorageConfig{Driver: "badger", Path: t.TempDir()})
	if err != nil {
		t.Fatalf("Open(badger) error = %v", err)
	}
	defer b.Close()

	if _, err := Open(ctx, config.StorageConfig{Driver: "sqlite"}); err == nil {
		t.Error("expected error for unknown driver")
	}
}
