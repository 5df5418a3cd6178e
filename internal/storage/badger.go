// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/readstream/internal/models"
)

// Key prefixes
const (
	contentKeyPrefix   = "content:"
	publishedKeyPrefix = "pub:"
	runKeyPrefix       = "run:"
	runLatestKey       = "run_latest"
	profileKeyPrefix   = "profile:"
)

// Badger is a Store backed by BadgerDB.
//
// Every content record also writes a "pub:" index key whose timestamp part
// sorts newest first, so recency scans stop at the lookback boundary.
type Badger struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a database at path. An empty path opens an
// in-memory database.
func OpenBadger(path string) (*Badger, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	return &Badger{db: db}, nil
}

func contentKey(id string) []byte {
	return []byte(contentKeyPrefix + id)
}

// publishedKey encodes MaxInt64-unixnano big-endian so ascending key order is
// descending publish time.
func publishedKey(t time.Time, id string) []byte {
	k := make([]byte, 0, len(publishedKeyPrefix)+8+1+len(id))
	k = append(k, publishedKeyPrefix...)
	var nanos int64
	if t.After(time.Unix(0, 0)) {
		nanos = t.UnixNano()
	}
	k = binary.BigEndian.AppendUint64(k, uint64(math.MaxInt64-nanos))
	k = append(k, ':')
	return append(k, id...)
}

func publishedFromKey(k []byte) time.Time {
	inv := binary.BigEndian.Uint64(k[len(publishedKeyPrefix) : len(publishedKeyPrefix)+8])
	return time.Unix(0, math.MaxInt64-int64(inv)).UTC()
}

func (b *Badger) ContentExists(_ context.Context, id string) (bool, error) {
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(contentKey(id))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check content %s: %w", id, err)
	}
	return true, nil
}

func (b *Badger) PutContent(_ context.Context, c models.Content) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal content: %w", err)
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		key := contentKey(c.ID)
		if _, err := txn.Get(key); err == nil {
			return ErrAlreadyExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("set content: %w", err)
		}
		if err := txn.Set(publishedKey(c.PublishedAt, c.ID), []byte(c.ID)); err != nil {
			return fmt.Errorf("set publish index: %w", err)
		}
		return nil
	})
	if errors.Is(err, badger.ErrConflict) {
		// A concurrent writer committed the same ID first.
		return ErrAlreadyExists
	}
	return err
}

func (b *Badger) GetContents(_ context.Context, ids []string) (map[string]models.Content, error) {
	out := make(map[string]models.Content, len(ids))
	err := b.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			item, err := txn.Get(contentKey(id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("get content %s: %w", id, err)
			}
			var c models.Content
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &c)
			}); err != nil {
				return fmt.Errorf("decode content %s: %w", id, err)
			}
			out[id] = c
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Badger) RecentContents(_ context.Context, since time.Time, limit int) ([]models.Content, error) {
	var out []models.Content
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(publishedKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			if publishedFromKey(key).Before(since) {
				break
			}
			id := key[len(publishedKeyPrefix)+9:]

			item, err := txn.Get(contentKey(string(id)))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			var c models.Content
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &c)
			}); err != nil {
				return fmt.Errorf("decode content %s: %w", id, err)
			}
			out = append(out, c)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan recent content: %w", err)
	}
	return out, nil
}

func (b *Badger) CountContents(context.Context) (int64, error) {
	var n int64
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(contentKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count content: %w", err)
	}
	return n, nil
}

func (b *Badger) SaveRun(_ context.Context, run models.RunMetrics) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(runKeyPrefix+run.RunID), data); err != nil {
			return fmt.Errorf("set run: %w", err)
		}
		if err := txn.Set([]byte(runLatestKey), data); err != nil {
			return fmt.Errorf("set latest run: %w", err)
		}
		return nil
	})
}

func (b *Badger) LatestRun(context.Context) (models.RunMetrics, error) {
	var run models.RunMetrics
	if err := b.getJSON([]byte(runLatestKey), &run); err != nil {
		return models.RunMetrics{}, err
	}
	return run, nil
}

func (b *Badger) GetRun(_ context.Context, runID string) (models.RunMetrics, error) {
	var run models.RunMetrics
	if err := b.getJSON([]byte(runKeyPrefix+runID), &run); err != nil {
		return models.RunMetrics{}, err
	}
	return run, nil
}

func (b *Badger) PutProfile(_ context.Context, p models.UserProfile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(profileKeyPrefix+p.UserID), data)
	})
}

func (b *Badger) GetProfile(_ context.Context, userID string) (models.UserProfile, error) {
	var p models.UserProfile
	if err := b.getJSON([]byte(profileKeyPrefix+userID), &p); err != nil {
		return models.UserProfile{}, err
	}
	return p, nil
}

// getJSON decodes the value at key into v, mapping a missing key to ErrNotFound.
func (b *Badger) getJSON(key []byte, v any) error {
	return b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
}

func (b *Badger) Ping(context.Context) error {
	if b.db.IsClosed() {
		return errors.New("badger database is closed")
	}
	return nil
}

func (b *Badger) Close() error {
	return b.db.Close()
}

var _ Store = (*Badger)(nil)
