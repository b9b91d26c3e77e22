// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/wayfarer/internal/jobs"
	"github.com/tomtom215/wayfarer/internal/patterns"
)

// Key prefixes
const (
	patternKeyPrefix = "pattern:"
	jobKeyPrefix     = "job:"
)

const (
	maxUpsertAttempts = 3
	gcDiscardRatio    = 0.5
)

// Badger persists patterns and archived jobs in BadgerDB. Values are JSON.
type Badger struct {
	db         *badger.DB
	gcInterval time.Duration
	logger     zerolog.Logger
}

// OpenBadger opens (or creates) the database at path.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func OpenBadger(path string, gcInterval time.Duration, logger zerolog.Logger) (*Badger, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return NewBadger(db, gcInterval, logger), nil
}

// NewBadger wraps an open database.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBadger(db *badger.DB, gcInterval time.Duration, logger zerolog.Logger) *Badger {
	if gcInterval <= 0 {
		gcInterval = 10 * time.Minute
	}
	return &Badger{
		db:         db,
		gcInterval: gcInterval,
		logger:     logger.With().Str("component", "badger_store").Logger(),
	}
}

func patternKey(p *patterns.BehaviorPattern) []byte {
	return []byte(patternKeyPrefix + p.Key())
}

// UpsertPattern merges p into the stored pattern with the same key inside
// one transaction, retrying on write conflicts.
func (b *Badger) UpsertPattern(ctx context.Context, p *patterns.BehaviorPattern) (*patterns.BehaviorPattern, error) {
	var merged patterns.BehaviorPattern
	var err error
	for attempt := 0; attempt < maxUpsertAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		err = b.db.Update(func(txn *badger.Txn) error {
			key := patternKey(p)
			var existing *patterns.BehaviorPattern

			item, getErr := txn.Get(key)
			switch {
			case errors.Is(getErr, badger.ErrKeyNotFound):
			case getErr != nil:
				return fmt.Errorf("get pattern: %w", getErr)
			default:
				var cur patterns.BehaviorPattern
				if valErr := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &cur)
				}); valErr != nil {
					return fmt.Errorf("decode pattern: %w", valErr)
				}
				existing = &cur
			}

			merged = patterns.MergePattern(existing, p)
			data, mErr := json.Marshal(&merged)
			if mErr != nil {
				return fmt.Errorf("marshal pattern: %w", mErr)
			}
			return txn.Set(key, data)
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return &merged, nil
}

// ListPatterns returns the patterns of userID ordered by key.
func (b *Badger) ListPatterns(ctx context.Context, userID string) ([]patterns.BehaviorPattern, error) {
	out := make([]patterns.BehaviorPattern, 0)
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(patternKeyPrefix + userID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var p patterns.BehaviorPattern
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &p)
			}); err != nil {
				return fmt.Errorf("decode pattern: %w", err)
			}
			// Guard against user IDs that are prefixes of each other's keys.
			if p.UserID == userID {
				out = append(out, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list patterns: %w", err)
	}
	return out, nil
}

// ArchiveJob stores job under its ID.
func (b *Badger) ArchiveJob(ctx context.Context, job *jobs.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(jobKeyPrefix+job.ID), data)
	})
}

// ArchivedJob returns an archived job.
func (b *Badger) ArchivedJob(_ context.Context, id string) (*jobs.Job, error) {
	var job jobs.Job
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(jobKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return jobNotFound(id)
		}
		if err != nil {
			return fmt.Errorf("get job: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &job)
		})
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// Close closes the database.
func (b *Badger) Close() error {
	return b.db.Close()
}

// Serve runs value log garbage collection on the configured interval until
// ctx is cancelled. It implements suture.Service.
func (b *Badger) Serve(ctx context.Context) error {
	ticker := time.NewTicker(b.gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			b.runGC()
		}
	}
}

func (b *Badger) String() string {
	return "badger-gc"
}

// runGC collects until badger reports nothing left to rewrite.
func (b *Badger) runGC() {
	rounds := 0
	for {
		err := b.db.RunValueLogGC(gcDiscardRatio)
		if err != nil {
			if !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrRejected) {
				b.logger.Warn().Err(err).Msg("Value log GC failed")
			}
			break
		}
		rounds++
	}
	if rounds > 0 {
		b.logger.Debug().Int("rounds", rounds).Msg("Value log GC complete")
	}
}
