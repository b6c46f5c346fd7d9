// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package moderation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/reelcast/internal/metrics"
)

const verdictKeyPrefix = "verdict:"

// OpenCache opens the Badger database backing CachedClassifier. An empty
// dir opens an in-memory database.
func OpenCache(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil
	opts.ValueLogFileSize = 16 << 20

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open verdict cache: %w", err)
	}
	return db, nil
}

// CachedClassifier memoizes verdicts by the SHA-256 of the payload, so
// re-uploaded content is not sent to the external classifier twice while
// the entry is live. Cache failures degrade to calling the classifier.
type CachedClassifier struct {
	inner  Classifier
	db     *badger.DB
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedClassifier wraps inner. A zero ttl keeps entries forever.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewCachedClassifier(inner Classifier, db *badger.DB, ttl time.Duration, logger zerolog.Logger) *CachedClassifier {
	return &CachedClassifier{
		inner:  inner,
		db:     db,
		ttl:    ttl,
		logger: logger.With().Str("component", "verdict_cache").Logger(),
	}
}

// PayloadKey returns the cache key of p.
func PayloadKey(p Payload) []byte {
	h := sha256.New()
	h.Write([]byte(p.Kind))
	h.Write([]byte{0})
	if len(p.Media) > 0 {
		h.Write(p.Media)
	} else {
		h.Write([]byte(p.Text))
	}
	return []byte(verdictKeyPrefix + hex.EncodeToString(h.Sum(nil)))
}

// Classify implements Classifier.
func (c *CachedClassifier) Classify(ctx context.Context, p Payload) (Verdict, error) {
	key := PayloadKey(p)

	v, found, err := c.get(key)
	switch {
	case err != nil:
		metrics.ClassifierCache.WithLabelValues("error").Inc()
		c.logger.Warn().Err(err).Str("id", p.ID).Msg("Verdict cache read failed")
	case found:
		metrics.ClassifierCache.WithLabelValues("hit").Inc()
		return v, nil
	default:
		metrics.ClassifierCache.WithLabelValues("miss").Inc()
	}

	v, err = c.inner.Classify(ctx, p)
	if err != nil {
		return Verdict{}, err
	}
	if err := c.put(key, v); err != nil {
		c.logger.Warn().Err(err).Str("id", p.ID).Msg("Verdict cache write failed")
	}
	return v, nil
}

func (c *CachedClassifier) get(key []byte) (Verdict, bool, error) {
	var v Verdict
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &v)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Verdict{}, false, nil
	}
	if err != nil {
		return Verdict{}, false, err
	}
	return v, true, nil
}

func (c *CachedClassifier) put(key []byte, v Verdict) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal verdict: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(key, data)
		if c.ttl > 0 {
			e = e.WithTTL(c.ttl)
		}
		return txn.SetEntry(e)
	})
}
