// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package moderation

import (
	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/tomtom215/reelcast/internal/config"
)

// ChainOptions selects the wrappers applied by Chain.
type ChainOptions struct {
	Name     string
	Attempts int
	Cache    *badger.DB
}

// Chain wraps inner with retries, the guard and, when a cache is given,
// the verdict cache, using the moderation settings.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func Chain(inner Classifier, cfg *config.ModerationConfig, opts ChainOptions, logger zerolog.Logger) Classifier {
	c := inner
	if opts.Attempts > 1 {
		c = NewRetryingClassifier(c, opts.Attempts, cfg.VideoBackoff, logger)
	}
	c = NewGuardedClassifier(c, GuardConfig{
		Name:             opts.Name,
		RateLimit:        cfg.RateLimit,
		RateBurst:        cfg.RateBurst,
		FailureThreshold: cfg.BreakerFailures,
		OpenTimeout:      cfg.BreakerTimeout,
	}, logger)
	if opts.Cache != nil {
		c = NewCachedClassifier(c, opts.Cache, cfg.CacheTTL, logger)
	}
	return c
}
