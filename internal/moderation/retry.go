// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// RetryingClassifier retries a classifier with a fixed backoff. Permanent
// errors and ErrNoPayload are returned immediately.
type RetryingClassifier struct {
	inner    Classifier
	attempts int
	backoff  time.Duration
	logger   zerolog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewRetryingClassifier wraps inner. attempts below 1 are treated as 1.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewRetryingClassifier(inner Classifier, attempts int, backoff time.Duration, logger zerolog.Logger) *RetryingClassifier {
	if attempts < 1 {
		attempts = 1
	}
	return &RetryingClassifier{
		inner:    inner,
		attempts: attempts,
		backoff:  backoff,
		logger:   logger.With().Str("component", "classifier_retry").Logger(),
		sleep:    sleepContext,
	}
}

// Classify implements Classifier.
func (r *RetryingClassifier) Classify(ctx context.Context, p Payload) (Verdict, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		v, err := r.inner.Classify(ctx, p)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if IsPermanent(err) || ctx.Err() != nil {
			return Verdict{}, err
		}
		if attempt == r.attempts {
			break
		}

		r.logger.Warn().Err(err).
			Str("id", p.ID).
			Int("attempt", attempt).
			Int("max_attempts", r.attempts).
			Dur("backoff", r.backoff).
			Msg("Classification failed, retrying")
		if err := r.sleep(ctx, r.backoff); err != nil {
			return Verdict{}, fmt.Errorf("%w: retry interrupted: %w", ErrClassifier, err)
		}
	}
	return Verdict{}, fmt.Errorf("after %d attempts: %w", r.attempts, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
