// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/reelcast/internal/metrics"
)

// GuardConfig configures a GuardedClassifier.
type GuardConfig struct {
	// Name labels the breaker in logs and metrics.
	Name string

	// RateLimit is calls per second; zero disables limiting.
	RateLimit float64
	RateBurst int

	// FailureThreshold consecutive failures open the breaker for OpenTimeout.
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// GuardedClassifier protects an external classifier with a rate limiter
// and a circuit breaker. ErrNoPayload does not count as a failure.
type GuardedClassifier struct {
	inner   Classifier
	name    string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[Verdict]
}

// NewGuardedClassifier wraps inner.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewGuardedClassifier(inner Classifier, cfg GuardConfig, logger zerolog.Logger) *GuardedClassifier {
	logger = logger.With().Str("component", "classifier_guard").Str("breaker", cfg.Name).Logger()
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0)
	breaker := gobreaker.NewCircuitBreaker[Verdict](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerGauge(to))
			logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("Classifier circuit breaker state changed")
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoPayload)
		},
	})

	return &GuardedClassifier{
		inner:   inner,
		name:    cfg.Name,
		limiter: limiter,
		breaker: breaker,
	}
}

func breakerGauge(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// Classify implements Classifier.
func (g *GuardedClassifier) Classify(ctx context.Context, p Payload) (Verdict, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return Verdict{}, fmt.Errorf("%w: rate limiter: %w", ErrClassifier, err)
		}
	}

	v, err := g.breaker.Execute(func() (Verdict, error) {
		return g.inner.Classify(ctx, p)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return Verdict{}, Permanent(classifierError(g.name, err))
	}
	return v, err
}

// State reports the breaker state.
func (g *GuardedClassifier) State() gobreaker.State {
	return g.breaker.State()
}
