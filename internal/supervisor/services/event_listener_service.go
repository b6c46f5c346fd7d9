// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// ErrListenerStopped is returned when a subscription ends while the
// service is still wanted, so that suture resubscribes.
var ErrListenerStopped = errors.New("event listener stopped")

// ListenFunc consumes events until ctx is canceled.
type ListenFunc func(ctx context.Context) error

// EventListenerService runs one event bus subscription.
//
//	services.NewEventListenerService("model-built-listener", func(ctx context.Context) error {
//		return bus.OnModelBuilt(ctx, scorer.HandleModelBuilt)
//	}, logger)
type EventListenerService struct {
	name   string
	listen ListenFunc
	logger zerolog.Logger
}

// NewEventListenerService wraps listen.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewEventListenerService(name string, listen ListenFunc, logger zerolog.Logger) *EventListenerService {
	return &EventListenerService{
		name:   name,
		listen: listen,
		logger: logger.With().Str("service", name).Logger(),
	}
}

// Serve implements suture.Service.
func (s *EventListenerService) Serve(ctx context.Context) error {
	s.logger.Debug().Msg("Event listener starting")
	err := s.listen(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	return ErrListenerStopped
}

// String implements fmt.Stringer.
func (s *EventListenerService) String() string {
	return s.name
}
