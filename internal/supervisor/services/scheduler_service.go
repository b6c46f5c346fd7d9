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
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/reelcast/internal/scheduler"
)

// TaskRunner is implemented by *scheduler.Scheduler.
type TaskRunner interface {
	Run(ctx context.Context) error
}

// SchedulerService runs the task scheduler. A scheduler with no tasks is
// not restarted.
type SchedulerService struct {
	runner TaskRunner
	logger zerolog.Logger
	name   string
}

// NewSchedulerService wraps runner.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSchedulerService(runner TaskRunner, logger zerolog.Logger) *SchedulerService {
	return &SchedulerService{
		runner: runner,
		logger: logger.With().Str("service", "scheduler").Logger(),
		name:   "scheduler-service",
	}
}

// Serve implements suture.Service.
func (s *SchedulerService) Serve(ctx context.Context) error {
	err := s.runner.Run(ctx)
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, scheduler.ErrNoTasks):
		s.logger.Warn().Msg("No scheduled tasks registered, scheduler not started")
		return fmt.Errorf("%w: %w", suture.ErrDoNotRestart, err)
	case err != nil:
		return fmt.Errorf("scheduler: %w", err)
	default:
		// Every schedule ran out; nothing is left to run.
		s.logger.Info().Msg("Scheduler finished")
		return suture.ErrDoNotRestart
	}
}

// String implements fmt.Stringer.
func (s *SchedulerService) String() string {
	return s.name
}
