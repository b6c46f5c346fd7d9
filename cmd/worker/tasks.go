// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/reelcast/internal/config"
	"github.com/tomtom215/reelcast/internal/logging"
	"github.com/tomtom215/reelcast/internal/models"
	"github.com/tomtom215/reelcast/internal/preferences"
	"github.com/tomtom215/reelcast/internal/recommend"
	"github.com/tomtom215/reelcast/internal/scheduler"
)

// Task names as they appear in logs, metrics and /status.
const (
	taskRebuildModel       = "rebuild_model"
	taskModerateComments   = "moderate_comments"
	taskModerateVideos     = "moderate_videos"
	taskRefreshPreferences = "refresh_preferences"
)

// initScheduler registers the enabled tasks in their run-on-start order.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func initScheduler(cfg *config.Config, rec *recommendComponents, mod *moderationComponents, refresher *preferences.Refresher, logger zerolog.Logger) (*scheduler.Scheduler, error) {
	loc, err := cfg.Scheduler.ScheduleLocation()
	if err != nil {
		return nil, fmt.Errorf("scheduler timezone: %w", err)
	}

	sched := scheduler.New(scheduler.Config{
		PollInterval: cfg.Scheduler.PollInterval,
		RunOnStart:   cfg.Scheduler.RunOnStart,
	}, logger)

	register := func(name, expr string, fn scheduler.TaskFunc) error {
		if err := sched.RegisterCron(name, expr, loc, fn); err != nil {
			return fmt.Errorf("register %s: %w", name, err)
		}
		return nil
	}

	if err := register(taskRebuildModel, cfg.Scheduler.RebuildSchedule, rebuildTask(rec.Builder)); err != nil {
		return nil, err
	}
	if mod.comments {
		if err := register(taskModerateComments, cfg.Scheduler.CommentsSchedule, sweepTask(mod, models.KindComment)); err != nil {
			return nil, err
		}
	}
	if mod.videos {
		if err := register(taskModerateVideos, cfg.Scheduler.VideosSchedule, sweepTask(mod, models.KindVideo)); err != nil {
			return nil, err
		}
	}
	if refresher != nil {
		if err := register(taskRefreshPreferences, cfg.Scheduler.PreferencesSchedule, func(ctx context.Context) error {
			_, err := refresher.Refresh(ctx)
			return err
		}); err != nil {
			return nil, err
		}
	}
	return sched, nil
}

// rebuildTask treats an empty corpus as a skipped run: the previous
// artifact stays current and nothing failed.
func rebuildTask(b *recommend.Builder) scheduler.TaskFunc {
	return func(ctx context.Context) error {
		info, err := b.BuildFromDatabase(ctx)
		switch {
		case errors.Is(err, recommend.ErrEmptyCorpus):
			logging.Ctx(ctx).Warn().Msg("Corpus is empty, keeping the previous model")
			return nil
		case err != nil:
			return err
		}
		logging.Ctx(ctx).Info().Str("artifact", info.Name).Msg("Model rebuilt")
		return nil
	}
}

func sweepTask(mod *moderationComponents, kind models.ContentKind) scheduler.TaskFunc {
	return func(ctx context.Context) error {
		_, err := mod.Pipeline.SweepPending(ctx, kind)
		return err
	}
}
