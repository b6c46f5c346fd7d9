// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package preferences

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"
	"github.com/rs/zerolog"

	"github.com/tomtom215/reelcast/internal/logging"
	"github.com/tomtom215/reelcast/internal/metrics"
	"github.com/tomtom215/reelcast/internal/models"
)

// Store is the preference slice of the data layer. *database.DB implements it.
type Store interface {
	InteractionStats(ctx context.Context, since time.Time) ([]models.CategoryStat, error)
	UpdatePreferences(ctx context.Context, userID string, prefs models.Preferences) error
}

// Generator is the subset of the Ollama client used here.
type Generator interface {
	Generate(ctx context.Context, req *ollama.GenerateRequest, fn ollama.GenerateResponseFunc) error
}

// Options configures a Refresher.
type Options struct {
	Model         string
	Timeout       time.Duration
	Lookback      time.Duration
	MaxCategories int
}

// RefreshResult summarizes one refresh run.
type RefreshResult struct {
	Users    int           `json:"users"`
	Updated  int           `json:"updated"`
	Invalid  int           `json:"invalid"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// Refresher recomputes users.preferences from recent interactions.
type Refresher struct {
	store  Store
	gen    Generator
	opts   Options
	logger zerolog.Logger
	now    func() time.Time
}

// NewRefresher creates a Refresher. Zero Lookback and MaxCategories fall
// back to 30 days and 3.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewRefresher(store Store, gen Generator, opts Options, logger zerolog.Logger) *Refresher {
	if opts.Lookback <= 0 {
		opts.Lookback = 30 * 24 * time.Hour
	}
	if opts.MaxCategories <= 0 {
		opts.MaxCategories = 3
	}
	return &Refresher{
		store:  store,
		gen:    gen,
		opts:   opts,
		logger: logger.With().Str("component", "preferences").Str("model", opts.Model).Logger(),
		now:    time.Now,
	}
}

type userStats struct {
	id       string
	username string
	stats    []models.CategoryStat
}

// groupByUser keeps the first-seen order of users and categories.
func groupByUser(stats []models.CategoryStat) []userStats {
	index := make(map[string]int)
	var users []userStats
	for _, s := range stats {
		i, ok := index[s.UserID]
		if !ok {
			i = len(users)
			index[s.UserID] = i
			users = append(users, userStats{id: s.UserID, username: s.Username})
		}
		users[i].stats = append(users[i].stats, s)
	}
	return users
}

// Refresh updates every user with interactions inside the lookback window.
// Per-user failures are logged and counted; the returned error covers the
// stats query and cancellation only.
func (r *Refresher) Refresh(ctx context.Context) (RefreshResult, error) {
	start := time.Now()
	logger := logging.Attach(ctx, r.logger)
	var result RefreshResult

	since := r.now().Add(-r.opts.Lookback).UTC()
	stats, err := r.store.InteractionStats(ctx, since)
	if err != nil {
		return result, fmt.Errorf("load interaction stats: %w", err)
	}

	users := groupByUser(stats)
	result.Users = len(users)
	if len(users) == 0 {
		logger.Info().Time("since", since).Msg("No recent interactions, nothing to refresh")
		return result, nil
	}

	for i := range users {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}
		u := &users[i]
		ulog := logger.With().Str("user_id", u.id).Str("username", u.username).Logger()

		categories, err := r.suggest(ctx, u.stats)
		if err != nil {
			if errors.Is(err, ErrInvalidResponse) {
				result.Invalid++
				metrics.PreferenceUpdates.WithLabelValues("invalid").Inc()
			} else {
				result.Failed++
				metrics.PreferenceUpdates.WithLabelValues("error").Inc()
			}
			ulog.Warn().Err(err).Msg("Preference suggestion failed, keeping previous preferences")
			continue
		}

		prefs := models.Preferences{Categories: categories, UpdatedAt: r.now().UTC()}
		if err := r.store.UpdatePreferences(ctx, u.id, prefs); err != nil {
			result.Failed++
			metrics.PreferenceUpdates.WithLabelValues("error").Inc()
			ulog.Warn().Err(err).Msg("Writing preferences failed")
			continue
		}
		result.Updated++
		metrics.PreferenceUpdates.WithLabelValues("updated").Inc()
		ulog.Debug().Strs("categories", categories).Msg("Preferences updated")
	}

	result.Duration = time.Since(start)
	logger.Info().
		Int("users", result.Users).
		Int("updated", result.Updated).
		Int("invalid", result.Invalid).
		Int("failed", result.Failed).
		Dur("elapsed", result.Duration).
		Msg("Preference refresh complete")
	return result, nil
}

func (r *Refresher) suggest(ctx context.Context, stats []models.CategoryStat) ([]string, error) {
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	stream := false
	var out strings.Builder
	err := r.gen.Generate(ctx, &ollama.GenerateRequest{
		Model:  r.opts.Model,
		System: buildSystemPrompt(r.opts.MaxCategories),
		Prompt: BuildPrompt(stats, r.opts.MaxCategories),
		Format: responseSchema(r.opts.MaxCategories),
		Stream: &stream,
		Options: map[string]interface{}{
			"temperature": 0.2,
		},
	}, func(res ollama.GenerateResponse) error {
		out.WriteString(res.Response)
		return nil
	})
	metrics.RecordClassifierCall("ollama_preferences", err)
	if err != nil {
		return nil, fmt.Errorf("ollama generate: %w", err)
	}
	return ParseCategories(out.String(), r.opts.MaxCategories)
}
