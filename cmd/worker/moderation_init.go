// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dgraph-io/badger/v4"
	ollama "github.com/ollama/ollama/api"
	"github.com/rs/zerolog"

	"github.com/tomtom215/reelcast/internal/config"
	"github.com/tomtom215/reelcast/internal/database"
	"github.com/tomtom215/reelcast/internal/events"
	"github.com/tomtom215/reelcast/internal/models"
	"github.com/tomtom215/reelcast/internal/moderation"
	"github.com/tomtom215/reelcast/internal/preferences"
)

// moderationComponents holds the classifiers and the pipeline.
type moderationComponents struct {
	Pipeline *moderation.Pipeline
	comments bool
	videos   bool

	llm    *ollama.Client
	video  *moderation.VideoClassifier
	cache  *badger.DB
	logger zerolog.Logger
}

// newOllamaClient honors OLLAMA_HOST unless the config sets a host.
func newOllamaClient(cfg *config.OllamaConfig) (*ollama.Client, error) {
	if cfg.Host == "" {
		return ollama.ClientFromEnvironment()
	}
	base, err := url.Parse(cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host: %w", err)
	}
	return ollama.NewClient(base, http.DefaultClient), nil
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func initModeration(ctx context.Context, cfg *config.Config, db *database.DB, bus *events.Bus, logger zerolog.Logger) (*moderationComponents, error) {
	mc := &moderationComponents{
		Pipeline: moderation.NewPipeline(db, bus, logger),
		comments: cfg.Moderation.CommentsEnabled,
		videos:   cfg.Moderation.VideosEnabled,
		logger:   logger,
	}

	if cfg.Moderation.CommentsEnabled || cfg.Preferences.Enabled {
		llm, err := newOllamaClient(&cfg.Ollama)
		if err != nil {
			return nil, fmt.Errorf("ollama client: %w", err)
		}
		mc.llm = llm
	}

	if cfg.Moderation.CacheEnabled {
		cache, err := moderation.OpenCache(cfg.Moderation.CacheDir)
		if err != nil {
			return nil, err
		}
		mc.cache = cache
	}

	if cfg.Moderation.CommentsEnabled {
		text := moderation.NewTextClassifier(mc.llm, cfg.Ollama.ModerationModel, cfg.Ollama.Timeout, logger)
		mc.Pipeline.Register(models.KindComment, moderation.Chain(text, &cfg.Moderation, moderation.ChainOptions{
			Name:     "ollama_text",
			Attempts: 1,
			Cache:    mc.cache,
		}, logger))
		logger.Info().Str("model", cfg.Ollama.ModerationModel).Msg("Comment moderation enabled")
	}

	if cfg.Moderation.VideosEnabled {
		video, err := moderation.NewVideoClassifier(ctx, cfg.Moderation.GCPCredentials, moderation.VideoOptions{
			Timeout:         cfg.Moderation.VideoTimeout,
			UnsafeLabels:    cfg.Moderation.UnsafeVideoLabels,
			LabelConfidence: cfg.Moderation.VideoLabelConfidence,
		}, logger)
		if err != nil {
			mc.Close()
			return nil, err
		}
		mc.video = video
		mc.Pipeline.Register(models.KindVideo, moderation.Chain(video, &cfg.Moderation, moderation.ChainOptions{
			Name:     "video_intelligence",
			Attempts: cfg.Moderation.VideoAttempts,
			Cache:    mc.cache,
		}, logger))
		logger.Info().Int("attempts", cfg.Moderation.VideoAttempts).Msg("Video moderation enabled")
	}

	return mc, nil
}

// Close releases the video client and the verdict cache.
func (mc *moderationComponents) Close() {
	if mc.video != nil {
		if err := mc.video.Close(); err != nil {
			mc.logger.Warn().Err(err).Msg("Error closing video classifier")
		}
	}
	if mc.cache != nil {
		if err := mc.cache.Close(); err != nil {
			mc.logger.Warn().Err(err).Msg("Error closing verdict cache")
		}
	}
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func initPreferences(cfg *config.Config, db *database.DB, llm *ollama.Client, logger zerolog.Logger) *preferences.Refresher {
	if !cfg.Preferences.Enabled || llm == nil {
		logger.Info().Msg("Preference refresh disabled")
		return nil
	}
	return preferences.NewRefresher(db, llm, preferences.Options{
		Model:         cfg.Ollama.PreferenceModel,
		Timeout:       cfg.Ollama.Timeout,
		Lookback:      cfg.Preferences.Lookback,
		MaxCategories: cfg.Preferences.MaxCategories,
	}, logger)
}
