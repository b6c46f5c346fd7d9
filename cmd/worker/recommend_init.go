// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/reelcast/internal/config"
	"github.com/tomtom215/reelcast/internal/database"
	"github.com/tomtom215/reelcast/internal/events"
	"github.com/tomtom215/reelcast/internal/models"
	"github.com/tomtom215/reelcast/internal/recommend"
	"github.com/tomtom215/reelcast/internal/recommend/algorithms"
	"github.com/tomtom215/reelcast/internal/recommend/storage"
)

// recommendComponents holds the recommendation side of the worker.
type recommendComponents struct {
	Store   *storage.Store
	Builder *recommend.Builder
	Scorer  *recommend.Scorer
	Users   *recommend.UserRecommender
}

// buildRecommendConfig maps the config sections onto recommend.Config.
func buildRecommendConfig(cfg *config.Config) (*recommend.Config, error) {
	rc := recommend.DefaultConfig()
	rc.CorpusPredicate = models.CorpusPredicate(cfg.Recommend.CorpusPredicate)
	rc.SimilarityWeight = cfg.Recommend.SimilarityWeight
	rc.EngagementWeight = cfg.Recommend.EngagementWeight
	rc.NeutralSimilarity = cfg.Recommend.NeutralSimilarity
	rc.Engagement = algorithms.EngagementWeights{
		Like:    cfg.Recommend.LikeWeight,
		Comment: cfg.Recommend.CommentWeight,
		View:    cfg.Recommend.ViewWeight,
	}
	rc.DefaultTopN = cfg.Recommend.DefaultTopN
	rc.Keep = cfg.Store.Keep
	if cfg.Preferences.Lookback > 0 {
		rc.PreferenceLookback = cfg.Preferences.Lookback
	}
	if err := rc.Validate(); err != nil {
		return nil, fmt.Errorf("recommend config: %w", err)
	}
	return rc, nil
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func initRecommend(cfg *config.Config, db *database.DB, bus *events.Bus, logger zerolog.Logger) (*recommendComponents, error) {
	rc, err := buildRecommendConfig(cfg)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(storage.Options{
		Dir:          cfg.Store.Dir,
		Keep:         cfg.Store.Keep,
		PruneOnLoad:  cfg.Store.PruneOnLoad,
		SafetyWindow: cfg.Store.SafetyWindow,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("model store: %w", err)
	}

	scorer := recommend.NewScorer(rc, store, logger)
	logger.Info().
		Str("predicate", string(rc.CorpusPredicate)).
		Float64("similarity_weight", rc.SimilarityWeight).
		Float64("engagement_weight", rc.EngagementWeight).
		Int("keep", rc.Keep).
		Msg("Recommendation components initialized")

	return &recommendComponents{
		Store:   store,
		Builder: recommend.NewBuilder(rc, db, store, bus, logger),
		Scorer:  scorer,
		Users:   recommend.NewUserRecommender(rc, scorer, db, uint64(time.Now().UnixNano()), logger), //nolint:gosec // seed only
	}, nil
}
