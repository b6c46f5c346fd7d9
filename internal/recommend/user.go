// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package recommend

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/reelcast/internal/models"
)

// UserRecommender resolves a user's categories and watch history before
// ranking, and mixes in a few random unseen videos.
type UserRecommender struct {
	cfg     *Config
	scorer  *Scorer
	history UserHistory
	logger  zerolog.Logger
	now     func() time.Time

	// rng is guarded by rngMu; ForUser is called concurrently.
	rng   *rand.Rand
	rngMu sync.Mutex
}

// NewUserRecommender creates a UserRecommender. seed fixes the explore picks.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewUserRecommender(cfg *Config, scorer *Scorer, history UserHistory, seed uint64, logger zerolog.Logger) *UserRecommender {
	return &UserRecommender{
		cfg:     cfg,
		scorer:  scorer,
		history: history,
		logger:  logger.With().Str("component", "user_recommender").Logger(),
		now:     time.Now,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), //nolint:gosec // exploration picks are not security sensitive
	}
}

// ForUser recommends videos for userID. Stored preferences win; without
// them the categories the user interacted with inside the lookback window
// are used. Videos the user already watched are excluded, except
// currentVideoID. Failures reading history degrade to fewer signals.
func (u *UserRecommender) ForUser(ctx context.Context, userID, currentVideoID string, topN int) []models.Recommendation {
	logger := u.logger.With().Str("user_id", userID).Logger()

	categories, ok, err := u.history.StoredPreferences(ctx, userID)
	if err != nil {
		logger.Warn().Err(err).Msg("Reading stored preferences failed")
		ok = false
	}
	if !ok {
		categories, err = u.history.RecentCategories(ctx, userID, u.now().Add(-u.cfg.PreferenceLookback))
		if err != nil {
			logger.Warn().Err(err).Msg("Reading recent categories failed")
			categories = nil
		}
	}

	viewed, err := u.history.ViewedVideoIDs(ctx, userID)
	if err != nil {
		logger.Warn().Err(err).Msg("Reading watch history failed")
		viewed = nil
	}
	exclude := make([]string, 0, len(viewed))
	for _, id := range viewed {
		if id != currentVideoID {
			exclude = append(exclude, id)
		}
	}

	recs := u.scorer.Recommend(ctx, categories, exclude, topN)
	if u.cfg.ExploreCount == 0 {
		return recs
	}
	return append(recs, u.explore(ctx, exclude, recs)...)
}

// explore picks up to ExploreCount random videos that are neither excluded
// nor already recommended.
func (u *UserRecommender) explore(ctx context.Context, exclude []string, recs []models.Recommendation) []models.Recommendation {
	a, err := u.scorer.artifact(ctx)
	if err != nil {
		return nil
	}

	taken := make(map[string]struct{}, len(exclude)+len(recs))
	for _, id := range u.scorer.withSuppressed(exclude) {
		taken[id] = struct{}{}
	}
	for _, r := range recs {
		taken[r.VideoID] = struct{}{}
	}

	pool := make([]int, 0, len(a.Videos))
	for i := range a.Videos {
		if _, skip := taken[a.Videos[i].VideoID]; !skip {
			pool = append(pool, i)
		}
	}

	n := min(u.cfg.ExploreCount, len(pool))
	out := make([]models.Recommendation, 0, n)
	u.rngMu.Lock()
	defer u.rngMu.Unlock()
	for k := 0; k < n; k++ {
		j := k + u.rng.IntN(len(pool)-k)
		pool[k], pool[j] = pool[j], pool[k]
		out = append(out, a.Videos[pool[k]].Recommendation())
	}
	return out
}
