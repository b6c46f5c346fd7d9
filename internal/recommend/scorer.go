// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package recommend

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/reelcast/internal/events"
	"github.com/tomtom215/reelcast/internal/logging"
	"github.com/tomtom215/reelcast/internal/metrics"
	"github.com/tomtom215/reelcast/internal/models"
	"github.com/tomtom215/reelcast/internal/recommend/storage"
)

// Scorer ranks videos against the newest artifact. It is safe for
// concurrent use; artifacts are shared read-only between calls.
type Scorer struct {
	cfg    *Config
	loader ArtifactLoader
	logger zerolog.Logger
	now    func() time.Time

	mu         sync.RWMutex
	cached     *storage.Artifact
	loadedAt   time.Time
	suppressed map[string]time.Time // video id -> decided at
}

// NewScorer creates a Scorer reading artifacts from loader.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewScorer(cfg *Config, loader ArtifactLoader, logger zerolog.Logger) *Scorer {
	return &Scorer{
		cfg:    cfg,
		loader: loader,
		logger: logger.With().Str("component", "scorer").Logger(),
		now:    time.Now,

		suppressed: make(map[string]time.Time),
	}
}

// Invalidate drops the cached artifact so the next call reloads it.
func (s *Scorer) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.loadedAt = time.Time{}
	s.mu.Unlock()
}

// HandleModelBuilt invalidates the cache when a new model is announced.
// It matches the handler signature of events.Bus.OnModelBuilt.
func (s *Scorer) HandleModelBuilt(ctx context.Context, ev events.ModelBuilt) error {
	logger := logging.Attach(ctx, s.logger)
	logger.Debug().Str("artifact", ev.ArtifactName).Msg("New model announced, dropping cached artifact")
	s.Invalidate()
	if ev.Predicate == models.PredicateNotRejected {
		s.liftSuppressed(ev.BuiltAt)
	}
	return nil
}

// liftSuppressed forgets rejections decided before builtAt. The corpus of
// a build is loaded after its build time, so those videos are already gone
// from a not_rejected artifact.
func (s *Scorer) liftSuppressed(builtAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, decidedAt := range s.suppressed {
		if !decidedAt.After(builtAt) {
			delete(s.suppressed, id)
		}
	}
}

// HandleModerationDecided hides a rejected video until a model built
// without rejected videos replaces the current one.
func (s *Scorer) HandleModerationDecided(ctx context.Context, ev events.ModerationDecided) error {
	if ev.Kind != models.KindVideo || ev.Status != models.StatusRejected {
		return nil
	}
	s.mu.Lock()
	s.suppressed[ev.ContentID] = ev.DecidedAt
	s.mu.Unlock()
	logger := logging.Attach(ctx, s.logger)
	logger.Debug().Str("video_id", ev.ContentID).Msg("Suppressing rejected video")
	return nil
}

// withSuppressed returns exclude extended by the suppressed ids.
func (s *Scorer) withSuppressed(exclude []string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.suppressed) == 0 {
		return exclude
	}
	out := make([]string, 0, len(exclude)+len(s.suppressed))
	out = append(out, exclude...)
	for id := range s.suppressed {
		out = append(out, id)
	}
	return out
}

// artifact returns the cached artifact while it is fresh, otherwise the
// newest one from the loader. A failed reload keeps serving the stale copy.
func (s *Scorer) artifact(ctx context.Context) (*storage.Artifact, error) {
	now := s.now()
	s.mu.RLock()
	a, loadedAt := s.cached, s.loadedAt
	s.mu.RUnlock()
	if a != nil && now.Sub(loadedAt) < s.cfg.ReloadInterval {
		return a, nil
	}

	fresh, err := s.loader.LoadLatest(ctx)
	if err != nil {
		if a != nil && !errors.Is(err, storage.ErrArtifactNotFound) {
			s.logger.Warn().Err(err).Msg("Reloading model failed, serving previous artifact")
			return a, nil
		}
		return nil, err
	}

	s.mu.Lock()
	s.cached, s.loadedAt = fresh, now
	s.mu.Unlock()
	return fresh, nil
}

// Recommend returns up to topN videos ranked for the preferred categories,
// never including any id in exclude. It returns an empty slice when no
// model is available or anything fails.
func (s *Scorer) Recommend(ctx context.Context, preferred, exclude []string, topN int) []models.Recommendation {
	scored := s.RecommendScored(ctx, preferred, exclude, topN)
	out := make([]models.Recommendation, len(scored))
	for i := range scored {
		out[i] = scored[i].Recommendation
	}
	return out
}

// RecommendScored is Recommend with the score components attached.
func (s *Scorer) RecommendScored(ctx context.Context, preferred, exclude []string, topN int) []models.ScoredRecommendation {
	start := time.Now()

	a, err := s.artifact(ctx)
	if err != nil {
		outcome := "error"
		if errors.Is(err, storage.ErrArtifactNotFound) {
			outcome = "no_model"
			s.logger.Debug().Msg("No model artifact available")
		} else {
			s.logger.Error().Err(err).Msg("Loading model failed")
		}
		metrics.RecordRecommend(outcome, time.Since(start))
		return []models.ScoredRecommendation{}
	}

	ranked := Rank(a, s.cfg, preferred, s.withSuppressed(exclude), topN)
	outcome := "ranked"
	if len(ranked) == 0 {
		outcome = "no_candidates"
	}
	metrics.RecordRecommend(outcome, time.Since(start))

	s.logger.Debug().
		Strs("preferred", preferred).
		Int("excluded", len(exclude)).
		Int("returned", len(ranked)).
		Msg("Recommendations ranked")
	return ranked
}

// Rank scores an artifact. It is the pure core of Recommend.
func Rank(a *storage.Artifact, cfg *Config, preferred, exclude []string, topN int) []models.ScoredRecommendation {
	if topN <= 0 {
		topN = cfg.DefaultTopN
	}

	prefs := lowerNonEmpty(preferred)
	excluded := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		excluded[id] = struct{}{}
	}

	var matching []int
	if len(prefs) > 0 {
		for j := range a.Videos {
			if matchesAny(a.Videos[j].Category, prefs) {
				matching = append(matching, j)
			}
		}
	}

	out := make([]models.ScoredRecommendation, 0, min(topN, len(a.Videos)))
	for i := range a.Videos {
		v := &a.Videos[i]
		if _, skip := excluded[v.VideoID]; skip {
			continue
		}
		if len(prefs) > 0 && !matchesAny(v.Category, prefs) {
			continue
		}

		catSim := cfg.NeutralSimilarity
		if len(matching) > 0 {
			var sum float64
			for _, j := range matching {
				sum += a.Similarity.At(j, i)
			}
			catSim = sum / float64(len(matching))
		}

		out = append(out, models.ScoredRecommendation{
			Recommendation:     v.Recommendation(),
			Score:              catSim*cfg.SimilarityWeight + v.EngagementScore*cfg.EngagementWeight,
			CategorySimilarity: catSim,
			EngagementScore:    v.EngagementScore,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}

func lowerNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		out = append(out, strings.ToLower(v))
	}
	return out
}

func matchesAny(category string, lowered []string) bool {
	c := strings.ToLower(category)
	for _, p := range lowered {
		if strings.Contains(c, p) {
			return true
		}
	}
	return false
}
