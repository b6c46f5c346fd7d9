// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package recommend

import (
	"fmt"
	"time"

	"github.com/tomtom215/reelcast/internal/models"
	"github.com/tomtom215/reelcast/internal/recommend/algorithms"
)

// Config contains the model-building and ranking constants.
type Config struct {
	// CorpusPredicate selects which videos are loaded for a build.
	CorpusPredicate models.CorpusPredicate `json:"corpus_predicate"`

	// SimilarityWeight and EngagementWeight blend the final score.
	SimilarityWeight float64 `json:"similarity_weight"`
	EngagementWeight float64 `json:"engagement_weight"`

	// NeutralSimilarity is used as categorySim when there is nothing to compare against.
	NeutralSimilarity float64 `json:"neutral_similarity"`

	// Engagement weights the raw counters before normalization.
	Engagement algorithms.EngagementWeights `json:"engagement"`

	// DefaultTopN applies when a caller asks for topN <= 0.
	DefaultTopN int `json:"default_top_n"`

	// Keep is how many artifacts survive the prune after a build.
	Keep int `json:"keep"`

	// ReloadInterval bounds how long the Scorer serves a cached artifact
	// before asking the store for the newest one again.
	ReloadInterval time.Duration `json:"reload_interval"`

	// BuildTimeout bounds one BuildFromDatabase call.
	BuildTimeout time.Duration `json:"build_timeout"`

	// PreferenceLookback is the interaction window used when a user has no
	// stored preferences.
	PreferenceLookback time.Duration `json:"preference_lookback"`

	// ExploreCount random unseen videos are appended to per-user results.
	ExploreCount int `json:"explore_count"`
}

// DefaultConfig returns the production ranking constants.
func DefaultConfig() *Config {
	return &Config{
		CorpusPredicate:    models.PredicateNotRejected,
		SimilarityWeight:   0.7,
		EngagementWeight:   0.3,
		NeutralSimilarity:  algorithms.NeutralScore,
		Engagement:         algorithms.DefaultEngagementWeights,
		DefaultTopN:        8,
		Keep:               1,
		ReloadInterval:     30 * time.Second,
		BuildTimeout:       10 * time.Minute,
		PreferenceLookback: 30 * 24 * time.Hour,
		ExploreCount:       2,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if !c.CorpusPredicate.Valid() {
		return fmt.Errorf("corpus_predicate must be %q or %q, got %q",
			models.PredicateActive, models.PredicateNotRejected, c.CorpusPredicate)
	}
	if c.SimilarityWeight < 0 || c.SimilarityWeight > 1 {
		return fmt.Errorf("similarity_weight must be in [0, 1], got %f", c.SimilarityWeight)
	}
	if c.EngagementWeight < 0 || c.EngagementWeight > 1 {
		return fmt.Errorf("engagement_weight must be in [0, 1], got %f", c.EngagementWeight)
	}
	if c.NeutralSimilarity < 0 || c.NeutralSimilarity > 1 {
		return fmt.Errorf("neutral_similarity must be in [0, 1], got %f", c.NeutralSimilarity)
	}
	if c.Engagement.Like < 0 || c.Engagement.Comment < 0 || c.Engagement.View < 0 {
		return fmt.Errorf("engagement weights must be non-negative, got %+v", c.Engagement)
	}
	if c.DefaultTopN < 1 {
		return fmt.Errorf("default_top_n must be positive, got %d", c.DefaultTopN)
	}
	if c.Keep < 1 {
		return fmt.Errorf("keep must be at least 1, got %d", c.Keep)
	}
	if c.ReloadInterval < 0 {
		return fmt.Errorf("reload_interval must be non-negative, got %v", c.ReloadInterval)
	}
	if c.BuildTimeout <= 0 {
		return fmt.Errorf("build_timeout must be positive, got %v", c.BuildTimeout)
	}
	if c.PreferenceLookback <= 0 {
		return fmt.Errorf("preference_lookback must be positive, got %v", c.PreferenceLookback)
	}
	if c.ExploreCount < 0 {
		return fmt.Errorf("explore_count must be non-negative, got %d", c.ExploreCount)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
