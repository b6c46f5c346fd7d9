// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package recommend

import (
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
	if cfg.SimilarityWeight != 0.7 || cfg.EngagementWeight != 0.3 || cfg.DefaultTopN != 8 {
		t.Errorf("ranking constants = %+v", cfg)
	}
	if cfg.Engagement.Like != 1 || cfg.Engagement.Comment != 2 || cfg.Engagement.View != 0.5 {
		t.Errorf("engagement weights = %+v", cfg.Engagement)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"bad predicate", func(c *Config) { c.CorpusPredicate = "everything" }},
		{"similarity weight above 1", func(c *Config) { c.SimilarityWeight = 1.5 }},
		{"negative engagement weight", func(c *Config) { c.EngagementWeight = -0.1 }},
		{"neutral similarity out of range", func(c *Config) { c.NeutralSimilarity = 2 }},
		{"negative view weight", func(c *Config) { c.Engagement.View = -1 }},
		{"zero top n", func(c *Config) { c.DefaultTopN = 0 }},
		{"zero keep", func(c *Config) { c.Keep = 0 }},
		{"negative reload interval", func(c *Config) { c.ReloadInterval = -1 }},
		{"zero build timeout", func(c *Config) { c.BuildTimeout = 0 }},
		{"zero lookback", func(c *Config) { c.PreferenceLookback = 0 }},
		{"negative explore", func(c *Config) { c.ExploreCount = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestConfigClone(t *testing.T) {
	cfg := DefaultConfig()
	clone := cfg.Clone()
	clone.DefaultTopN = 20
	if cfg.DefaultTopN != 8 {
		t.Error("Clone shares state with the original")
	}
}
