// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package config

import (
	"fmt"
	"math"

	"github.com/tomtom215/reelcast/internal/validation"
)

// Validate checks struct tags first, then the cross-field rules.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	validators := []func() error{
		c.validateDatabase,
		c.validateRecommend,
		c.validateModeration,
		c.validateScheduler,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Driver == "mysql" && c.Database.DSN == "" {
		return fmt.Errorf("DB_DSN is required when DB_DRIVER=mysql")
	}
	return nil
}

func (c *Config) validateRecommend() error {
	sum := c.Recommend.SimilarityWeight + c.Recommend.EngagementWeight
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("recommend similarity_weight + engagement_weight must equal 1.0, got %.4f", sum)
	}
	if c.Recommend.LikeWeight+c.Recommend.CommentWeight+c.Recommend.ViewWeight == 0 {
		return fmt.Errorf("at least one engagement weight must be positive")
	}
	return nil
}

func (c *Config) validateModeration() error {
	if c.Moderation.CacheEnabled && c.Moderation.CacheTTL <= 0 {
		return fmt.Errorf("MODERATION_CACHE_TTL must be positive when the cache is enabled")
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if _, err := c.Scheduler.ScheduleLocation(); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE is invalid: %w", err)
	}
	return nil
}
