// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package main

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/reelcast/internal/config"
	"github.com/tomtom215/reelcast/internal/models"
	"github.com/tomtom215/reelcast/internal/preferences"
	"github.com/tomtom215/reelcast/internal/recommend"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("DB_DRIVER", "duckdb")
	cfg, err := config.LoadFrom("")
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	return cfg
}

func TestBuildRecommendConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Recommend.CorpusPredicate = "active"
	cfg.Recommend.LikeWeight = 3
	cfg.Store.Keep = 4

	rc, err := buildRecommendConfig(cfg)
	if err != nil {
		t.Fatalf("buildRecommendConfig: %v", err)
	}
	if rc.CorpusPredicate != models.PredicateActive || rc.Engagement.Like != 3 || rc.Keep != 4 {
		t.Errorf("config = %+v", rc)
	}

	cfg.Recommend.SimilarityWeight = 2
	if _, err := buildRecommendConfig(cfg); err == nil {
		t.Error("expected validation error for similarity weight above 1")
	}
}

func TestInitSchedulerRegistersEnabledTasks(t *testing.T) {
	tests := []struct {
		name      string
		comments  bool
		videos    bool
		refresher *preferences.Refresher
		want      []string
	}{
		{"rebuild only", false, false, nil, []string{taskRebuildModel}},
		{"moderation", true, true, nil, []string{taskRebuildModel, taskModerateComments, taskModerateVideos}},
		{
			"everything", true, true,
			preferences.NewRefresher(nil, nil, preferences.Options{}, zerolog.Nop()),
			[]string{taskRebuildModel, taskModerateComments, taskModerateVideos, taskRefreshPreferences},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recommendComponents{Builder: recommend.NewBuilder(recommend.DefaultConfig(), nil, nil, nil, zerolog.Nop())}
			mod := &moderationComponents{comments: tt.comments, videos: tt.videos}

			sched, err := initScheduler(testConfig(t), rec, mod, tt.refresher, zerolog.Nop())
			if err != nil {
				t.Fatalf("initScheduler: %v", err)
			}
			status := sched.Status()
			if len(status) != len(tt.want) {
				t.Fatalf("tasks = %+v, want %v", status, tt.want)
			}
			for i, name := range tt.want {
				if status[i].Name != name {
					t.Errorf("task %d = %s, want %s", i, status[i].Name, name)
				}
			}
		})
	}
}

func TestInitSchedulerRejectsBadSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scheduler.RebuildSchedule = "every night"
	rec := &recommendComponents{Builder: recommend.NewBuilder(recommend.DefaultConfig(), nil, nil, nil, zerolog.Nop())}
	if _, err := initScheduler(cfg, rec, &moderationComponents{}, nil, zerolog.Nop()); err == nil {
		t.Error("expected error for invalid cron expression")
	}
}
