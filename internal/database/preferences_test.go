// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package database

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/reelcast/internal/models"
)

func seedInteractions(t *testing.T, db *DB) {
	t.Helper()
	mustExec(t, db,
		`INSERT INTO users (user_id, username) VALUES ('u1', 'alice'), ('u2', 'bob'), ('u3', 'carol')`,
		`INSERT INTO videos (video_id, user_id, category) VALUES
			('v1', 'u3', 'Gaming & Esports'), ('v2', 'u3', 'Food & Cooking'), ('v3', 'u3', 'Gaming & Esports')`,
		`INSERT INTO user_video_interactions (interaction_id, user_id, video_id, interaction_type, interaction_timestamp) VALUES
			('i1', 'u1', 'v1', 'view', TIMESTAMP '2026-03-10 10:00:00'),
			('i2', 'u1', 'v3', 'view', TIMESTAMP '2026-03-11 10:00:00'),
			('i3', 'u1', 'v3', 'like', TIMESTAMP '2026-03-11 10:01:00'),
			('i4', 'u1', 'v2', 'view', TIMESTAMP '2026-03-12 10:00:00'),
			('i5', 'u2', 'v2', 'view', TIMESTAMP '2025-01-01 10:00:00')`,
		`INSERT INTO comments (comment_id, video_id, user_id, content) VALUES ('c1', 'v2', 'u1', 'tasty')`,
	)
}

func TestInteractionStats(t *testing.T) {
	db, _, _ := setupTestDB(t)
	seedInteractions(t, db)

	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	stats, err := db.InteractionStats(context.Background(), since)
	checkNoError(t, err)

	want := []models.CategoryStat{
		{UserID: "u1", Username: "alice", Category: "Gaming & Esports", Views: 2, Likes: 1, Comments: 0},
		{UserID: "u1", Username: "alice", Category: "Food & Cooking", Views: 1, Likes: 0, Comments: 1},
	}
	if len(stats) != len(want) {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}
	for i := range want {
		if stats[i] != want[i] {
			t.Errorf("stats[%d] = %+v, want %+v", i, stats[i], want[i])
		}
	}
}

func TestUpdateAndReadPreferences(t *testing.T) {
	db, _, _ := setupTestDB(t)
	seedInteractions(t, db)
	ctx := context.Background()

	_, ok, err := db.StoredPreferences(ctx, "u1")
	checkNoError(t, err)
	if ok {
		t.Error("expected no stored preferences before update")
	}

	prefs := models.Preferences{
		Categories: []string{"Gaming & Esports", "Food & Cooking"},
		UpdatedAt:  time.Date(2026, 3, 13, 4, 0, 0, 0, time.UTC),
	}
	checkNoError(t, db.UpdatePreferences(ctx, "u1", prefs))

	got, ok, err := db.StoredPreferences(ctx, "u1")
	checkNoError(t, err)
	if !ok || len(got) != 2 || got[0] != "Gaming & Esports" {
		t.Errorf("StoredPreferences = %v, %v", got, ok)
	}

	if err := db.UpdatePreferences(ctx, "nobody", prefs); err == nil {
		t.Error("expected error for unknown user")
	}
}

func TestRecentCategoriesAndViewed(t *testing.T) {
	db, _, _ := setupTestDB(t)
	seedInteractions(t, db)
	ctx := context.Background()

	cats, err := db.RecentCategories(ctx, "u1", time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC))
	checkNoError(t, err)
	if len(cats) != 2 || cats[0] != "Food & Cooking" || cats[1] != "Gaming & Esports" {
		t.Errorf("RecentCategories = %v", cats)
	}

	viewed, err := db.ViewedVideoIDs(ctx, "u1")
	checkNoError(t, err)
	if len(viewed) != 3 || viewed[0] != "v1" || viewed[2] != "v3" {
		t.Errorf("ViewedVideoIDs = %v", viewed)
	}
}
