// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package database

import (
	"context"
	"testing"

	"github.com/tomtom215/reelcast/internal/models"
)

func seedCorpus(t *testing.T, db *DB) {
	t.Helper()
	mustExec(t, db,
		`INSERT INTO videos (video_id, user_id, title, category, is_active, moderation_status) VALUES
			('v1', 'u1', 'Speedrun', 'Gaming & Esports', TRUE, 'approved'),
			('v2', 'u2', 'Pasta', 'Food & Cooking', TRUE, 'pending'),
			('v3', 'u1', NULL, NULL, FALSE, 'approved'),
			('v4', 'u2', 'Banned', 'Comedy & Fun', TRUE, 'rejected')`,
		`INSERT INTO likes (like_id, user_id, video_id) VALUES
			('l1', 'u2', 'v1'), ('l2', 'u3', 'v1')`,
		`INSERT INTO comments (comment_id, video_id, user_id, content) VALUES
			('c1', 'v1', 'u2', 'nice'), ('c2', 'v1', 'u3', 'wow'), ('c3', 'v2', 'u1', 'yum')`,
		`INSERT INTO user_video_interactions (interaction_id, user_id, video_id, interaction_type) VALUES
			('i1', 'u2', 'v1', 'view'), ('i2', 'u3', 'v1', 'view'), ('i3', 'u3', 'v1', 'view'),
			('i4', 'u3', 'v1', 'like'), ('i5', 'u1', 'v2', 'view')`,
	)
}

func TestLoadCorpusCounters(t *testing.T) {
	db, _, _ := setupTestDB(t)
	seedCorpus(t, db)

	corpus, err := db.LoadCorpus(context.Background(), models.PredicateNotRejected)
	checkNoError(t, err)

	want := []models.VideoRecord{
		{VideoID: "v1", UserID: "u1", Title: "Speedrun", Category: "Gaming & Esports", Likes: 2, Comments: 2, Views: 3},
		{VideoID: "v2", UserID: "u2", Title: "Pasta", Category: "Food & Cooking", Likes: 0, Comments: 1, Views: 1},
		{VideoID: "v3", UserID: "u1", Title: "", Category: "", Likes: 0, Comments: 0, Views: 0},
	}
	if len(corpus) != len(want) {
		t.Fatalf("len(corpus) = %d, want %d: %+v", len(corpus), len(want), corpus)
	}
	for i := range want {
		if corpus[i] != want[i] {
			t.Errorf("corpus[%d] = %+v, want %+v", i, corpus[i], want[i])
		}
	}
}

func TestLoadCorpusPredicates(t *testing.T) {
	db, _, _ := setupTestDB(t)
	seedCorpus(t, db)

	tests := []struct {
		predicate models.CorpusPredicate
		want      []string
	}{
		{models.PredicateNotRejected, []string{"v1", "v2", "v3"}},
		{models.PredicateActive, []string{"v1", "v2", "v4"}},
		{"", []string{"v1", "v2", "v3"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.predicate), func(t *testing.T) {
			corpus, err := db.LoadCorpus(context.Background(), tt.predicate)
			checkNoError(t, err)
			var got []string
			for _, v := range corpus {
				got = append(got, v.VideoID)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ids = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ids = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}

	if _, err := db.LoadCorpus(context.Background(), "bogus"); err == nil {
		t.Error("expected error for unknown predicate")
	}
}

func TestLoadCorpusEmpty(t *testing.T) {
	db, _, _ := setupTestDB(t)

	corpus, err := db.LoadCorpus(context.Background(), models.PredicateNotRejected)
	checkNoError(t, err)
	if corpus == nil || len(corpus) != 0 {
		t.Errorf("corpus = %#v, want empty non-nil slice", corpus)
	}
}
