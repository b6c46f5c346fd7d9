// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/reelcast/internal/models"
)

func TestPendingItems(t *testing.T) {
	db, _, _ := setupTestDB(t)
	mustExec(t, db,
		`INSERT INTO comments (comment_id, video_id, user_id, content, moderation_status, created_at) VALUES
			('c1', 'v1', 'u1', 'first', 'pending', TIMESTAMP '2026-01-01 10:00:00'),
			('c2', 'v1', 'u1', 'second', 'approved', TIMESTAMP '2026-01-01 10:01:00'),
			('c3', 'v1', 'u1', NULL, 'pending', TIMESTAMP '2026-01-01 10:02:00')`,
		`INSERT INTO videos (video_id, user_id, title, video_data, moderation_status) VALUES
			('v1', 'u1', 'with bytes', '\xAA\xBB'::BLOB, 'pending'),
			('v2', 'u1', 'no bytes', NULL, 'pending'),
			('v3', 'u1', 'done', NULL, 'rejected')`,
	)

	comments, err := db.PendingItems(context.Background(), models.KindComment)
	checkNoError(t, err)
	if len(comments) != 2 || comments[0].ID != "c1" || comments[0].Text != "first" || comments[1].Text != "" {
		t.Errorf("comments = %+v", comments)
	}

	videos, err := db.PendingItems(context.Background(), models.KindVideo)
	checkNoError(t, err)
	if len(videos) != 2 {
		t.Fatalf("videos = %+v, want 2", videos)
	}
	media := map[string]bool{}
	for _, v := range videos {
		media[v.ID] = v.HasMedia
	}
	if !media["v1"] || media["v2"] {
		t.Errorf("HasMedia = %v, want v1 only", media)
	}

	data, err := db.VideoData(context.Background(), "v1")
	checkNoError(t, err)
	if len(data) != 2 || data[0] != 0xAA {
		t.Errorf("VideoData = %x", data)
	}
	data, err = db.VideoData(context.Background(), "v2")
	checkNoError(t, err)
	if data != nil {
		t.Errorf("VideoData(v2) = %x, want nil", data)
	}
}

func TestApplyDecisionComment(t *testing.T) {
	db, _, _ := setupTestDB(t)
	mustExec(t, db, `INSERT INTO comments (comment_id, video_id, user_id, content) VALUES ('c1', 'v1', 'u1', 'hello')`)

	score := 0.93
	d := &models.ModerationDecision{
		Kind:      models.KindComment,
		ID:        "c1",
		Status:    models.StatusApproved,
		Reason:    "Comment classified as OK with 93.00% confidence",
		Score:     &score,
		Labels:    map[string]float64{"OK": 0.93, "H": 0.07},
		DecidedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	checkNoError(t, db.ApplyDecision(context.Background(), d))

	var (
		status, reason, labels string
		gotScore               float64
	)
	checkNoError(t, db.Query(context.Background(),
		"SELECT moderation_status, moderation_reason, moderation_score, moderation_labels FROM comments WHERE comment_id = 'c1'",
		func(rows *sql.Rows) error { return rows.Scan(&status, &reason, &gotScore, &labels) }))

	if status != "approved" || reason != d.Reason || gotScore != score {
		t.Errorf("row = (%s, %s, %v)", status, reason, gotScore)
	}
	var decoded map[string]float64
	checkNoError(t, json.Unmarshal([]byte(labels), &decoded))
	if decoded["OK"] != 0.93 {
		t.Errorf("labels = %v", decoded)
	}

	var action, contentType string
	var automated bool
	checkNoError(t, db.Query(context.Background(),
		"SELECT moderation_action, content_type, automated FROM moderation_history WHERE content_id = 'c1'",
		func(rows *sql.Rows) error { return rows.Scan(&action, &contentType, &automated) }))
	if action != "approve" || contentType != "comment" || !automated {
		t.Errorf("history = (%s, %s, %v)", action, contentType, automated)
	}

	err := db.ApplyDecision(context.Background(), d)
	if !errors.Is(err, ErrNotPending) {
		t.Errorf("second ApplyDecision err = %v, want ErrNotPending", err)
	}
	assertHistoryCount(t, db, "c1", 1)
}

func TestApplyDecisionVideo(t *testing.T) {
	db, _, _ := setupTestDB(t)
	mustExec(t, db, `INSERT INTO videos (video_id, user_id, title) VALUES ('v1', 'u1', 'clip')`)

	checkNoError(t, db.ApplyDecision(context.Background(), &models.ModerationDecision{
		Kind:   models.KindVideo,
		ID:     "v1",
		Status: models.StatusRejected,
		Reason: "Explicit content detected",
	}))

	var status string
	checkNoError(t, db.Query(context.Background(), "SELECT moderation_status FROM videos WHERE video_id = 'v1'",
		func(rows *sql.Rows) error { return rows.Scan(&status) }))
	if status != "rejected" {
		t.Errorf("status = %s, want rejected", status)
	}
	assertHistoryCount(t, db, "v1", 1)
}

func TestApplyDecisionRejectsPendingStatus(t *testing.T) {
	db, _, _ := setupTestDB(t)
	err := db.ApplyDecision(context.Background(), &models.ModerationDecision{
		Kind: models.KindComment, ID: "c1", Status: models.StatusPending,
	})
	if err == nil {
		t.Error("expected error for non-terminal status")
	}
}

func assertHistoryCount(t *testing.T, db *DB, id string, want int) {
	t.Helper()
	var n int
	checkNoError(t, db.Query(context.Background(), "SELECT COUNT(*) FROM moderation_history WHERE content_id = ?",
		func(rows *sql.Rows) error { return rows.Scan(&n) }, id))
	if n != want {
		t.Errorf("history rows for %s = %d, want %d", id, n, want)
	}
}
