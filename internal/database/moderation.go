// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/reelcast/internal/models"
)

// ErrNotPending is returned by ApplyDecision when the row left the pending
// state (manual override, deletion) between listing and write-back.
var ErrNotPending = errors.New("database: item is no longer pending")

const pendingCommentsQuery = `
SELECT comment_id, COALESCE(content, '')
FROM comments
WHERE moderation_status = 'pending'
ORDER BY created_at, comment_id`

const pendingVideosQuery = `
SELECT video_id, COALESCE(title, ''), video_data IS NOT NULL
FROM videos
WHERE moderation_status = 'pending'
ORDER BY created_at, video_id`

// PendingItems lists every pending row of kind.
func (db *DB) PendingItems(ctx context.Context, kind models.ContentKind) ([]models.PendingItem, error) {
	switch kind {
	case models.KindComment:
		return QueryRows(ctx, db, "pending_comments", pendingCommentsQuery, func(rows *sql.Rows) (models.PendingItem, error) {
			item := models.PendingItem{Kind: models.KindComment}
			err := rows.Scan(&item.ID, &item.Text)
			return item, err
		})
	case models.KindVideo:
		return QueryRows(ctx, db, "pending_videos", pendingVideosQuery, func(rows *sql.Rows) (models.PendingItem, error) {
			item := models.PendingItem{Kind: models.KindVideo}
			err := rows.Scan(&item.ID, &item.Title, &item.HasMedia)
			return item, err
		})
	default:
		return nil, fmt.Errorf("unknown content kind %q", kind)
	}
}

// VideoData returns the stored bytes of one video, or nil when none are stored.
func (db *DB) VideoData(ctx context.Context, videoID string) ([]byte, error) {
	var data []byte
	found := false
	err := db.Query(ctx, "SELECT video_data FROM videos WHERE video_id = ?", func(rows *sql.Rows) error {
		found = true
		return rows.Scan(&data)
	}, videoID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("video %s not found", videoID)
	}
	return data, nil
}

// ApplyDecision writes the status and reason of one item and appends a
// moderation_history row in the same transaction. Only pending rows are
// updated; otherwise ErrNotPending is returned and nothing is written.
func (db *DB) ApplyDecision(ctx context.Context, d *models.ModerationDecision) error {
	if !d.Status.Terminal() {
		return fmt.Errorf("decision for %s %s has non-terminal status %q", d.Kind, d.ID, d.Status)
	}

	var (
		update string
		args   []any
	)
	switch d.Kind {
	case models.KindComment:
		labels, err := encodeLabels(d.Labels)
		if err != nil {
			return err
		}
		var score any
		if d.Score != nil {
			score = *d.Score
		}
		update = `UPDATE comments
			SET moderation_status = ?, moderation_reason = ?, moderation_score = ?, moderation_labels = ?
			WHERE comment_id = ? AND moderation_status = 'pending'`
		args = []any{string(d.Status), d.Reason, score, labels, d.ID}
	case models.KindVideo:
		update = `UPDATE videos
			SET moderation_status = ?, moderation_reason = ?
			WHERE video_id = ? AND moderation_status = 'pending'`
		args = []any{string(d.Status), d.Reason, d.ID}
	default:
		return fmt.Errorf("unknown content kind %q", d.Kind)
	}

	decidedAt := d.DecidedAt
	if decidedAt.IsZero() {
		decidedAt = time.Now()
	}

	var notPending bool
	err := db.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		notPending = false
		res, err := tx.ExecContext(ctx, update, args...)
		if err != nil {
			return fmt.Errorf("failed to update %s %s: %w", d.Kind, d.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			notPending = true
			return nil
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO moderation_history
			(history_id, content_type, content_id, moderation_action, action_timestamp, moderation_reason, automated)
			VALUES (?, ?, ?, ?, ?, ?, TRUE)`,
			uuid.NewString(), string(d.Kind), d.ID, d.Status.Action(), decidedAt.UTC(), d.Reason)
		if err != nil {
			return fmt.Errorf("failed to record moderation history: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if notPending {
		return fmt.Errorf("%w: %s %s", ErrNotPending, d.Kind, d.ID)
	}
	return nil
}

func encodeLabels(labels map[string]float64) (any, error) {
	if labels == nil {
		return nil, nil
	}
	b, err := json.Marshal(labels)
	if err != nil {
		return nil, fmt.Errorf("failed to encode moderation labels: %w", err)
	}
	return string(b), nil
}
