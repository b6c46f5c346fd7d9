// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/reelcast/internal/models"
)

// interactionStatsQuery counts recent engagement per (user, category). Users
// without a matching interaction after the cutoff are not returned.
const interactionStatsQuery = `
SELECT
	u.user_id,
	u.username,
	COALESCE(v.category, '') AS category,
	COUNT(DISTINCT CASE WHEN i.interaction_type = 'view' THEN i.interaction_id END) AS total_views,
	COUNT(DISTINCT CASE WHEN i.interaction_type = 'like' THEN i.interaction_id END) AS total_likes,
	COUNT(DISTINCT c.comment_id) AS total_comments
FROM users u
INNER JOIN user_video_interactions i ON u.user_id = i.user_id
INNER JOIN videos v ON i.video_id = v.video_id
LEFT JOIN comments c ON v.video_id = c.video_id AND c.user_id = u.user_id
WHERE i.interaction_timestamp >= ?
GROUP BY u.user_id, u.username, v.category
ORDER BY u.user_id, (COUNT(DISTINCT CASE WHEN i.interaction_type = 'view' THEN i.interaction_id END)
	+ COUNT(DISTINCT CASE WHEN i.interaction_type = 'like' THEN i.interaction_id END)
	+ COUNT(DISTINCT c.comment_id)) DESC, category`

// InteractionStats returns per-category engagement for every user active
// since the cutoff, ordered by user and then by total engagement.
func (db *DB) InteractionStats(ctx context.Context, since time.Time) ([]models.CategoryStat, error) {
	stats, err := QueryRows(ctx, db, "interaction_stats", interactionStatsQuery, func(rows *sql.Rows) (models.CategoryStat, error) {
		var s models.CategoryStat
		err := rows.Scan(&s.UserID, &s.Username, &s.Category, &s.Views, &s.Likes, &s.Comments)
		return s, err
	}, since.UTC())
	if err != nil {
		return nil, err
	}

	out := stats[:0]
	for _, s := range stats {
		if s.Total() > 0 {
			out = append(out, s)
		}
	}
	return out, nil
}

// UpdatePreferences stores the preference document for one user.
func (db *DB) UpdatePreferences(ctx context.Context, userID string, prefs models.Preferences) error {
	doc, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	res, err := db.Execute(ctx, "UPDATE users SET preferences = ? WHERE user_id = ?", string(doc), userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("user %s not found", userID)
	}
	return nil
}

// StoredPreferences returns the categories saved for a user. A user with no
// document, or an unreadable one, yields an empty slice and ok=false.
func (db *DB) StoredPreferences(ctx context.Context, userID string) (categories []string, ok bool, err error) {
	var raw sql.NullString
	err = db.Query(ctx, "SELECT preferences FROM users WHERE user_id = ?", func(rows *sql.Rows) error {
		return rows.Scan(&raw)
	}, userID)
	if err != nil {
		return nil, false, err
	}
	if !raw.Valid || raw.String == "" {
		return nil, false, nil
	}

	var prefs models.Preferences
	if err := json.Unmarshal([]byte(raw.String), &prefs); err != nil {
		return nil, false, nil
	}
	return prefs.Categories, true, nil
}

// RecentCategories returns the distinct categories a user interacted with
// since the cutoff. It is the fallback when no preferences are stored.
func (db *DB) RecentCategories(ctx context.Context, userID string, since time.Time) ([]string, error) {
	return QueryRows(ctx, db, "recent_categories", `
		SELECT DISTINCT COALESCE(v.category, '')
		FROM user_video_interactions i
		JOIN videos v ON i.video_id = v.video_id
		WHERE i.user_id = ? AND i.interaction_timestamp >= ?
		ORDER BY 1`,
		scanString, userID, since.UTC())
}

// ViewedVideoIDs returns every video the user has interacted with.
func (db *DB) ViewedVideoIDs(ctx context.Context, userID string) ([]string, error) {
	return QueryRows(ctx, db, "viewed_videos", `
		SELECT DISTINCT video_id
		FROM user_video_interactions
		WHERE user_id = ?
		ORDER BY video_id`,
		scanString, userID)
}

func scanString(rows *sql.Rows) (string, error) {
	var s string
	err := rows.Scan(&s)
	return s, err
}
