// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomtom215/reelcast/internal/models"
)

const corpusQuery = `
SELECT
	v.video_id,
	v.user_id,
	COALESCE(v.title, '') AS title,
	COALESCE(v.category, '') AS category,
	COUNT(DISTINCT l.like_id) AS likes,
	COUNT(DISTINCT c.comment_id) AS comments,
	COUNT(DISTINCT i.interaction_id) AS views
FROM videos v
LEFT JOIN likes l ON l.video_id = v.video_id
LEFT JOIN comments c ON c.video_id = v.video_id
LEFT JOIN user_video_interactions i
	ON i.video_id = v.video_id AND i.interaction_type = 'view'
WHERE %s
GROUP BY v.video_id, v.user_id, v.title, v.category
ORDER BY v.video_id`

// corpusWhere returns the inclusion predicate for the corpus query.
func corpusWhere(p models.CorpusPredicate) (string, error) {
	switch p {
	case models.PredicateActive:
		return "v.is_active = TRUE", nil
	case models.PredicateNotRejected, "":
		return "COALESCE(v.moderation_status, 'pending') <> 'rejected'", nil
	default:
		return "", fmt.Errorf("unknown corpus predicate %q", p)
	}
}

// LoadCorpus returns one record per eligible video with its engagement
// counters. An empty corpus is a valid empty slice. Videos with no
// category are kept with an empty string.
func (db *DB) LoadCorpus(ctx context.Context, predicate models.CorpusPredicate) ([]models.VideoRecord, error) {
	where, err := corpusWhere(predicate)
	if err != nil {
		return nil, err
	}

	return QueryRows(ctx, db, "load_corpus", fmt.Sprintf(corpusQuery, where), func(rows *sql.Rows) (models.VideoRecord, error) {
		var v models.VideoRecord
		err := rows.Scan(&v.VideoID, &v.UserID, &v.Title, &v.Category, &v.Likes, &v.Comments, &v.Views)
		return v, err
	})
}
