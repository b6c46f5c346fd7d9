// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// schemaStatements are the tables the worker reads and writes. The API
// service owns the production schema; these exist for development
// databases and tests. {{BLOB}} is replaced per driver.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id VARCHAR(64) PRIMARY KEY,
		username VARCHAR(255) NOT NULL,
		email VARCHAR(255),
		preferences TEXT,
		is_active BOOLEAN DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS videos (
		video_id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		title VARCHAR(255),
		description TEXT,
		video_data {{BLOB}},
		category VARCHAR(512),
		is_active BOOLEAN DEFAULT TRUE,
		moderation_status VARCHAR(16) DEFAULT 'pending',
		moderation_reason TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		comment_id VARCHAR(64) PRIMARY KEY,
		video_id VARCHAR(64) NOT NULL,
		user_id VARCHAR(64) NOT NULL,
		content TEXT,
		is_active BOOLEAN DEFAULT TRUE,
		moderation_status VARCHAR(16) DEFAULT 'pending',
		moderation_score DOUBLE,
		moderation_labels TEXT,
		moderation_reason TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS likes (
		like_id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		video_id VARCHAR(64) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS user_video_interactions (
		interaction_id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		video_id VARCHAR(64) NOT NULL,
		interaction_type VARCHAR(32) NOT NULL,
		interaction_timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		watch_duration INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS moderation_history (
		history_id VARCHAR(64) PRIMARY KEY,
		content_type VARCHAR(16) NOT NULL,
		content_id VARCHAR(64) NOT NULL,
		moderation_action VARCHAR(16) NOT NULL,
		action_timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		moderation_reason TEXT,
		automated BOOLEAN DEFAULT TRUE
	)`,
}

func blobType(driver string) string {
	if driver == "mysql" {
		return "LONGBLOB"
	}
	return "BLOB"
}

// InitSchema creates missing tables. Existing tables are left untouched.
func (db *DB) InitSchema(ctx context.Context) error {
	blob := blobType(db.cfg.Driver)
	return db.withRetry(ctx, "init_schema", func(ctx context.Context, conn *sql.DB) error {
		for _, stmt := range schemaStatements {
			if _, err := conn.ExecContext(ctx, strings.ReplaceAll(stmt, "{{BLOB}}", blob)); err != nil {
				return fmt.Errorf("failed to create schema: %w", err)
			}
		}
		return nil
	})
}
