// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

// Package main is the Reelcast background worker.
//
// The worker keeps the recommendation model fresh and moderates new
// content. It initializes components in this order:
//
//  1. Configuration: koanf layers (defaults, YAML, environment)
//  2. Logging: zerolog, JSON or console
//  3. Database: MySQL in production, DuckDB for development
//  4. Model store: gzip JSON artifacts under MODEL_DIR
//  5. Event bus: in-process gochannel or NATS
//  6. Recommendation builder and scorer
//  7. Classifiers: Ollama for comments, Video Intelligence for videos
//  8. Preference refresher
//  9. Scheduler and supervisor tree (scheduler, event listeners, ops HTTP)
//
// # Tasks
//
//	rebuild_model        0 3 * * *     rebuild the similarity model
//	moderate_comments    */5 * * * *   sweep pending comments
//	moderate_videos      */10 * * * *  sweep pending videos
//	refresh_preferences  0 4 * * *     recompute users.preferences
//
// Every task also runs once at start.
//
// # Flags
//
//	-config path       YAML config file (default: CONFIG_PATH or ./config.yaml)
//	-once              run every task once and exit; non-zero on any failure
//	-recommend-user id print recommendations for a user and exit
//	-video id          the video the user is watching, for -recommend-user
//	-n count           number of recommendations, for -recommend-user
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. The running task finishes
// its current item, the ops server drains, and the event bus and database
// are closed.
package main
