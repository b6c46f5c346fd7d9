// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

//go:build integration

package database

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/reelcast/internal/models"
	"github.com/tomtom215/reelcast/internal/testinfra"
)

func TestMySQLCorpusAndModeration(t *testing.T) {
	testinfra.SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	container, err := testinfra.NewMySQLContainer(ctx)
	if err != nil {
		t.Fatalf("start mysql: %v", err)
	}
	defer testinfra.CleanupContainer(t, ctx, container)

	cfg := testConfig()
	cfg.Driver = "mysql"
	cfg.DSN = container.DSN
	cfg.RetryDelay = time.Second

	db, err := Open(ctx, cfg, zerolog.Nop())
	checkNoError(t, err)
	defer func() { _ = db.Close() }()

	checkNoError(t, db.InitSchema(ctx))
	seedCorpus(t, db)

	corpus, err := db.LoadCorpus(ctx, models.PredicateNotRejected)
	checkNoError(t, err)
	if len(corpus) != 3 || corpus[0].VideoID != "v1" || corpus[0].Views != 3 {
		t.Errorf("corpus = %+v", corpus)
	}

	pending, err := db.PendingItems(ctx, models.KindComment)
	checkNoError(t, err)
	if len(pending) != 3 {
		t.Fatalf("pending comments = %d, want 3", len(pending))
	}

	checkNoError(t, db.ApplyDecision(ctx, &models.ModerationDecision{
		Kind:   models.KindComment,
		ID:     pending[0].ID,
		Status: models.StatusRejected,
		Reason: "Comment classified as H with 88.00% confidence",
		Labels: map[string]float64{"H": 0.88, "OK": 0.12},
	}))
	assertHistoryCount(t, db, pending[0].ID, 1)
}
