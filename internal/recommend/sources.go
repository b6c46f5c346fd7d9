// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package recommend

import (
	"context"
	"time"

	"github.com/tomtom215/reelcast/internal/events"
	"github.com/tomtom215/reelcast/internal/models"
	"github.com/tomtom215/reelcast/internal/recommend/storage"
)

// The interfaces below keep this package free of a database dependency.
// *database.DB, *storage.Store and *events.Bus satisfy them.

// CorpusSource loads the video corpus.
type CorpusSource interface {
	LoadCorpus(ctx context.Context, predicate models.CorpusPredicate) ([]models.VideoRecord, error)
}

// ArtifactSaver persists and rotates artifacts.
type ArtifactSaver interface {
	Save(ctx context.Context, a *storage.Artifact) (storage.ArtifactInfo, error)
	Prune(ctx context.Context, keep int) (int, error)
}

// ArtifactLoader returns the newest artifact.
type ArtifactLoader interface {
	LoadLatest(ctx context.Context) (*storage.Artifact, error)
}

// BuildPublisher announces finished builds.
type BuildPublisher interface {
	PublishModelBuilt(ctx context.Context, ev events.ModelBuilt) error
}

// UserHistory provides the per-user signals used by ForUser.
type UserHistory interface {
	StoredPreferences(ctx context.Context, userID string) ([]string, bool, error)
	RecentCategories(ctx context.Context, userID string, since time.Time) ([]string, error)
	ViewedVideoIDs(ctx context.Context, userID string) ([]string, error)
}
