// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package recommend

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/reelcast/internal/events"
	"github.com/tomtom215/reelcast/internal/models"
	"github.com/tomtom215/reelcast/internal/recommend/storage"
)

// fakeSource returns a fixed corpus.
type fakeSource struct {
	corpus    []models.VideoRecord
	err       error
	predicate models.CorpusPredicate
}

func (f *fakeSource) LoadCorpus(_ context.Context, p models.CorpusPredicate) ([]models.VideoRecord, error) {
	f.predicate = p
	return f.corpus, f.err
}

// memLoader serves one artifact and counts loads.
type memLoader struct {
	mu       sync.Mutex
	artifact *storage.Artifact
	err      error
	calls    int
}

func (m *memLoader) LoadLatest(context.Context) (*storage.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.artifact == nil {
		return nil, storage.ErrArtifactNotFound
	}
	return m.artifact, nil
}

func (m *memLoader) set(a *storage.Artifact, err error) {
	m.mu.Lock()
	m.artifact, m.err = a, err
	m.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.ModelBuilt
}

func (r *recordingPublisher) PublishModelBuilt(_ context.Context, ev events.ModelBuilt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

var buildTime = time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)

func video(id, category string, likes, comments, views int64) models.VideoRecord {
	return models.VideoRecord{
		VideoID:  id,
		UserID:   "owner-" + id,
		Title:    "title " + id,
		Category: category,
		Likes:    likes,
		Comments: comments,
		Views:    views,
	}
}

func mustBuild(t *testing.T, corpus ...models.VideoRecord) *storage.Artifact {
	t.Helper()
	a, err := Build(corpus, DefaultConfig(), buildTime)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return a
}

func recIDs(recs []models.Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.VideoID
	}
	return out
}

func scoredIDs(recs []models.ScoredRecommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.VideoID
	}
	return out
}

func equalIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
