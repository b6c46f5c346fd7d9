// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package recommend

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/reelcast/internal/events"
	"github.com/tomtom215/reelcast/internal/models"
)

type fakeHistory struct {
	stored    []string
	hasStored bool
	storedErr error
	recent    []string
	since     time.Time
	viewed    []string
}

func (f *fakeHistory) StoredPreferences(context.Context, string) ([]string, bool, error) {
	return f.stored, f.hasStored, f.storedErr
}

func (f *fakeHistory) RecentCategories(_ context.Context, _ string, since time.Time) ([]string, error) {
	f.since = since
	return f.recent, nil
}

func (f *fakeHistory) ViewedVideoIDs(context.Context, string) ([]string, error) {
	return f.viewed, nil
}

func newUserRecommender(t *testing.T, history UserHistory, explore int) *UserRecommender {
	t.Helper()
	loader := &memLoader{artifact: mustBuild(t,
		video("v1", "Gaming", 10, 0, 0),
		video("v2", "Gaming", 5, 0, 0),
		video("v3", "Cooking", 8, 0, 0),
		video("v4", "Music", 1, 0, 0),
		video("v5", "News", 0, 0, 0),
	)}
	cfg := DefaultConfig()
	cfg.ExploreCount = explore
	u := NewUserRecommender(cfg, NewScorer(cfg, loader, zerolog.Nop()), history, 42, zerolog.Nop())
	u.now = func() time.Time { return time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC) }
	return u
}

func TestForUserStoredPreferences(t *testing.T) {
	h := &fakeHistory{stored: []string{"Gaming"}, hasStored: true, recent: []string{"Cooking"}, viewed: []string{"v1", "v3"}}
	u := newUserRecommender(t, h, 0)

	got := u.ForUser(context.Background(), "u1", "", 8)
	if !equalIDs(recIDs(got), []string{"v2"}) {
		t.Errorf("ForUser = %v, want [v2]", recIDs(got))
	}
	if !h.since.IsZero() {
		t.Error("recent categories should not be read when preferences are stored")
	}
}

func TestForUserFallsBackToRecentCategories(t *testing.T) {
	h := &fakeHistory{recent: []string{"Cooking"}, storedErr: errors.New("bad json")}
	u := newUserRecommender(t, h, 0)

	got := u.ForUser(context.Background(), "u1", "", 8)
	if !equalIDs(recIDs(got), []string{"v3"}) {
		t.Errorf("ForUser = %v, want [v3]", recIDs(got))
	}
	if want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC); !h.since.Equal(want) {
		t.Errorf("since = %v, want %v", h.since, want)
	}
}

func TestForUserKeepsCurrentVideo(t *testing.T) {
	h := &fakeHistory{stored: []string{"gaming"}, hasStored: true, viewed: []string{"v1", "v2"}}
	u := newUserRecommender(t, h, 0)

	got := u.ForUser(context.Background(), "u1", "v1", 8)
	if !equalIDs(recIDs(got), []string{"v1"}) {
		t.Errorf("ForUser = %v, want [v1]", recIDs(got))
	}
}

func TestForUserExplore(t *testing.T) {
	h := &fakeHistory{stored: []string{"Gaming"}, hasStored: true, viewed: []string{"v5"}}
	u := newUserRecommender(t, h, 2)

	got := u.ForUser(context.Background(), "u1", "", 8)
	if len(got) != 4 {
		t.Fatalf("ForUser = %v, want 2 ranked + 2 explore", recIDs(got))
	}
	if !equalIDs(recIDs(got[:2]), []string{"v1", "v2"}) {
		t.Errorf("ranked part = %v", recIDs(got[:2]))
	}
	seen := map[string]bool{}
	for _, r := range got {
		if seen[r.VideoID] {
			t.Errorf("duplicate %s", r.VideoID)
		}
		seen[r.VideoID] = true
		if r.VideoID == "v5" {
			t.Error("explore returned a viewed video")
		}
	}
}

func TestForUserExploreSkipsRejectedVideos(t *testing.T) {
	h := &fakeHistory{stored: []string{"Gaming"}, hasStored: true}
	for seed := uint64(0); seed < 20; seed++ {
		u := newUserRecommender(t, h, 2)
		u.rng = rand.New(rand.NewPCG(seed, seed))
		for _, id := range []string{"v3", "v4", "v5"} {
			if err := u.scorer.HandleModerationDecided(context.Background(), events.ModerationDecided{
				Kind: models.KindVideo, ContentID: id, Status: models.StatusRejected,
			}); err != nil {
				t.Fatalf("HandleModerationDecided: %v", err)
			}
		}

		got := u.ForUser(context.Background(), "u1", "", 8)
		if !equalIDs(recIDs(got), []string{"v1", "v2"}) {
			t.Fatalf("seed %d: ForUser = %v, want [v1 v2] with nothing left to explore", seed, recIDs(got))
		}
	}
}
