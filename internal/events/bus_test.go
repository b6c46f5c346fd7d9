// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/reelcast/internal/config"
	"github.com/tomtom215/reelcast/internal/models"
)

func newTestBus(t *testing.T, backend string) *Bus {
	t.Helper()
	bus, err := NewBus(config.EventsConfig{Backend: backend, TopicPrefix: "test"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewBus(%s): %v", backend, err)
	}
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func TestTopic(t *testing.T) {
	bus := newTestBus(t, BackendNone)
	if got := bus.Topic(TopicModelBuilt); got != "test.model.built" {
		t.Errorf("Topic = %q", got)
	}
	bus.prefix = ""
	if got := bus.Topic(TopicModerationDecided); got != "moderation.decided" {
		t.Errorf("Topic without prefix = %q", got)
	}
}

func TestUnknownBackend(t *testing.T) {
	if _, err := NewBus(config.EventsConfig{Backend: "kafka"}, zerolog.Nop()); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestNoneBackend(t *testing.T) {
	bus := newTestBus(t, BackendNone)
	if err := bus.PublishModelBuilt(context.Background(), ModelBuilt{EventID: "e1"}); err != nil {
		t.Errorf("publish on none backend: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := bus.OnModelBuilt(ctx, func(context.Context, ModelBuilt) error { return nil }); err != nil {
		t.Errorf("OnModelBuilt = %v, want nil on cancel", err)
	}
}

// publishUntil republishes until the consumer has subscribed and seen an
// event; gochannel drops messages published before Subscribe.
func publishUntil(t *testing.T, publish func() error, got <-chan struct{}) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		if err := publish(); err != nil {
			t.Fatalf("publish: %v", err)
		}
		select {
		case <-got:
			return
		case <-deadline:
			t.Fatal("event not delivered")
		case <-tick.C:
		}
	}
}

func TestGoChannelModelBuilt(t *testing.T) {
	bus := newTestBus(t, BackendGoChannel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan ModelBuilt, 16)
	seen := make(chan struct{}, 16)
	done := make(chan error, 1)
	go func() {
		done <- bus.OnModelBuilt(ctx, func(_ context.Context, ev ModelBuilt) error {
			received <- ev
			seen <- struct{}{}
			return errors.New("handler errors are logged, not fatal")
		})
	}()

	want := ModelBuilt{
		EventID:      "evt-1",
		ArtifactName: "recommendation_model_20260301_030000.json.gz",
		BuiltAt:      time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC),
		CorpusSize:   42,
		Predicate:    models.PredicateNotRejected,
	}
	publishUntil(t, func() error { return bus.PublishModelBuilt(ctx, want) }, seen)

	got := <-received
	if got.ArtifactName != want.ArtifactName || got.CorpusSize != 42 || !got.BuiltAt.Equal(want.BuiltAt) {
		t.Errorf("received %+v, want %+v", got, want)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("OnModelBuilt returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop on cancel")
	}
}

func TestGoChannelModerationDecided(t *testing.T) {
	bus := newTestBus(t, BackendGoChannel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan ModerationDecided, 16)
	seen := make(chan struct{}, 16)
	go func() {
		_ = bus.OnModerationDecided(ctx, func(_ context.Context, ev ModerationDecided) error {
			received <- ev
			seen <- struct{}{}
			return nil
		})
	}()

	ev := NewModerationDecided(&models.ModerationDecision{
		Kind:   models.KindComment,
		ID:     "c1",
		Status: models.StatusRejected,
		Reason: "Comment classified as H with 91.00% confidence",
	})
	if ev.EventID == "" {
		t.Fatal("expected generated event id")
	}
	publishUntil(t, func() error { return bus.PublishModerationDecided(ctx, ev) }, seen)

	got := <-received
	if got.ContentID != "c1" || got.Status != models.StatusRejected || got.Kind != models.KindComment {
		t.Errorf("received %+v", got)
	}
}

func TestPublishAfterClose(t *testing.T) {
	bus := newTestBus(t, BackendGoChannel)
	if err := bus.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	err := bus.PublishModelBuilt(context.Background(), ModelBuilt{EventID: "x"})
	if !errors.Is(err, ErrBusClosed) {
		t.Errorf("err = %v, want ErrBusClosed", err)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := DecodeModelBuilt([]byte("{not json")); err == nil {
		t.Error("expected decode error")
	}
	if _, err := DecodeModerationDecided([]byte("[]")); err == nil {
		t.Error("expected decode error for array payload")
	}
}
