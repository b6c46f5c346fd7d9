// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package events

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/rs/zerolog"

	"github.com/tomtom215/reelcast/internal/config"
	"github.com/tomtom215/reelcast/internal/models"
)

// startNATS runs an in-process core NATS server on a random port.
func startNATS(t *testing.T) string {
	t.Helper()
	ns, err := server.NewServer(&server.Options{
		ServerName: "reelcast-test",
		Host:       "127.0.0.1",
		Port:       server.RANDOM_PORT,
		NoLog:      true,
		NoSigs:     true,
	})
	if err != nil {
		t.Fatalf("create NATS server: %v", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		t.Fatal("NATS server not ready within timeout")
	}
	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})
	return ns.ClientURL()
}

func newNATSBus(t *testing.T, url string) *Bus {
	t.Helper()
	bus, err := NewBus(config.EventsConfig{Backend: BackendNATS, NATSURL: url, TopicPrefix: "reelcast"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewBus(nats): %v", err)
	}
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

// TestNATSModelBuiltFanOut publishes from one worker's bus and checks that
// every other worker's bus receives the event.
func TestNATSModelBuiltFanOut(t *testing.T) {
	url := startNATS(t)
	builder := newNATSBus(t, url)
	if builder.Backend() != BackendNATS {
		t.Fatalf("Backend = %q", builder.Backend())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type delivery struct {
		worker int
		ev     ModelBuilt
	}
	received := make(chan delivery, 64)
	seen := make(chan struct{}, 64)
	done := make(chan error, 2)
	for w := 0; w < 2; w++ {
		consumer := newNATSBus(t, url)
		go func(worker int) {
			done <- consumer.OnModelBuilt(ctx, func(_ context.Context, ev ModelBuilt) error {
				received <- delivery{worker: worker, ev: ev}
				select {
				case seen <- struct{}{}:
				default:
				}
				return nil
			})
		}(w)
	}

	want := ModelBuilt{
		EventID:      "evt-nats",
		ArtifactName: "recommendation_model_20260301_030000.json.gz",
		BuiltAt:      time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC),
		CorpusSize:   7,
		Predicate:    models.PredicateNotRejected,
	}

	workers := map[int]bool{}
	deadline := time.After(5 * time.Second)
	for len(workers) < 2 {
		publishUntil(t, func() error { return builder.PublishModelBuilt(ctx, want) }, seen)
		for drained := false; !drained; {
			select {
			case d := <-received:
				if d.ev.ArtifactName != want.ArtifactName || d.ev.CorpusSize != 7 || !d.ev.BuiltAt.Equal(want.BuiltAt) {
					t.Fatalf("worker %d received %+v, want %+v", d.worker, d.ev, want)
				}
				workers[d.worker] = true
			case <-deadline:
				t.Fatalf("only workers %v received model.built", workers)
			default:
				drained = true
			}
		}
	}

	cancel()
	for i := 0; i < 2; i++ {
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("OnModelBuilt returned %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("NATS consumer did not stop on cancel")
		}
	}
}

func TestNATSModerationDecided(t *testing.T) {
	bus := newNATSBus(t, startNATS(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan ModerationDecided, 64)
	seen := make(chan struct{}, 64)
	go func() {
		_ = bus.OnModerationDecided(ctx, func(_ context.Context, ev ModerationDecided) error {
			received <- ev
			select {
			case seen <- struct{}{}:
			default:
			}
			return nil
		})
	}()

	ev := NewModerationDecided(&models.ModerationDecision{
		Kind:      models.KindVideo,
		ID:        "v9",
		Status:    models.StatusRejected,
		Reason:    "Explicit content detected in 2 of 3 frames, first at 1s",
		DecidedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	publishUntil(t, func() error { return bus.PublishModerationDecided(ctx, ev) }, seen)

	got := <-received
	if got.ContentID != "v9" || got.Kind != models.KindVideo || got.Status != models.StatusRejected || !got.DecidedAt.Equal(ev.DecidedAt) {
		t.Errorf("received %+v, want %+v", got, ev)
	}
}
