// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/tomtom215/reelcast/internal/config"
)

// Layer names one child supervisor of the tree.
type Layer string

const (
	// LayerWork runs the scheduler.
	LayerWork Layer = "work"
	// LayerMessaging runs event bus listeners.
	LayerMessaging Layer = "messaging"
	// LayerAPI runs the ops HTTP server.
	LayerAPI Layer = "api"
)

// Layers lists every layer in start order.
var Layers = []Layer{LayerWork, LayerMessaging, LayerAPI}

// TreeConfig holds the restart policy shared by every supervisor in the tree.
type TreeConfig struct {
	FailureThreshold float64       // failures before backoff; default 5
	FailureDecay     float64       // seconds for the failure count to decay; default 30
	FailureBackoff   time.Duration // default 15s
	ShutdownTimeout  time.Duration // default 10s
}

// TreeConfigFrom maps the supervisor config section.
func TreeConfigFrom(cfg *config.SupervisorConfig) TreeConfig {
	return TreeConfig{
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		ShutdownTimeout:  cfg.ShutdownTimeout,
	}
}

// DefaultTreeConfig returns suture's own defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// withDefaults fills zero fields from DefaultTreeConfig.
func (c TreeConfig) withDefaults() TreeConfig {
	d := DefaultTreeConfig()
	if c.FailureThreshold == 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.FailureDecay == 0 {
		c.FailureDecay = d.FailureDecay
	}
	if c.FailureBackoff == 0 {
		c.FailureBackoff = d.FailureBackoff
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	return c
}

func (c TreeConfig) spec(hook suture.EventHook) suture.Spec {
	return suture.Spec{
		EventHook:        hook,
		FailureThreshold: c.FailureThreshold,
		FailureDecay:     c.FailureDecay,
		FailureBackoff:   c.FailureBackoff,
		Timeout:          c.ShutdownTimeout,
	}
}

// ServiceEntry describes one service added to the tree.
type ServiceEntry struct {
	Layer Layer  `json:"layer"`
	Name  string `json:"name"`

	token suture.ServiceToken
}

// Tree is the worker's supervisor hierarchy. Each layer is its own
// supervisor under the root "reelcast", so a crash loop in one layer never
// restarts another.
type Tree struct {
	root   *suture.Supervisor
	layers map[Layer]*suture.Supervisor
	logger *slog.Logger
	config TreeConfig

	mu       sync.Mutex
	services []ServiceEntry
}

// NewTree builds the root and one child supervisor per layer.
func NewTree(logger *slog.Logger, cfg TreeConfig) *Tree {
	cfg = cfg.withDefaults()

	// MustHook has a pointer receiver.
	handler := &sutureslog.Handler{Logger: logger}
	root := suture.New("reelcast", cfg.spec(handler.MustHook()))

	// Children inherit the EventHook when added to the root.
	layers := make(map[Layer]*suture.Supervisor, len(Layers))
	for _, l := range Layers {
		child := suture.New(string(l)+"-layer", cfg.spec(nil))
		root.Add(child)
		layers[l] = child
	}

	return &Tree{root: root, layers: layers, logger: logger, config: cfg}
}

// Add starts svc under layer once the tree is serving.
func (t *Tree) Add(layer Layer, svc suture.Service) (suture.ServiceToken, error) {
	sup, ok := t.layers[layer]
	if !ok {
		return suture.ServiceToken{}, fmt.Errorf("supervisor: unknown layer %q", layer)
	}
	token := sup.Add(svc)

	t.mu.Lock()
	t.services = append(t.services, ServiceEntry{Layer: layer, Name: serviceName(svc), token: token})
	t.mu.Unlock()
	return token, nil
}

// Remove stops and forgets a service added with Add.
func (t *Tree) Remove(token suture.ServiceToken) error {
	entry, ok := t.lookup(token)
	if !ok {
		return fmt.Errorf("supervisor: unknown service token")
	}
	if err := t.layers[entry.Layer].Remove(token); err != nil {
		return fmt.Errorf("supervisor: remove %s: %w", entry.Name, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.services {
		if t.services[i].token == token {
			t.services = append(t.services[:i], t.services[i+1:]...)
			break
		}
	}
	return nil
}

func (t *Tree) lookup(token suture.ServiceToken) (ServiceEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.services {
		if e.token == token {
			return e, true
		}
	}
	return ServiceEntry{}, false
}

// Services lists the added services in layer order, then insertion order.
func (t *Tree) Services() []ServiceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ServiceEntry, 0, len(t.services))
	for _, l := range Layers {
		for _, e := range t.services {
			if e.Layer == l {
				out = append(out, e)
			}
		}
	}
	return out
}

// Serve runs the tree until ctx is canceled.
func (t *Tree) Serve(ctx context.Context) error {
	t.logServices()
	return t.root.Serve(ctx)
}

// ServeBackground runs the tree in a goroutine. The channel receives the
// root's exit error once it stops.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	t.logServices()
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that outlived the shutdown timeout.
func (t *Tree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}

func (t *Tree) logServices() {
	for _, e := range t.Services() {
		t.logger.Info("supervising service", "layer", string(e.Layer), "service", e.Name)
	}
}

func serviceName(svc suture.Service) string {
	if s, ok := svc.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", svc)
}
