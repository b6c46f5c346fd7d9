// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/reelcast/internal/recommend"
	"github.com/tomtom215/reelcast/internal/recommend/storage"
	"github.com/tomtom215/reelcast/internal/scheduler"
)

// Pinger reports database reachability. *database.DB implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BuildStatusSource is implemented by *recommend.Builder.
type BuildStatusSource interface {
	Status() recommend.BuildStatus
}

// TaskStatusSource is implemented by *scheduler.Scheduler.
type TaskStatusSource interface {
	Status() []scheduler.TaskStatus
}

// ArtifactLister is implemented by *storage.Store.
type ArtifactLister interface {
	List(ctx context.Context) ([]storage.ArtifactInfo, error)
}

// Deps are the components the handlers report on. Nil members are
// omitted from /status; a nil DB makes /readyz always ready.
type Deps struct {
	DB        Pinger
	Builder   BuildStatusSource
	Scheduler TaskStatusSource
	Artifacts ArtifactLister
	Events    string
}

// Handler serves the ops endpoints.
type Handler struct {
	deps         Deps
	startTime    time.Time
	readyTimeout time.Duration
	logger       zerolog.Logger
}

// NewHandler creates a Handler.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewHandler(deps Deps, logger zerolog.Logger) *Handler {
	return &Handler{
		deps:         deps,
		startTime:    time.Now(),
		readyTimeout: 2 * time.Second,
		logger:       logger.With().Str("component", "api").Logger(),
	}
}

// HealthLive is the liveness probe.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady is the readiness probe: ready once the database answers.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	dbConnected := true
	if h.deps.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), h.readyTimeout)
		defer cancel()
		if err := h.deps.DB.Ping(ctx); err != nil {
			h.logger.Debug().Err(err).Msg("Readiness ping failed")
			dbConnected = false
		}
	}

	statusCode := http.StatusOK
	if !dbConnected {
		statusCode = http.StatusServiceUnavailable
	}
	NewResponseWriter(w, r).JSON(statusCode, dbConnected, map[string]interface{}{
		"database_connected": dbConnected,
		"uptime":             time.Since(h.startTime).Seconds(),
	})
}

// StatusReport is the /status payload.
type StatusReport struct {
	Uptime   float64                `json:"uptime"`
	Events   string                 `json:"events,omitempty"`
	Tasks    []scheduler.TaskStatus `json:"tasks,omitempty"`
	Build    *recommend.BuildStatus `json:"build,omitempty"`
	Model    *storage.ArtifactInfo  `json:"model,omitempty"`
	ModelErr string                 `json:"model_error,omitempty"`
}

// Status reports scheduler, build and model state.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	report := StatusReport{
		Uptime: time.Since(h.startTime).Seconds(),
		Events: h.deps.Events,
	}
	if h.deps.Scheduler != nil {
		report.Tasks = h.deps.Scheduler.Status()
	}
	if h.deps.Builder != nil {
		st := h.deps.Builder.Status()
		report.Build = &st
	}
	if h.deps.Artifacts != nil {
		infos, err := h.deps.Artifacts.List(r.Context())
		switch {
		case err != nil && !errors.Is(err, storage.ErrArtifactNotFound):
			report.ModelErr = err.Error()
		case len(infos) > 0:
			latest := infos[0]
			report.Model = &latest
		}
	}
	NewResponseWriter(w, r).Success(report)
}

// NotFound serves unknown routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).NotFound("no route for " + r.URL.Path)
}

// MethodNotAllowed serves known routes with the wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
}
