// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/reelcast/internal/database"
	"github.com/tomtom215/reelcast/internal/events"
	"github.com/tomtom215/reelcast/internal/logging"
	"github.com/tomtom215/reelcast/internal/metrics"
	"github.com/tomtom215/reelcast/internal/models"
)

// Store is the moderation slice of the data layer. *database.DB implements it.
type Store interface {
	PendingItems(ctx context.Context, kind models.ContentKind) ([]models.PendingItem, error)
	VideoData(ctx context.Context, videoID string) ([]byte, error)
	ApplyDecision(ctx context.Context, d *models.ModerationDecision) error
}

// DecisionPublisher announces decisions. *events.Bus implements it.
type DecisionPublisher interface {
	PublishModerationDecided(ctx context.Context, ev events.ModerationDecided) error
}

// SweepResult summarizes one pass over the pending items of one kind.
type SweepResult struct {
	Kind     models.ContentKind `json:"kind"`
	Total    int                `json:"total"`
	Approved int                `json:"approved"`
	Rejected int                `json:"rejected"`
	Failed   int                `json:"failed"`
	Skipped  int                `json:"skipped"`
	Duration time.Duration      `json:"duration"`
}

// Pipeline moderates pending items with one classifier per content kind.
type Pipeline struct {
	store       Store
	classifiers map[models.ContentKind]Classifier
	publisher   DecisionPublisher
	logger      zerolog.Logger
	now         func() time.Time
}

// NewPipeline creates a Pipeline. publisher may be nil.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewPipeline(store Store, publisher DecisionPublisher, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		store:       store,
		classifiers: make(map[models.ContentKind]Classifier),
		publisher:   publisher,
		logger:      logger.With().Str("component", "moderation").Logger(),
		now:         time.Now,
	}
}

// Register sets the classifier for kind. It is not safe to call during a sweep.
func (p *Pipeline) Register(kind models.ContentKind, c Classifier) {
	p.classifiers[kind] = c
}

// SweepPending classifies every pending item of kind and writes back the
// verdicts. A failing item is logged, counted and left pending for the
// next sweep; it never stops the sweep. The returned error covers listing
// failures and cancellation only.
func (p *Pipeline) SweepPending(ctx context.Context, kind models.ContentKind) (SweepResult, error) {
	start := time.Now()
	result := SweepResult{Kind: kind}
	logger := logging.Attach(ctx, p.logger).With().Str("kind", string(kind)).Logger()

	classifier, ok := p.classifiers[kind]
	if !ok {
		return result, fmt.Errorf("no classifier registered for %s", kind)
	}

	items, err := p.store.PendingItems(ctx, kind)
	if err != nil {
		return result, fmt.Errorf("list pending %s items: %w", kind, err)
	}
	result.Total = len(items)
	if len(items) == 0 {
		logger.Debug().Msg("No pending items")
		return result, nil
	}
	logger.Info().Int("pending", len(items)).Msg("Moderation sweep started")

	for i := range items {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}
		p.moderate(ctx, logger, classifier, &items[i], &result)
	}

	result.Duration = time.Since(start)
	logger.Info().
		Int("approved", result.Approved).
		Int("rejected", result.Rejected).
		Int("failed", result.Failed).
		Int("skipped", result.Skipped).
		Dur("elapsed", result.Duration).
		Msg("Moderation sweep complete")
	return result, nil
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func (p *Pipeline) moderate(ctx context.Context, logger zerolog.Logger, c Classifier, item *models.PendingItem, result *SweepResult) {
	logger = logger.With().Str("id", item.ID).Logger()
	kind := string(item.Kind)

	payload, err := p.payload(ctx, item)
	if err != nil {
		if errors.Is(err, ErrNoPayload) {
			p.skip(logger, kind, result, "no content to classify")
			return
		}
		p.fail(logger, kind, "load", err, result)
		return
	}

	verdict, err := c.Classify(ctx, payload)
	if err != nil {
		if errors.Is(err, ErrNoPayload) {
			p.skip(logger, kind, result, "no content to classify")
			return
		}
		p.fail(logger, kind, "classify", err, result)
		return
	}
	if !verdict.Status.Terminal() {
		p.fail(logger, kind, "classify", fmt.Errorf("%w: non-terminal status %q", ErrClassifier, verdict.Status), result)
		return
	}

	decision := &models.ModerationDecision{
		Kind:      item.Kind,
		ID:        item.ID,
		Status:    verdict.Status,
		Reason:    verdict.Reason,
		DecidedAt: p.now().UTC(),
	}
	if item.Kind == models.KindComment {
		decision.Score = verdict.Score
		decision.Labels = verdict.Labels
	}

	if err := p.store.ApplyDecision(ctx, decision); err != nil {
		if errors.Is(err, database.ErrNotPending) {
			p.skip(logger, kind, result, "moderated elsewhere during the sweep")
			return
		}
		p.fail(logger, kind, "write", err, result)
		return
	}

	metrics.RecordModeration(kind, string(decision.Status))
	if decision.Status == models.StatusApproved {
		result.Approved++
	} else {
		result.Rejected++
	}
	logger.Info().Str("status", string(decision.Status)).Str("reason", decision.Reason).Msg("Item moderated")

	if p.publisher != nil {
		if err := p.publisher.PublishModerationDecided(ctx, events.NewModerationDecided(decision)); err != nil {
			logger.Warn().Err(err).Msg("Publishing moderation.decided failed")
		}
	}
}

func (p *Pipeline) payload(ctx context.Context, item *models.PendingItem) (Payload, error) {
	pl := Payload{Kind: item.Kind, ID: item.ID, Text: item.Text}
	if item.Kind != models.KindVideo {
		return pl, nil
	}
	if !item.HasMedia {
		return pl, ErrNoPayload
	}
	data, err := p.store.VideoData(ctx, item.ID)
	if err != nil {
		return pl, fmt.Errorf("load video data: %w", err)
	}
	if len(data) == 0 {
		return pl, ErrNoPayload
	}
	pl.Media = data
	return pl, nil
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func (p *Pipeline) skip(logger zerolog.Logger, kind string, result *SweepResult, why string) {
	result.Skipped++
	metrics.ModerationSkipped.WithLabelValues(kind).Inc()
	logger.Debug().Str("why", why).Msg("Item skipped")
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func (p *Pipeline) fail(logger zerolog.Logger, kind, stage string, err error, result *SweepResult) {
	result.Failed++
	metrics.ModerationFailures.WithLabelValues(kind, stage).Inc()
	logger.Warn().Err(err).Str("stage", stage).Msg("Item left pending")
}
