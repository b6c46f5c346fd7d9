// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package events

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/reelcast/internal/models"
)

// Topic suffixes appended to the configured prefix.
const (
	TopicModelBuilt        = "model.built"
	TopicModerationDecided = "moderation.decided"
)

// ModelBuilt announces that a new similarity artifact was saved.
type ModelBuilt struct {
	EventID      string                 `json:"event_id"`
	ArtifactName string                 `json:"artifact_name"`
	BuiltAt      time.Time              `json:"built_at"`
	CorpusSize   int                    `json:"corpus_size"`
	Predicate    models.CorpusPredicate `json:"predicate"`
}

// ModerationDecided announces a terminal moderation decision for one item.
type ModerationDecided struct {
	EventID   string                  `json:"event_id"`
	Kind      models.ContentKind      `json:"kind"`
	ContentID string                  `json:"content_id"`
	Status    models.ModerationStatus `json:"status"`
	Reason    string                  `json:"reason"`
	DecidedAt time.Time               `json:"decided_at"`
}

// NewModerationDecided builds the event for a persisted decision.
func NewModerationDecided(d *models.ModerationDecision) ModerationDecided {
	return ModerationDecided{
		EventID:   uuid.NewString(),
		Kind:      d.Kind,
		ContentID: d.ID,
		Status:    d.Status,
		Reason:    d.Reason,
		DecidedAt: d.DecidedAt,
	}
}

func encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return data, nil
}

// DecodeModelBuilt parses a model.built payload.
func DecodeModelBuilt(data []byte) (ModelBuilt, error) {
	var ev ModelBuilt
	if err := json.Unmarshal(data, &ev); err != nil {
		return ModelBuilt{}, fmt.Errorf("decode model.built: %w", err)
	}
	return ev, nil
}

// DecodeModerationDecided parses a moderation.decided payload.
func DecodeModerationDecided(data []byte) (ModerationDecided, error) {
	var ev ModerationDecided
	if err := json.Unmarshal(data, &ev); err != nil {
		return ModerationDecided{}, fmt.Errorf("decode moderation.decided: %w", err)
	}
	return ev, nil
}
