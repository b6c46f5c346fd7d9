// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package moderation

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/reelcast/internal/models"
)

var (
	// ErrClassifier wraps every classifier failure. Items that hit it stay pending.
	ErrClassifier = errors.New("classifier failed")

	// ErrNoPayload is returned for items with nothing to classify.
	ErrNoPayload = errors.New("no payload to classify")
)

// Payload is the content handed to a classifier.
type Payload struct {
	Kind  models.ContentKind
	ID    string
	Text  string
	Media []byte
}

// Verdict is a classifier result.
type Verdict struct {
	Status models.ModerationStatus `json:"status"`
	Reason string                  `json:"reason"`
	Score  *float64                `json:"score,omitempty"`
	Labels map[string]float64      `json:"labels,omitempty"`
}

// Classifier decides approve or reject for one payload.
type Classifier interface {
	Classify(ctx context.Context, p Payload) (Verdict, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, p Payload) (Verdict, error)

// Classify calls f.
func (f ClassifierFunc) Classify(ctx context.Context, p Payload) (Verdict, error) {
	return f(ctx, p)
}

// permanentError marks failures that retrying cannot fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent or is ErrNoPayload.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p) || errors.Is(err, ErrNoPayload)
}

func classifierError(name string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrClassifier, name, err)
}
