// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package moderation

import (
	"context"
	"sync"

	"github.com/tomtom215/reelcast/internal/models"
)

// scriptedClassifier answers from a queue of outcomes and then repeats the
// last one. Calls are counted per payload ID.
type scriptedClassifier struct {
	mu       sync.Mutex
	outcomes []outcome
	calls    map[string]int
	total    int
}

type outcome struct {
	verdict Verdict
	err     error
}

func approve(reason string) outcome {
	return outcome{verdict: Verdict{Status: models.StatusApproved, Reason: reason}}
}

func reject(reason string) outcome {
	return outcome{verdict: Verdict{Status: models.StatusRejected, Reason: reason}}
}

func failWith(err error) outcome {
	return outcome{err: err}
}

func script(outcomes ...outcome) *scriptedClassifier {
	return &scriptedClassifier{outcomes: outcomes, calls: make(map[string]int)}
}

func (s *scriptedClassifier) Classify(_ context.Context, p Payload) (Verdict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[p.ID]++
	idx := s.total
	s.total++
	if idx >= len(s.outcomes) {
		idx = len(s.outcomes) - 1
	}
	o := s.outcomes[idx]
	return o.verdict, o.err
}

func (s *scriptedClassifier) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// byID routes each payload to its own outcome.
type byID map[string]outcome

func (b byID) Classify(_ context.Context, p Payload) (Verdict, error) {
	o, ok := b[p.ID]
	if !ok {
		return Verdict{Status: models.StatusApproved, Reason: "default"}, nil
	}
	return o.verdict, o.err
}
