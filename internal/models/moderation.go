// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package models

import "time"

// ContentKind identifies the table a moderation item lives in.
type ContentKind string

const (
	KindVideo   ContentKind = "video"
	KindComment ContentKind = "comment"
)

// ModerationStatus is the moderation_status column value.
// pending is the only non-terminal state.
type ModerationStatus string

const (
	StatusPending  ModerationStatus = "pending"
	StatusApproved ModerationStatus = "approved"
	StatusRejected ModerationStatus = "rejected"
)

// Terminal reports whether s is approved or rejected.
func (s ModerationStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Action returns the moderation_history action for a terminal status.
func (s ModerationStatus) Action() string {
	switch s {
	case StatusApproved:
		return "approve"
	case StatusRejected:
		return "reject"
	default:
		return "flag"
	}
}

// PendingItem is one row awaiting moderation. Comments carry Text. Video
// bytes are fetched one item at a time, so listings only report HasMedia.
type PendingItem struct {
	Kind     ContentKind
	ID       string
	Title    string
	Text     string
	HasMedia bool
}

// ModerationDecision is the write-back for one item.
type ModerationDecision struct {
	Kind   ContentKind
	ID     string
	Status ModerationStatus
	Reason string

	// Score and Labels are only stored for comments.
	Score  *float64
	Labels map[string]float64

	DecidedAt time.Time
}
