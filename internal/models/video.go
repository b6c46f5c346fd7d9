// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

// Package models holds the data types shared between the database layer and
// the recommendation, moderation and preference components.
package models

// VideoRecord is one corpus row: a video plus its aggregated engagement counters.
// Counters are never negative; a video without interactions has zeros.
type VideoRecord struct {
	VideoID  string `json:"video_id"`
	UserID   string `json:"user_id"`
	Title    string `json:"title"`
	Category string `json:"category"` // free text, possibly comma-joined
	Likes    int64  `json:"likes"`
	Comments int64  `json:"comments"`
	Views    int64  `json:"views"`
}

// Recommendation is one ranked result handed to the API layer. Scores are
// used for ordering only and are not part of the payload.
type Recommendation struct {
	VideoID  string `json:"video_id"`
	UserID   string `json:"user_id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Likes    int64  `json:"likes"`
	Comments int64  `json:"comments"`
	Views    int64  `json:"views"`
}

// ScoredRecommendation is a Recommendation with its blended score, for diagnostics.
type ScoredRecommendation struct {
	Recommendation
	Score              float64 `json:"score"`
	CategorySimilarity float64 `json:"category_similarity"`
	EngagementScore    float64 `json:"engagement_score"`
}

// CorpusPredicate selects which videos are eligible for the corpus.
type CorpusPredicate string

const (
	// PredicateActive keeps videos with is_active = true.
	PredicateActive CorpusPredicate = "active"

	// PredicateNotRejected keeps videos whose moderation status is not rejected.
	PredicateNotRejected CorpusPredicate = "not_rejected"
)

// Valid reports whether p is a known predicate.
func (p CorpusPredicate) Valid() bool {
	return p == PredicateActive || p == PredicateNotRejected
}

// Recommendation projects the record onto the fields returned to callers.
func (v VideoRecord) Recommendation() Recommendation {
	return Recommendation(v)
}
