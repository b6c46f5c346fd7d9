// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package algorithms

// NeutralScore is assigned to every value when min-max normalization has
// no range to work with.
const NeutralScore = 0.5

// MinMaxNormalize scales values to [0, 1]. When all values are equal
// (including the all-zero case) every element becomes NeutralScore.
func MinMaxNormalize(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	minScore, maxScore := values[0], values[0]
	for _, v := range values[1:] {
		if v < minScore {
			minScore = v
		}
		if v > maxScore {
			maxScore = v
		}
	}

	rang := maxScore - minScore
	if rang == 0 {
		for i := range out {
			out[i] = NeutralScore
		}
		return out
	}

	for i, v := range values {
		out[i] = (v - minScore) / rang
	}
	return out
}

// EngagementWeights are the per-signal multipliers of the raw engagement score.
type EngagementWeights struct {
	Like    float64
	Comment float64
	View    float64
}

// DefaultEngagementWeights weights comments highest and passive views lowest.
var DefaultEngagementWeights = EngagementWeights{Like: 1.0, Comment: 2.0, View: 0.5}

// Raw returns the weighted sum of the three counters.
func (w EngagementWeights) Raw(likes, comments, views int64) float64 {
	return float64(likes)*w.Like + float64(comments)*w.Comment + float64(views)*w.View
}
