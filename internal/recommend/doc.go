// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

// Package recommend builds the content-similarity model and ranks videos
// against it.
//
// # Model
//
// A build fits a TF-IDF vectorizer over every video's category text, computes
// the pairwise cosine similarity matrix, and min-max normalizes a weighted
// engagement score (likes, comments, views) into [0,1]. The result is a
// storage.Artifact whose matrix rows follow the corpus order exactly; the
// artifact carries an id-to-row index that is validated on load.
//
// # Ranking
//
// For preferred categories P and exclusions X, the Scorer:
//
//  1. drops videos in X
//  2. keeps videos whose category contains any of P (case-insensitive)
//  3. computes categorySim[i] as the mean similarity between i and every
//     video of the full corpus matching P, or 0.5 without preferences
//  4. ranks by categorySim*0.7 + engagement*0.3, ties in corpus order
//
// The similarity in step 3 averages over the full corpus, not the filtered
// candidate set.
//
// # Failure Semantics
//
// Build returns ErrEmptyCorpus when there is nothing to vectorize; the
// previous artifact stays authoritative. Scorer methods never return errors:
// a missing model or an internal failure yields an empty result and is logged.
//
// # Usage
//
//	cfg := recommend.DefaultConfig()
//	builder := recommend.NewBuilder(cfg, db, store, bus, logger)
//	info, err := builder.BuildFromDatabase(ctx)
//
//	scorer := recommend.NewScorer(cfg, store, logger)
//	recs := scorer.Recommend(ctx, []string{"Gaming"}, viewed, 8)
package recommend
