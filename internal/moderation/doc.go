// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

/*
Package moderation classifies pending comments and videos and writes the
verdicts back.

A sweep lists the pending rows of one kind, classifies each one and, per item,
updates the row and appends a moderation_history entry in one transaction.
An item whose classification or write fails keeps its pending status and is
picked up again by the next sweep. Items without content are skipped.

Classifiers compose:

	NewCachedClassifier(                        // Badger, keyed by payload SHA-256
		NewGuardedClassifier(                   // rate limit + circuit breaker
			NewRetryingClassifier(video, 3, 2*time.Second, logger),
			guardCfg, logger),
		cache, ttl, logger)

TextClassifier asks an Ollama model for a distribution over the comment labels
(OK, H, H2, HR, S, S3, SH, V, V2) and approves iff OK ranks first.
VideoClassifier runs Google Cloud Video Intelligence explicit content
detection on the inline bytes.
*/
package moderation
