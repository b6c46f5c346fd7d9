// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package recommend

import "errors"

var (
	// ErrEmptyCorpus is returned when the corpus has no rows or no row yields a term.
	ErrEmptyCorpus = errors.New("empty corpus")

	// ErrBuildInProgress is returned when a build is requested while another is running.
	ErrBuildInProgress = errors.New("model build already in progress")
)
