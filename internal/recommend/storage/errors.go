// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package storage

import "errors"

var (
	// ErrArtifactNotFound means no model has been saved yet.
	ErrArtifactNotFound = errors.New("storage: no model artifact found")

	// ErrChecksumMismatch means the decompressed payload does not match its recorded SHA-256.
	ErrChecksumMismatch = errors.New("storage: artifact checksum mismatch")

	// ErrCorruptArtifact means the file could not be decoded or violates the artifact invariants.
	ErrCorruptArtifact = errors.New("storage: corrupt artifact")
)
