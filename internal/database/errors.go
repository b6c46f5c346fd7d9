// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package database

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// ErrConnection is matched by every error returned after the retry budget is spent.
var ErrConnection = errors.New("database: connection failed")

// ErrUnknownDriver is returned by Open for an unsupported driver name.
var ErrUnknownDriver = errors.New("database: unknown driver")

// ConnectionError reports an operation that failed on every attempt.
type ConnectionError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("database %s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

// Unwrap exposes both ErrConnection and the last cause to errors.Is / errors.As.
func (e *ConnectionError) Unwrap() []error {
	return []error{ErrConnection, e.Err}
}

// closeWithLog closes a resource and logs any error.
func closeWithLog(closer io.Closer, logger *zerolog.Logger, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logger.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource in an error path where the Close error is not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
