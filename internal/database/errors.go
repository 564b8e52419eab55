// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package database

import (
	"errors"
	"io"
	"strings"

	"github.com/tomtom215/cinematch/internal/logging"
)

// ErrNotFound is returned when a requested film or review does not exist.
var ErrNotFound = errors.New("database: not found")

// ErrInvalidRating is returned for review ratings outside 1..10.
var ErrInvalidRating = errors.New("database: rating out of range")

// ErrLocked is returned by New when another process holds the database file.
// DuckDB allows a single read-write process per file.
var ErrLocked = errors.New("database: file is locked by another process")

// isLockConflict reports whether err is DuckDB refusing the file lock.
func isLockConflict(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "Could not set lock") ||
		strings.Contains(errStr, "Conflicting lock is held")
}

// isTransactionConflict checks if an error is a DuckDB transaction conflict
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "Transaction conflict") ||
		strings.Contains(errStr, "Conflict on update") ||
		strings.Contains(errStr, "cannot update a table that has been altered")
}

// isInternalError checks if an error is a DuckDB INTERNAL error
func isInternalError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "INTERNAL Error")
}

// closeWithLog closes a resource and logs any error.
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource and explicitly ignores any error.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
