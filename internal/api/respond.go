// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cinematch/internal/database"
	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/models"
	"github.com/tomtom215/cinematch/internal/rating"
)

// Error codes.
const (
	CodeInvalidParameter = "INVALID_PARAMETER"
	CodeNotFound         = "NOT_FOUND"
	CodeRetryable        = "RETRYABLE_CONFLICT"
	CodeRateLimited      = "RATE_LIMITED"
	CodeTimeout          = "TIMEOUT"
	CodeInternal         = "INTERNAL_ERROR"
	CodeNotReady         = "NOT_READY"
	CodeBuildInProgress  = "BUILD_IN_PROGRESS"
	CodeBuildUnavailable = "BUILD_UNAVAILABLE"
)

// retryAfterSeconds is sent with 503 responses for retryable conflicts.
const retryAfterSeconds = "1"

// sanitizeLogValue escapes control characters so client input cannot
// forge log lines.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", r)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// respondJSON writes response with status.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondSuccess writes a 200 success envelope.
func respondSuccess(w http.ResponseWriter, data interface{}, meta models.Metadata) {
	respondSuccessStatus(w, http.StatusOK, data, meta)
}

// respondSuccessStatus writes a success envelope with a 2xx status.
func respondSuccessStatus(w http.ResponseWriter, status int, data interface{}, meta models.Metadata) {
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	respondJSON(w, status, &models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: meta,
	})
}

// respondError writes an error envelope.
func respondError(w http.ResponseWriter, status int, apiErr *models.APIError) {
	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now()},
		Error:    apiErr,
	})
}

// respondServiceError maps a store or engine error to a status code:
// unknown films and reviews are 404, retryable conflicts are 503 with
// Retry-After, and anything else is logged and reported as 500.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound), errors.Is(err, rating.ErrUnknownItem):
		respondError(w, http.StatusNotFound, &models.APIError{Code: CodeNotFound, Message: "Not found"})
	case errors.Is(err, database.ErrInvalidRating):
		respondError(w, http.StatusBadRequest, &models.APIError{Code: CodeInvalidParameter, Message: err.Error()})
	case rating.IsRetryable(err):
		logging.Ctx(r.Context()).Warn().Str("error", sanitizeLogValue(err.Error())).Msg("Retryable conflict")
		w.Header().Set("Retry-After", retryAfterSeconds)
		respondError(w, http.StatusServiceUnavailable, &models.APIError{
			Code:    CodeRetryable,
			Message: "Concurrent update in progress, retry the request",
		})
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusServiceUnavailable, &models.APIError{Code: CodeTimeout, Message: "Request timed out"})
	default:
		logging.Ctx(r.Context()).Error().Str("error", sanitizeLogValue(err.Error())).Msg("API error")
		respondError(w, http.StatusInternalServerError, &models.APIError{Code: CodeInternal, Message: "Internal server error"})
	}
}

// invalidParam writes a 400 for a malformed parameter.
func invalidParam(w http.ResponseWriter, name, value string) {
	respondError(w, http.StatusBadRequest, &models.APIError{
		Code:    CodeInvalidParameter,
		Message: fmt.Sprintf("invalid %s", name),
		Details: map[string]interface{}{"parameter": name, "value": value},
	})
}
