// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package api

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/models"
)

// maxBuildBodyBytes bounds POST /recommendations/build bodies.
const maxBuildBodyBytes = 4 << 10

// buildRequest selects the films to index. An empty body indexes the
// whole catalog.
type buildRequest struct {
	GenreID     int    `json:"genre_id" validate:"min=0"`
	Director    string `json:"director" validate:"max=200"`
	ReleaseYear int    `json:"release_year" validate:"omitempty,min=1870,max=2200"`
}

// StartBuild handles POST /api/v1/recommendations/build. The build runs in
// the background; the response is 202 with the request ID and builder
// status, or 409 when a build is already queued.
func (h *Handler) StartBuild(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.builder == nil {
		respondBuildUnavailable(w)
		return
	}

	var req buildRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBuildBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, &models.APIError{
			Code:    CodeInvalidParameter,
			Message: "invalid JSON body",
		})
		return
	}
	if !validateRequest(w, &req) {
		return
	}

	filter := models.CatalogFilter{
		GenreID:     req.GenreID,
		Director:    strings.TrimSpace(req.Director),
		ReleaseYear: req.ReleaseYear,
	}
	id, ok := h.builder.Request(filter)
	if !ok {
		respondError(w, http.StatusConflict, &models.APIError{
			Code:    CodeBuildInProgress,
			Message: "An index build is already queued",
		})
		return
	}

	logging.Ctx(r.Context()).Info().
		Int64("request_id", id).
		Int("genre_id", filter.GenreID).
		Str("director", sanitizeLogValue(filter.Director)).
		Int("release_year", filter.ReleaseYear).
		Msg("Index build requested")
	respondSuccessStatus(w, http.StatusAccepted, models.BuildAccepted{
		RequestID: id,
		Status:    h.builder.Status(),
	}, h.meta(start))
}

// BuildStatus handles GET /api/v1/recommendations/build.
func (h *Handler) BuildStatus(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	if h.builder == nil {
		respondBuildUnavailable(w)
		return
	}
	respondSuccess(w, h.builder.Status(), h.meta(start))
}

func respondBuildUnavailable(w http.ResponseWriter) {
	respondError(w, http.StatusServiceUnavailable, &models.APIError{
		Code:    CodeBuildUnavailable,
		Message: "In-process index builds are not enabled",
	})
}
