// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/models"
)

// maxReviewBodyBytes bounds PUT /reviews bodies.
const maxReviewBodyBytes = 64 << 10

type reviewRequest struct {
	UserID string  `json:"user_id" validate:"required,uuid"`
	FilmID int64   `json:"film_id" validate:"required,min=1"`
	Rating int     `json:"rating" validate:"rating"`
	Text   *string `json:"review_text" validate:"omitempty,max=5000"`
}

// reviewResult is returned by review mutations: the stored review (absent
// on delete) and the film's recomputed aggregate.
type reviewResult struct {
	Review  *models.Review         `json:"review,omitempty"`
	Deleted *uuid.UUID             `json:"deleted,omitempty"`
	Rating  models.AggregateRating `json:"rating"`
}

// RecomputeRating handles POST /api/v1/films/{filmID}/rating/recompute.
func (h *Handler) RecomputeRating(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	raw := chi.URLParam(r, "filmID")
	filmID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || filmID <= 0 {
		invalidParam(w, "film_id", raw)
		return
	}

	agg, err := h.engine.RecomputeRating(r.Context(), filmID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, agg, h.meta(start))
}

// UpsertReview handles PUT /api/v1/reviews. The review is keyed by
// (user_id, film_id); the film's aggregate rating is recomputed after the
// write.
func (h *Handler) UpsertReview(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req reviewRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxReviewBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, &models.APIError{
			Code:    CodeInvalidParameter,
			Message: "invalid JSON body",
		})
		return
	}
	if !validateRequest(w, &req) {
		return
	}

	stored, err := h.reviews.UpsertReview(r.Context(), &models.Review{
		UserID: uuid.MustParse(req.UserID),
		ItemID: req.FilmID,
		Rating: req.Rating,
		Text:   req.Text,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	agg, err := h.engine.RecomputeRating(r.Context(), stored.ItemID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	logging.Ctx(r.Context()).Debug().
		Str("review_id", stored.ID.String()).
		Int64("film_id", stored.ItemID).
		Int("review_count", agg.ReviewCount).
		Msg("Review stored")
	respondSuccess(w, reviewResult{Review: stored, Rating: agg}, h.meta(start))
}

// DeleteReview handles DELETE /api/v1/reviews/{reviewID}.
func (h *Handler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	raw := chi.URLParam(r, "reviewID")
	id, err := uuid.Parse(raw)
	if err != nil {
		invalidParam(w, "review_id", raw)
		return
	}

	filmID, err := h.reviews.DeleteReview(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	agg, err := h.engine.RecomputeRating(r.Context(), filmID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, reviewResult{Deleted: &id, Rating: agg}, h.meta(start))
}
