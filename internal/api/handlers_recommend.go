// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/recommend"
)

// itemList is the data of the recommendation endpoints. Items holds
// either film IDs or resolved films.
type itemList struct {
	Items interface{} `json:"items"`
	Count int         `json:"count"`
}

type similarRequest struct {
	Identifier string `json:"identifier" validate:"notblank,max=500"`
	TopN       int    `json:"top_n" validate:"omitempty,min=1"`
	IDOnly     bool   `json:"id_only"`
	Resolve    bool   `json:"resolve"`
}

type userRecommendRequest struct {
	TopN      int     `json:"top_n" validate:"omitempty,min=1"`
	MinRating float64 `json:"min_rating" validate:"omitempty,min=1,max=10"`
	Fanout    int     `json:"fanout" validate:"omitempty,min=1"`
	Resolve   bool    `json:"resolve"`
}

// RecommendationStatus handles GET /api/v1/recommendations/status.
func (h *Handler) RecommendationStatus(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	respondSuccess(w, h.engine.Stats(), h.meta(start))
}

// SimilarItems handles GET /api/v1/recommendations/similar/{identifier}.
//
// The identifier is a title or a film ID; with id_only=true it must be an
// ID and title lookup is skipped. An unknown film or an unloaded index
// yields an empty list.
func (h *Handler) SimilarItems(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	raw := chi.URLParam(r, "identifier")
	identifier, err := url.PathUnescape(raw)
	if err != nil {
		invalidParam(w, "identifier", raw)
		return
	}

	req := similarRequest{Identifier: identifier}
	if req.TopN, err = queryInt(r, "top_n"); !parseQuery(w, err) {
		return
	}
	if req.IDOnly, err = queryBool(r, "id_only"); !parseQuery(w, err) {
		return
	}
	if req.Resolve, err = queryBool(r, "resolve"); !parseQuery(w, err) {
		return
	}
	if !validateRequest(w, &req) {
		return
	}

	var ids []int64
	if req.IDOnly {
		id, perr := strconv.ParseInt(strings.TrimSpace(req.Identifier), 10, 64)
		if perr != nil {
			invalidParam(w, "identifier", req.Identifier)
			return
		}
		ids = h.engine.NeighborsByID(r.Context(), id, req.TopN)
	} else {
		ids = h.engine.Neighbors(r.Context(), req.Identifier, req.TopN)
	}

	h.respondItems(w, r, ids, req.Resolve, start)
}

// UserRecommendations handles GET /api/v1/recommendations/users/{userID}.
func (h *Handler) UserRecommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	rawID := chi.URLParam(r, "userID")
	userID, err := uuid.Parse(rawID)
	if err != nil {
		invalidParam(w, "user_id", rawID)
		return
	}

	var req userRecommendRequest
	if req.TopN, err = queryInt(r, "top_n"); !parseQuery(w, err) {
		return
	}
	if req.MinRating, err = queryFloat(r, "min_rating"); !parseQuery(w, err) {
		return
	}
	if req.Fanout, err = queryInt(r, "fanout"); !parseQuery(w, err) {
		return
	}
	if req.Resolve, err = queryBool(r, "resolve"); !parseQuery(w, err) {
		return
	}
	if !validateRequest(w, &req) {
		return
	}

	ids, err := h.engine.RecommendForUser(r.Context(), userID, recommend.Options{
		MinRating: req.MinRating,
		TopN:      req.TopN,
		Fanout:    req.Fanout,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	h.respondItems(w, r, ids, req.Resolve, start)
}

// ReloadIndex handles POST /api/v1/recommendations/reload. A failed load
// is reported in the returned stats, not as an HTTP error.
func (h *Handler) ReloadIndex(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	state := h.engine.LoadIndex(r.Context())
	stats := h.engine.Stats()

	logging.Ctx(r.Context()).Info().
		Str("state", state.String()).
		Str("version", stats.Version).
		Msg("Index reload requested")

	respondSuccess(w, stats, h.meta(start))
}

func (h *Handler) respondItems(w http.ResponseWriter, r *http.Request, ids []int64, resolve bool, start time.Time) {
	if ids == nil {
		ids = []int64{}
	}
	if !resolve {
		respondSuccess(w, itemList{Items: ids, Count: len(ids)}, h.meta(start))
		return
	}

	films, err := h.engine.Resolve(r.Context(), ids)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, itemList{Items: films, Count: len(films)}, h.meta(start))
}
