// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/cinematch/internal/models"
	"github.com/tomtom215/cinematch/internal/recommend"
	"github.com/tomtom215/cinematch/internal/recommend/index"
	"github.com/tomtom215/cinematch/internal/validation"
)

// Recommender is the engine surface the handlers use. Satisfied by
// *recommend.Engine.
type Recommender interface {
	Neighbors(ctx context.Context, identifier string, topN int) []int64
	NeighborsByID(ctx context.Context, id int64, topN int) []int64
	RecommendForUser(ctx context.Context, userID uuid.UUID, opts recommend.Options) ([]int64, error)
	LoadIndex(ctx context.Context) index.State
	RecomputeRating(ctx context.Context, itemID int64) (models.AggregateRating, error)
	Resolve(ctx context.Context, ids []int64) ([]models.CatalogItem, error)
	Stats() index.Stats
	IndexVersion() string
}

// ReviewStore writes reviews. Satisfied by *database.DB.
type ReviewStore interface {
	UpsertReview(ctx context.Context, r *models.Review) (*models.Review, error)
	DeleteReview(ctx context.Context, id uuid.UUID) (int64, error)
}

// IndexBuilder runs index builds inside the server process. Satisfied by
// *services.IndexBuildService.
type IndexBuilder interface {
	Request(filter models.CatalogFilter) (id int64, ok bool)
	Status() models.BuildStatus
}

// Pinger checks store connectivity. Satisfied by *database.DB.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the HTTP API.
type Handler struct {
	engine    Recommender
	reviews   ReviewStore
	db        Pinger
	builder   IndexBuilder
	startTime time.Time
}

// NewHandler creates a Handler. db may be nil, in which case readiness
// only reflects the index.
func NewHandler(engine Recommender, reviews ReviewStore, db Pinger) (*Handler, error) {
	if engine == nil {
		return nil, errors.New("api: engine is required")
	}
	if reviews == nil {
		return nil, errors.New("api: review store is required")
	}
	return &Handler{
		engine:    engine,
		reviews:   reviews,
		db:        db,
		startTime: time.Now(),
	}, nil
}

// SetBuilder enables the build endpoints. Without a builder they answer
// 503.
func (h *Handler) SetBuilder(b IndexBuilder) {
	h.builder = b
}

// meta builds response metadata for a request that started at start.
func (h *Handler) meta(start time.Time) models.Metadata {
	return models.Metadata{
		Timestamp:    time.Now(),
		QueryTimeMS:  time.Since(start).Milliseconds(),
		IndexVersion: h.engine.IndexVersion(),
	}
}

// validateRequest runs struct validation and writes a 400 on failure.
// It reports whether the request is valid.
func validateRequest(w http.ResponseWriter, v interface{}) bool {
	if verr := validation.ValidateStruct(v); verr != nil {
		respondError(w, http.StatusBadRequest, verr.ToAPIError())
		return false
	}
	return true
}

// parseQuery writes a 400 for a paramError and reports whether err was nil.
func parseQuery(w http.ResponseWriter, err error) bool {
	if err == nil {
		return true
	}
	var pe *paramError
	if errors.As(err, &pe) {
		invalidParam(w, pe.name, pe.value)
		return false
	}
	invalidParam(w, "query", err.Error())
	return false
}
