// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package recommend

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/cinematch/internal/models"
)

// Options controls one personalized recommendation request. Zero fields
// fall back to the engine configuration.
type Options struct {
	// MinRating is the lowest rating that counts as "liked". Zero or less
	// selects the configured default; since reviews are rated 1..10, a
	// value of 1 counts every reviewed film.
	MinRating float64 `json:"min_rating"`

	// TopN is the maximum number of items returned.
	TopN int `json:"top_n"`

	// Fanout is the number of neighbors pulled per liked item.
	Fanout int `json:"fanout"`
}

// BuildResult summarizes a finished index build.
type BuildResult struct {
	Version    string        `json:"version"`
	Items      int           `json:"items"`
	Vocabulary int           `json:"vocabulary"`
	Titles     int           `json:"titles"`
	BuiltAt    time.Time     `json:"built_at"`
	Duration   time.Duration `json:"duration"`
}

// CatalogSource reads films. It is implemented by the database layer.
type CatalogSource interface {
	// FetchCatalog returns the films selected by filter in ascending ID
	// order, each with its genres.
	FetchCatalog(ctx context.Context, filter models.CatalogFilter) ([]models.CatalogItem, error)

	// ResolveItems returns the films for ids in the same order, silently
	// dropping ids that no longer exist.
	ResolveItems(ctx context.Context, ids []int64) ([]models.CatalogItem, error)
}

// ReviewSource reads a user's review history. It is implemented by the
// database layer.
type ReviewSource interface {
	// LikedItemIDs returns items the user rated at least minRating,
	// ordered by review creation time then item ID.
	LikedItemIDs(ctx context.Context, userID uuid.UUID, minRating float64) ([]int64, error)

	// SeenItemIDs returns every item the user has reviewed.
	SeenItemIDs(ctx context.Context, userID uuid.UUID) ([]int64, error)
}

// NeighborFinder answers nearest-neighbor queries by item ID.
// *index.Index satisfies it.
type NeighborFinder interface {
	NeighborsByID(id int64, topN int) []int64
}
