// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package models

import (
	"time"

	"github.com/google/uuid"
)

// Review rating bounds (inclusive).
const (
	MinReviewRating = 1
	MaxReviewRating = 10
)

// Review is a user's rating of a film. There is at most one review per
// (UserID, ItemID) pair; upserting replaces Rating and Text in place.
type Review struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	ItemID    int64     `json:"film_id"`
	Rating    int       `json:"rating"`
	Text      *string   `json:"review_text,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AggregateRating is the derived rating state stored on a film.
// Rating is nil when the film has no reviews.
type AggregateRating struct {
	ItemID      int64    `json:"film_id"`
	Rating      *float64 `json:"rating"`
	ReviewCount int      `json:"review_count"`
}

// Equal reports whether two aggregates carry the same rating and count.
func (a AggregateRating) Equal(b AggregateRating) bool {
	if a.ReviewCount != b.ReviewCount {
		return false
	}
	if a.Rating == nil || b.Rating == nil {
		return a.Rating == nil && b.Rating == nil
	}
	return *a.Rating == *b.Rating
}
