// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package models

import "time"

// Genre is a category tag attached to a film.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name" validate:"required,max=64"`
}

// CatalogItem is a film as read by the recommendation core.
//
// Rating and ReviewCount are the stored AggregateRating. They are written only
// by the rating aggregator and are never adjusted incrementally.
type CatalogItem struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Director    string    `json:"director,omitempty"`
	ReleaseYear int       `json:"release_year,omitempty"`
	Description string    `json:"description,omitempty"`
	PosterURL   string    `json:"poster_url,omitempty"`
	Genres      []Genre   `json:"genres"`
	Rating      *float64  `json:"rating"`
	ReviewCount int       `json:"review_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// GenreNames returns the tag names in their stored order.
func (c *CatalogItem) GenreNames() []string {
	names := make([]string, 0, len(c.Genres))
	for _, g := range c.Genres {
		names = append(names, g.Name)
	}
	return names
}

// CatalogFilter restricts which films are fetched for an index build.
// Zero values mean "no restriction".
type CatalogFilter struct {
	GenreID     int    `json:"genre_id,omitempty"`
	Director    string `json:"director,omitempty"` // case-insensitive substring
	ReleaseYear int    `json:"release_year,omitempty"`
}

// IsEmpty reports whether the filter selects the whole catalog.
func (f CatalogFilter) IsEmpty() bool {
	return f.GenreID == 0 && f.Director == "" && f.ReleaseYear == 0
}
