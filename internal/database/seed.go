// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package database

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/cinematch/internal/models"
	"github.com/tomtom215/cinematch/internal/rating"
)

// SeedFile is the JSON document accepted by Seed.
//
//	{
//	  "films": [{"id": 1, "title": "Alien", "director": "Ridley Scott",
//	             "release_year": 1979, "genres": ["Horror", "SciFi"],
//	             "description": "..."}],
//	  "reviews": [{"user_id": "…", "film_id": 1, "rating": 8}]
//	}
type SeedFile struct {
	Films   []SeedFilm   `json:"films"`
	Reviews []SeedReview `json:"reviews"`
}

// SeedFilm is a film entry of a SeedFile. Genres are names.
type SeedFilm struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Director    string   `json:"director"`
	ReleaseYear int      `json:"release_year"`
	Description string   `json:"description"`
	PosterURL   string   `json:"poster_url"`
	Genres      []string `json:"genres"`
}

// SeedReview is a review entry of a SeedFile.
type SeedReview struct {
	UserID uuid.UUID `json:"user_id"`
	FilmID int64     `json:"film_id"`
	Rating int       `json:"rating"`
	Text   *string   `json:"review_text,omitempty"`
}

// SeedResult counts what Seed wrote.
type SeedResult struct {
	Films   int `json:"films"`
	Reviews int `json:"reviews"`
}

// Seed upserts the films and reviews in the JSON document read from r and
// recomputes the aggregate rating of every reviewed film. It is meant for
// local bootstrapping and tests.
func (db *DB) Seed(ctx context.Context, r io.Reader) (*SeedResult, error) {
	var doc SeedFile
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode seed file: %w", err)
	}

	res := &SeedResult{}
	for i := range doc.Films {
		f := &doc.Films[i]
		item := &models.CatalogItem{
			ID:          f.ID,
			Title:       f.Title,
			Director:    f.Director,
			ReleaseYear: f.ReleaseYear,
			Description: f.Description,
			PosterURL:   f.PosterURL,
		}
		for _, name := range f.Genres {
			item.Genres = append(item.Genres, models.Genre{Name: name})
		}
		if _, err := db.UpsertFilm(ctx, item); err != nil {
			return res, fmt.Errorf("seed film %q: %w", f.Title, err)
		}
		res.Films++
	}

	touched := make(map[int64]struct{})
	for i := range doc.Reviews {
		sr := &doc.Reviews[i]
		if _, err := db.UpsertReview(ctx, &models.Review{
			UserID: sr.UserID,
			ItemID: sr.FilmID,
			Rating: sr.Rating,
			Text:   sr.Text,
		}); err != nil {
			return res, fmt.Errorf("seed review of film %d: %w", sr.FilmID, err)
		}
		touched[sr.FilmID] = struct{}{}
		res.Reviews++
	}

	filmIDs := make([]int64, 0, len(touched))
	for id := range touched {
		filmIDs = append(filmIDs, id)
	}
	sort.Slice(filmIDs, func(i, j int) bool { return filmIDs[i] < filmIDs[j] })

	agg := rating.NewAggregator(db, 0)
	for _, id := range filmIDs {
		if _, err := agg.Recompute(ctx, id); err != nil {
			return res, fmt.Errorf("seed rating of film %d: %w", id, err)
		}
	}

	db.logger.Info().Int("films", res.Films).Int("reviews", res.Reviews).Msg("Database seeded")
	return res, nil
}
