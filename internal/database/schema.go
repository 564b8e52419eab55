// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

/*
schema.go - Database Schema Management

Tables:
  - films: catalog items with their stored aggregate rating
  - genres: tag names, unique by name
  - film_genres: film to genre links
  - reviews: one row per (user_id, film_id), rating 1..10

films.rating and films.review_count are written only by the rating
aggregator through WithItemLock. Referential integrity between reviews and
films is checked in Go rather than with FOREIGN KEY constraints, since
DuckDB rejects updates to rows referenced by a foreign key.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

func tableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS films (
			id BIGINT PRIMARY KEY,
			title TEXT NOT NULL,
			director TEXT,
			release_year INTEGER,
			description TEXT,
			poster_url TEXT,
			rating DOUBLE,
			review_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT current_timestamp
		)`,

		`CREATE TABLE IF NOT EXISTS genres (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		)`,

		`CREATE TABLE IF NOT EXISTS film_genres (
			film_id BIGINT NOT NULL,
			genre_id INTEGER NOT NULL,
			PRIMARY KEY (film_id, genre_id)
		)`,

		`CREATE TABLE IF NOT EXISTS reviews (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			film_id BIGINT NOT NULL,
			rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 10),
			review_text TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT current_timestamp,
			updated_at TIMESTAMP NOT NULL DEFAULT current_timestamp,
			UNIQUE (user_id, film_id)
		)`,
	}
}

// createIndexes creates secondary indexes for the review access paths.
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range indexQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}
	return nil
}

func indexQueries() []string {
	return []string{
		`CREATE INDEX IF NOT EXISTS idx_reviews_film ON reviews(film_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_user ON reviews(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_film_genres_genre ON film_genres(genre_id)`,
		`CREATE INDEX IF NOT EXISTS idx_films_release_year ON films(release_year)`,
	}
}
