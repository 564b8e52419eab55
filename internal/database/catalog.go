// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/cinematch/internal/database/query"
	"github.com/tomtom215/cinematch/internal/metrics"
	"github.com/tomtom215/cinematch/internal/models"
)

const filmColumns = `f.id, f.title, COALESCE(f.director, ''), COALESCE(f.release_year, 0),
	COALESCE(f.description, ''), COALESCE(f.poster_url, ''), f.rating, f.review_count, f.created_at`

// FetchCatalog returns the films selected by filter in ascending ID order,
// each with its genre tags sorted by name.
func (db *DB) FetchCatalog(ctx context.Context, filter models.CatalogFilter) (items []models.CatalogItem, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("fetch_catalog", time.Since(start), err) }()

	where, args := query.NewWhereBuilder("f").AddCatalogFilter(filter).Build()
	items, err = db.queryFilms(ctx, db.conn,
		"SELECT "+filmColumns+" FROM films f WHERE "+where+" ORDER BY f.id", args...)
	if err != nil {
		return nil, err
	}
	if err := db.attachGenres(ctx, db.conn, items,
		"SELECT f.id FROM films f WHERE "+where, args...); err != nil {
		return nil, err
	}
	return items, nil
}

// ResolveItems returns the films for ids in the order given. Unknown IDs
// are dropped.
func (db *DB) ResolveItems(ctx context.Context, ids []int64) (items []models.CatalogItem, err error) {
	if len(ids) == 0 {
		return []models.CatalogItem{}, nil
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("resolve_items", time.Since(start), err) }()

	where, args := query.NewWhereBuilder("f").AddIDs("id", ids).Build()
	found, err := db.queryFilms(ctx, db.conn, "SELECT "+filmColumns+" FROM films f WHERE "+where, args...)
	if err != nil {
		return nil, err
	}
	if err := db.attachGenres(ctx, db.conn, found, "SELECT f.id FROM films f WHERE "+where, args...); err != nil {
		return nil, err
	}

	byID := make(map[int64]models.CatalogItem, len(found))
	for _, it := range found {
		byID[it.ID] = it
	}
	items = make([]models.CatalogItem, 0, len(found))
	for _, id := range ids {
		if it, ok := byID[id]; ok {
			items = append(items, it)
		}
	}
	return items, nil
}

// GetFilm returns a single film or ErrNotFound.
func (db *DB) GetFilm(ctx context.Context, id int64) (*models.CatalogItem, error) {
	items, err := db.ResolveItems(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("film %d: %w", id, ErrNotFound)
	}
	return &items[0], nil
}

func (db *DB) queryFilms(ctx context.Context, q querier, stmt string, args ...interface{}) ([]models.CatalogItem, error) {
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query films: %w", err)
	}
	defer rows.Close()

	items := []models.CatalogItem{}
	for rows.Next() {
		var (
			it     models.CatalogItem
			rating sql.NullFloat64
		)
		if err := rows.Scan(&it.ID, &it.Title, &it.Director, &it.ReleaseYear,
			&it.Description, &it.PosterURL, &rating, &it.ReviewCount, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan film: %w", err)
		}
		if rating.Valid {
			r := rating.Float64
			it.Rating = &r
		}
		it.Genres = []models.Genre{}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating films: %w", err)
	}
	return items, nil
}

// attachGenres loads the genres of the films selected by idQuery in one
// query and attaches them to items.
func (db *DB) attachGenres(ctx context.Context, q querier, items []models.CatalogItem, idQuery string, args ...interface{}) error {
	if len(items) == 0 {
		return nil
	}
	stmt := `SELECT fg.film_id, g.id, g.name
		FROM film_genres fg JOIN genres g ON g.id = fg.genre_id
		WHERE fg.film_id IN (` + idQuery + `)
		ORDER BY fg.film_id, g.name`

	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("failed to query genres: %w", err)
	}
	defer rows.Close()

	byFilm := make(map[int64][]models.Genre)
	for rows.Next() {
		var (
			filmID int64
			g      models.Genre
		)
		if err := rows.Scan(&filmID, &g.ID, &g.Name); err != nil {
			return fmt.Errorf("failed to scan genre: %w", err)
		}
		byFilm[filmID] = append(byFilm[filmID], g)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating genres: %w", err)
	}

	for i := range items {
		if gs, ok := byFilm[items[i].ID]; ok {
			items[i].Genres = gs
		}
	}
	return nil
}

// UpsertFilm inserts or replaces a film's descriptive fields and genre
// tags and returns its ID. A zero item.ID allocates the next free ID.
// The stored aggregate rating is left untouched.
func (db *DB) UpsertFilm(ctx context.Context, item *models.CatalogItem) (id int64, err error) {
	if strings.TrimSpace(item.Title) == "" {
		return 0, errors.New("film title is required")
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("upsert_film", time.Since(start), err) }()

	db.catalogMu.Lock()
	defer db.catalogMu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			rollback(tx, db.logger, err)
		}
	}()

	id = item.ID
	if id == 0 {
		if err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM films`).Scan(&id); err != nil {
			return 0, fmt.Errorf("failed to allocate film id: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO films (id, title, director, release_year, description, poster_url)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			director = EXCLUDED.director,
			release_year = EXCLUDED.release_year,
			description = EXCLUDED.description,
			poster_url = EXCLUDED.poster_url`,
		id, item.Title, nullString(item.Director), nullInt(item.ReleaseYear),
		nullString(item.Description), nullString(item.PosterURL))
	if err != nil {
		return 0, fmt.Errorf("failed to upsert film: %w", err)
	}

	genreIDs := make([]int64, 0, len(item.Genres))
	for _, g := range item.Genres {
		gid := g.ID
		if gid == 0 {
			if gid, err = ensureGenre(ctx, tx, g.Name); err != nil {
				return 0, err
			}
		}
		genreIDs = append(genreIDs, int64(gid))
	}
	sort.Slice(genreIDs, func(i, j int) bool { return genreIDs[i] < genreIDs[j] })

	where, args := query.NewWhereBuilder("").Add("film_id = ?", id).Build()
	if len(genreIDs) > 0 {
		placeholders, gargs := query.InClause(genreIDs)
		where += " AND genre_id NOT IN (" + placeholders + ")"
		args = append(args, gargs...)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM film_genres WHERE "+where, args...); err != nil {
		return 0, fmt.Errorf("failed to clear film genres: %w", err)
	}
	for _, gid := range genreIDs {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO film_genres (film_id, genre_id) VALUES (?, ?) ON CONFLICT DO NOTHING`, id, gid); err != nil {
			return 0, fmt.Errorf("failed to link genre %d: %w", gid, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit film: %w", err)
	}
	item.ID = id
	return id, nil
}

// EnsureGenre returns the ID of the genre named name, creating it if needed.
func (db *DB) EnsureGenre(ctx context.Context, name string) (int, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	db.catalogMu.Lock()
	defer db.catalogMu.Unlock()
	return ensureGenre(ctx, db.conn, name)
}

// ensureGenre requires catalogMu.
func ensureGenre(ctx context.Context, q querier, name string) (int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.New("genre name is required")
	}

	var id int
	err := q.QueryRowContext(ctx, `SELECT id FROM genres WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to look up genre %q: %w", name, err)
	}

	err = q.QueryRowContext(ctx,
		`INSERT INTO genres (id, name) SELECT COALESCE(MAX(id), 0) + 1, ? FROM genres RETURNING id`, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create genre %q: %w", name, err)
	}
	return id, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n int) interface{} {
	if n == 0 {
		return nil
	}
	return n
}
