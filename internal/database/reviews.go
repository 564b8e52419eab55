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
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/cinematch/internal/metrics"
	"github.com/tomtom215/cinematch/internal/models"
)

const reviewColumns = `SELECT id, user_id, film_id, rating, review_text, created_at, updated_at`

// maxWriteRetries bounds retries of a review write on transaction conflict.
const maxWriteRetries = 3

func queryReviews(ctx context.Context, q querier, stmt string, args ...interface{}) ([]models.Review, error) {
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var r models.Review
		if err := rows.Scan(&r.ID, &r.UserID, &r.ItemID, &r.Rating, &r.Text, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reviews: %w", err)
	}
	return reviews, nil
}

// LikedItemIDs returns the films userID rated at least minRating, oldest
// review first.
func (db *DB) LikedItemIDs(ctx context.Context, userID uuid.UUID, minRating float64) (ids []int64, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("liked_items", time.Since(start), err) }()

	return db.queryIDs(ctx,
		`SELECT film_id FROM reviews WHERE user_id = ? AND rating >= ? ORDER BY created_at, film_id`,
		userID, minRating)
}

// SeenItemIDs returns every film userID has reviewed, in ascending ID order.
func (db *DB) SeenItemIDs(ctx context.Context, userID uuid.UUID) (ids []int64, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("seen_items", time.Since(start), err) }()

	return db.queryIDs(ctx, `SELECT film_id FROM reviews WHERE user_id = ? ORDER BY film_id`, userID)
}

func (db *DB) queryIDs(ctx context.Context, stmt string, args ...interface{}) ([]int64, error) {
	rows, err := db.conn.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query film ids: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan film id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetReview returns a review by ID or ErrNotFound.
func (db *DB) GetReview(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	reviews, err := queryReviews(ctx, db.conn, reviewColumns+` FROM reviews WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(reviews) == 0 {
		return nil, fmt.Errorf("review %s: %w", id, ErrNotFound)
	}
	return &reviews[0], nil
}

// UpsertReview creates the review of (r.UserID, r.ItemID) or replaces its
// rating and text, and returns the stored row. The film's aggregate rating
// is not touched; callers recompute it afterwards.
//
// Writes for the same film are serialized with rating recomputation
// through the film's item lock. Transaction conflicts are retried with
// exponential backoff (1ms, 2ms, 4ms).
func (db *DB) UpsertReview(ctx context.Context, r *models.Review) (stored *models.Review, err error) {
	if r.Rating < models.MinReviewRating || r.Rating > models.MaxReviewRating {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRating, r.Rating)
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("upsert_review", time.Since(start), err) }()

	release, err := db.acquireItemLock(ctx, r.ItemID)
	if err != nil {
		return nil, classifyLockError(r.ItemID, err)
	}
	defer release()

	var exists bool
	if err = db.conn.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM films WHERE id = ?)`, r.ItemID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check film: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("film %d: %w", r.ItemID, ErrNotFound)
	}

	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	now := time.Now().UTC()

	var lastErr error
	for attempt := 0; attempt < maxWriteRetries; attempt++ {
		stored, err = db.doUpsertReview(ctx, r, now)
		if err == nil {
			return stored, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, classifyLockError(r.ItemID, fmt.Errorf("operation timed out or canceled: %w", ctx.Err()))
		}
		if isInternalError(err) {
			return nil, fmt.Errorf("DuckDB internal error: %w", err)
		}
		if !isTransactionConflict(err) {
			return nil, err
		}
		if attempt < maxWriteRetries-1 {
			backoff := time.Millisecond * time.Duration(1<<uint(attempt))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, classifyLockError(r.ItemID, ctx.Err())
			}
		}
	}
	return nil, classifyLockError(r.ItemID, fmt.Errorf("max retries exceeded: %w", lastErr))
}

func (db *DB) doUpsertReview(ctx context.Context, r *models.Review, now time.Time) (*models.Review, error) {
	reviews, err := queryReviews(ctx, db.conn, `INSERT INTO reviews (id, user_id, film_id, rating, review_text, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, film_id) DO UPDATE SET
			rating = EXCLUDED.rating,
			review_text = EXCLUDED.review_text,
			updated_at = EXCLUDED.updated_at
		RETURNING id, user_id, film_id, rating, review_text, created_at, updated_at`,
		r.ID, r.UserID, r.ItemID, r.Rating, r.Text, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert review: %w", err)
	}
	if len(reviews) == 0 {
		return nil, errors.New("upsert review returned no row")
	}
	return &reviews[0], nil
}

// DeleteReview removes a review and returns the film it belonged to, or
// ErrNotFound. The film's aggregate rating is not touched.
func (db *DB) DeleteReview(ctx context.Context, id uuid.UUID) (filmID int64, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("delete_review", time.Since(start), err) }()

	if err = db.conn.QueryRowContext(ctx, `SELECT film_id FROM reviews WHERE id = ?`, id).Scan(&filmID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("review %s: %w", id, ErrNotFound)
		}
		return 0, fmt.Errorf("failed to look up review: %w", err)
	}

	release, err := db.acquireItemLock(ctx, filmID)
	if err != nil {
		return 0, classifyLockError(filmID, err)
	}
	defer release()

	res, err := db.conn.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return 0, classifyLockError(filmID, fmt.Errorf("failed to delete review: %w", err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return 0, fmt.Errorf("review %s: %w", id, ErrNotFound)
	}
	return filmID, nil
}
