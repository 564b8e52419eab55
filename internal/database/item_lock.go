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

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/tomtom215/cinematch/internal/metrics"
	"github.com/tomtom215/cinematch/internal/models"
	"github.com/tomtom215/cinematch/internal/rating"
)

// acquireItemLock takes the exclusive lock for a film, waiting at most
// until ctx is done. The returned func releases it. Each lock is a
// weight-1 semaphore kept for the life of the DB.
func (db *DB) acquireItemLock(ctx context.Context, itemID int64) (func(), error) {
	v, _ := db.itemLocks.LoadOrStore(itemID, semaphore.NewWeighted(1))
	sem, ok := v.(*semaphore.Weighted)
	if !ok {
		return nil, fmt.Errorf("item lock for film %d has unexpected type %T", itemID, v)
	}
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { sem.Release(1) }, nil
}

// WithItemLock implements rating.Store. It serializes all rating writes
// and review mutations for itemID, runs fn inside one transaction and
// commits when fn succeeds.
func (db *DB) WithItemLock(ctx context.Context, itemID int64, fn func(ctx context.Context, tx rating.ItemTx) error) (err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("item_lock", time.Since(start), err) }()

	release, err := db.acquireItemLock(ctx, itemID)
	if err != nil {
		return classifyLockError(itemID, err)
	}
	defer release()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return classifyLockError(itemID, fmt.Errorf("failed to begin transaction: %w", err))
	}

	var exists bool
	if err = tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM films WHERE id = ?)`, itemID).Scan(&exists); err != nil {
		rollback(tx, db.logger, err)
		return classifyLockError(itemID, fmt.Errorf("failed to check film: %w", err))
	}
	if !exists {
		rollback(tx, db.logger, rating.ErrUnknownItem)
		return fmt.Errorf("film %d: %w", itemID, rating.ErrUnknownItem)
	}

	if err = fn(ctx, &itemTx{tx: tx, itemID: itemID}); err != nil {
		rollback(tx, db.logger, err)
		return classifyLockError(itemID, err)
	}

	if err = tx.Commit(); err != nil {
		return classifyLockError(itemID, fmt.Errorf("failed to commit: %w", err))
	}
	return nil
}

// classifyLockError wraps lock timeouts and transaction conflicts in
// rating.ErrRetryable.
func classifyLockError(itemID int64, err error) error {
	if errors.Is(err, rating.ErrRetryable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || isTransactionConflict(err) {
		return fmt.Errorf("%w: film %d: %w", rating.ErrRetryable, itemID, err)
	}
	return err
}

// rollback aborts tx, logging a rollback failure next to the error that
// caused it.
func rollback(tx *sql.Tx, logger zerolog.Logger, cause error) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		logger.Error().Err(err).AnErr("original_error", cause).Msg("Failed to roll back transaction")
	}
}

// itemTx is the rating.ItemTx handed to WithItemLock callbacks.
type itemTx struct {
	tx     *sql.Tx
	itemID int64
}

func (t *itemTx) Reviews(ctx context.Context) ([]models.Review, error) {
	return queryReviews(ctx, t.tx, reviewColumns+` FROM reviews WHERE film_id = ? ORDER BY created_at, id`, t.itemID)
}

func (t *itemTx) WriteAggregate(ctx context.Context, agg models.AggregateRating) error {
	var ratingArg interface{}
	if agg.Rating != nil {
		ratingArg = *agg.Rating
	}
	res, err := t.tx.ExecContext(ctx,
		`UPDATE films SET rating = ?, review_count = ? WHERE id = ?`,
		ratingArg, agg.ReviewCount, t.itemID)
	if err != nil {
		return fmt.Errorf("failed to write aggregate rating: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("film %d: %w", t.itemID, rating.ErrUnknownItem)
	}
	return nil
}
