// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

// Package rating recomputes a film's aggregate rating from its reviews.
//
// Every recomputation reads all reviews and rewrites both the mean and the
// count inside one transaction, while holding an exclusive per-film lock.
// Nothing is ever adjusted incrementally, so running a recomputation twice
// leaves the same result and concurrent review edits always converge.
package rating

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/metrics"
	"github.com/tomtom215/cinematch/internal/models"
)

var (
	// ErrRetryable wraps lock timeouts and transaction conflicts. The
	// caller may retry the whole operation.
	ErrRetryable = errors.New("rating: retryable concurrency conflict")

	// ErrUnknownItem means the film does not exist.
	ErrUnknownItem = errors.New("rating: unknown item")
)

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRetryable)
}

// ItemTx is the transactional view of one film, valid only inside the
// callback passed to Store.WithItemLock.
type ItemTx interface {
	Reviews(ctx context.Context) ([]models.Review, error)
	WriteAggregate(ctx context.Context, agg models.AggregateRating) error
}

// Store provides exclusive, transactional access to a film.
//
// WithItemLock acquires the film's lock (bounded by ctx), opens a
// transaction, and calls fn. The transaction commits if fn returns nil and
// rolls back otherwise. It returns ErrUnknownItem for a missing film and
// an error wrapping ErrRetryable on lock timeout or write conflict.
type Store interface {
	WithItemLock(ctx context.Context, itemID int64, fn func(ctx context.Context, tx ItemTx) error) error
}

// Compute returns the mean rating and count for reviews. The mean is nil
// when there are no reviews.
func Compute(reviews []models.Review) models.AggregateRating {
	if len(reviews) == 0 {
		return models.AggregateRating{}
	}
	sum := 0
	for i := range reviews {
		sum += reviews[i].Rating
	}
	mean := float64(sum) / float64(len(reviews))
	return models.AggregateRating{Rating: &mean, ReviewCount: len(reviews)}
}

// Aggregator runs recomputations against a Store.
type Aggregator struct {
	store       Store
	lockTimeout time.Duration
	logger      zerolog.Logger
}

// NewAggregator creates an Aggregator. lockTimeout bounds the wait for the
// per-film lock; zero means only the caller's context applies.
func NewAggregator(store Store, lockTimeout time.Duration) *Aggregator {
	return &Aggregator{
		store:       store,
		lockTimeout: lockTimeout,
		logger:      logging.WithComponent("rating"),
	}
}

// Recompute rewrites the aggregate rating of itemID from its reviews and
// returns the stored value.
func (a *Aggregator) Recompute(ctx context.Context, itemID int64) (models.AggregateRating, error) {
	start := time.Now()

	if a.lockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.lockTimeout)
		defer cancel()
	}

	var agg models.AggregateRating
	err := a.store.WithItemLock(ctx, itemID, func(ctx context.Context, tx ItemTx) error {
		reviews, err := tx.Reviews(ctx)
		if err != nil {
			return fmt.Errorf("read reviews: %w", err)
		}
		agg = Compute(reviews)
		agg.ItemID = itemID
		if err := tx.WriteAggregate(ctx, agg); err != nil {
			return fmt.Errorf("write aggregate: %w", err)
		}
		return nil
	})

	elapsed := time.Since(start)
	switch {
	case err == nil:
		metrics.RecordRatingRecompute("success", elapsed)
	case errors.Is(err, ErrUnknownItem):
		metrics.RecordRatingRecompute("not_found", elapsed)
		return models.AggregateRating{}, err
	case IsRetryable(err):
		metrics.RecordRatingRecompute("retryable", elapsed)
		logging.Ctx(ctx).Warn().Err(err).Int64("film_id", itemID).Dur("elapsed", elapsed).Msg("Rating recompute hit a concurrency conflict")
		return models.AggregateRating{}, err
	default:
		metrics.RecordRatingRecompute("error", elapsed)
		a.logger.Error().Err(err).Int64("film_id", itemID).Msg("Rating recompute failed")
		return models.AggregateRating{}, fmt.Errorf("recompute rating for film %d: %w", itemID, err)
	}

	a.logger.Debug().
		Int64("film_id", itemID).
		Int("review_count", agg.ReviewCount).
		Dur("elapsed", elapsed).
		Msg("Rating recomputed")
	return agg, nil
}
