// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

// Package database is the DuckDB-backed catalog and review store.
//
// # Overview
//
// DB implements every data interface the recommendation engine consumes:
//
//   - recommend.CatalogSource: FetchCatalog, ResolveItems
//   - recommend.ReviewSource: LikedItemIDs, SeenItemIDs
//   - rating.Store: WithItemLock
//
// It also owns the write side used by the HTTP API and seeding: UpsertFilm,
// EnsureGenre, UpsertReview, DeleteReview and Seed.
//
// # Files
//
//   - database.go: connection lifecycle and pool configuration
//   - schema.go, migrations.go: tables, indexes and versioned migrations
//   - catalog.go: film and genre reads and writes
//   - reviews.go: review reads and writes
//   - item_lock.go: per-film locking and the rating transaction
//   - seed.go: JSON bootstrapping
//
// # Concurrency
//
// DuckDB has no row locks, so every film has an in-process lock. Review
// writes and rating recomputation for the same film hold it, which keeps
// the stored aggregate equal to the mean of the film's reviews once all
// writers are done. Lock waits honour the caller's context; a timeout or a
// DuckDB transaction conflict surfaces as rating.ErrRetryable.
//
// # Ordering
//
// FetchCatalog returns films in ascending ID order with genres sorted by
// name. LikedItemIDs returns films in review creation order. Both orders
// feed deterministic index builds and recommendations.
package database
