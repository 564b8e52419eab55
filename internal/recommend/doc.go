// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

// Package recommend implements the content-based film recommendation
// engine.
//
// # Architecture
//
// The engine is split into an offline build and an online serving path:
//
//   - features: films become L2-normalized TF-IDF vectors over director,
//     genre names and description
//   - similarity: the dense pairwise cosine matrix is computed in parallel
//   - artifact: the matrix, item order and title lookup are persisted as one
//     versioned unit (file or BadgerDB backend)
//   - index: the published artifact is loaded behind an atomic pointer and
//     answers nearest-neighbor queries without locks
//   - Aggregator: a user's liked films fan out to their neighbors, which are
//     ranked by how often they appear
//
// Aggregate film ratings are recomputed by the rating package; Engine
// exposes that alongside the index operations so callers have one facade.
//
// # Degraded Mode
//
// Before an artifact is loaded, or after loading fails, every query
// returns an empty result instead of an error. A failed reload keeps the
// previously loaded artifact serving.
//
// # Determinism
//
// Vocabulary order, neighbor tie-breaking (ascending item ID) and the
// order liked films are visited (oldest review first) are all fixed, so
// the same data always produces the same recommendations.
//
// # Usage
//
//	idx := index.New()
//	engine, err := recommend.NewEngine(cfg, recommend.Dependencies{
//	    Catalog:   db,
//	    Reviews:   db,
//	    Ratings:   db,
//	    Artifacts: store,
//	    Index:     idx,
//	})
//	engine.LoadIndex(ctx)
//	ids := engine.Neighbors(ctx, "Blade Runner", 10)
package recommend
