// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

// Package cache provides a generic in-memory LRU cache with TTL expiry.
//
// The recommendation engine uses it to keep resolved films between
// requests; a film is dropped from the cache whenever its aggregate
// rating is recomputed.
package cache
