// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

/*
Package models defines the data structures shared by the catalog store, the
recommendation core and the HTTP layer.

Key types:

  - CatalogItem: a film with its text fields, genre tags and stored aggregate rating
  - CatalogFilter: optional restriction of the catalog used for an index build
  - Review: a user's rating of a film, unique per (user, film)
  - AggregateRating: mean rating and review count derived from a film's reviews
  - APIResponse: the envelope returned by every HTTP endpoint
*/
package models
