// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

/*
Package api serves the recommendation engine over HTTP with chi.

# Routes

	GET    /api/v1/health/live
	GET    /api/v1/health/ready
	GET    /api/v1/recommendations/status
	GET    /api/v1/recommendations/similar/{identifier}?top_n=&resolve=&id_only=
	GET    /api/v1/recommendations/users/{userID}?top_n=&min_rating=&fanout=&resolve=
	POST   /api/v1/recommendations/reload
	POST   /api/v1/recommendations/build       body: {"genre_id","director","release_year"}
	GET    /api/v1/recommendations/build
	POST   /api/v1/films/{filmID}/rating/recompute
	PUT    /api/v1/reviews
	DELETE /api/v1/reviews/{reviewID}
	GET    /metrics

Every JSON response uses the models.APIResponse envelope. Recommendation
endpoints return film IDs unless resolve=true, in which case they return
films in the same order, silently dropping IDs no longer in the catalog.
An empty list is a success.

# Errors

	400 INVALID_PARAMETER, VALIDATION_ERROR
	404 NOT_FOUND            unknown film or review
	409 BUILD_IN_PROGRESS    an index build is already queued
	429 RATE_LIMITED
	503 RETRYABLE_CONFLICT   concurrent rating update; Retry-After is set
	503 NOT_READY            readiness check with the database unreachable
	503 BUILD_UNAVAILABLE    no in-process builder configured

# Index Builds

POST /recommendations/build queues a build in the server process and
answers 202 with a request ID. The build extracts features from the live
catalog, saves a new artifact and swaps it into the serving index; queries
keep reading the previous version until the swap. GET /recommendations/build
reports the builder; a finished build shows its request ID as last_request.

An index that is unloaded or failed to load is not an error: similarity
queries return empty lists and readiness reports "degraded".
*/
package api
