// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

/*
Package services provides suture.Service wrappers for the server's
long-running components.

Each wrapper implements

	type Service interface {
	    Serve(ctx context.Context) error
	}

and fmt.Stringer, so suture can name it in logs.

# Available Services

HTTPServerService runs an *http.Server and shuts it down gracefully when
its context is canceled. It belongs in the api layer.

IndexReloadService keeps the similarity index on the latest published
artifact. It listens for artifact-published notifications (Redis or NATS,
see package notify) and polls the artifact store's current version. Reloads
are throttled with a token-bucket limiter. It belongs in the data layer.

IndexBuildService builds and swaps in new artifacts inside the server
process, which owns the store locks. Builds are requested through the API
or run on a schedule; one request may wait behind the running build. It
belongs in the data layer.

# Errors

Returning an error from Serve asks the supervisor to restart the service
with backoff. A failed index load or build is not an error: it is
recorded and the previous artifact keeps serving.
*/
package services
