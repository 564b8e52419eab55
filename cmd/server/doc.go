// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

/*
Package main is the entry point for the Cinematch recommendation server.

The server answers similar-film and personalized recommendation queries from
an in-memory similarity index and keeps per-film aggregate ratings in step
with review writes.

# Application Architecture

The server runs under a Suture v4 supervisor tree:

	RootSupervisor ("cinematch")
	├── DataSupervisor ("data-layer")
	│   ├── IndexReloadService
	│   └── IndexBuildService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Start-up order:

 1. Configuration: defaults, optional config.yaml, environment (Koanf v2)
 2. Logging: zerolog, json or console
 3. Database: DuckDB catalog and review store
 4. Artifact store: file or Badger, then the first index load
 5. Notifier: Redis or NATS subscription for published versions (optional)
 6. HTTP server: chi router under /api/v1 and /metrics

A failed first load does not stop the server. Readiness reports the index
as degraded and recommendation endpoints return empty lists until a
version loads.

# Index Builds and Reloads

The server holds the DuckDB file lock and, with ARTIFACT_BACKEND=badger,
the Badger directory lock. A second process cannot open either, so builds
against a running server go through IndexBuildService: POST
/api/v1/recommendations/build (or build-index -server URL) queues a build
that runs in process and swaps the new version in when saved. With
RECOMMEND_REBUILD_INTERVAL set the service also rebuilds on a schedule.
Each finished build is announced so other replicas reload it.

cmd/build-index without -server builds offline, against a database no
server has open. IndexReloadService reloads on the notification and also
polls the store every RECOMMEND_RELOAD_INTERVAL, so a missed notification
only delays the swap. Reloads are spaced by at least
RECOMMEND_RELOAD_MIN_GAP.

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains in-flight
requests for HTTP_SHUTDOWN_TIMEOUT, then the database, artifact store and
notifier are closed.

# Example Usage

	export DUCKDB_PATH=/data/cinematch.duckdb
	export ARTIFACT_PATH=/data/artifacts
	export NOTIFY_BACKEND=redis
	export REDIS_ADDR=localhost:6379
	./cinematch-server
*/
package main
