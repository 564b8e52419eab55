// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

/*
Package metrics provides Prometheus instrumentation for Cinematch.

All collectors are registered with the default registry through promauto and
exposed at /metrics:

	curl http://localhost:8080/metrics

Families:
  - cinematch_db_*: DuckDB query latency and errors
  - cinematch_index_*: artifact builds, loads and the active index state
  - cinematch_neighbor_queries_total, cinematch_recommend_*: online queries
  - cinematch_rating_*: aggregate rating recomputation
  - cinematch_api_*: HTTP latency and throughput
  - cinematch_notifications_*, cinematch_circuit_breaker_*: artifact-published fan-out
*/
package metrics
