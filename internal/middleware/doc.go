// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

/*
Package middleware provides the HTTP middleware used by the API router.

All components have the chi signature func(http.Handler) http.Handler:

  - RequestID: accepts or generates X-Request-ID and seeds the logging context
  - AccessLog: one log line per request; 5xx and slow requests at warn
  - PrometheusMetrics: request count, latency and in-flight gauge, labeled
    by chi route pattern
  - Compression: gzip for clients that accept it

Stack order in internal/api:

	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog)
	r.Use(middleware.PrometheusMetrics)
	r.Use(cors.Handler(...))
	r.Use(httprate.Limit(...))
	r.Use(middleware.Compression)
*/
package middleware
