// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package middleware

import (
	"net/http"
	"time"

	"github.com/tomtom215/cinematch/internal/logging"
)

// SlowRequestThreshold is the duration above which requests log at warn.
const SlowRequestThreshold = time.Second

// AccessLog logs one line per request through the request-scoped logger.
// Server errors and slow requests log at warn, everything else at debug.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := newStatusWriter(w)
		next.ServeHTTP(sw, r)
		duration := time.Since(start)

		logger := logging.Ctx(r.Context())
		event := logger.Debug()
		msg := "Request handled"
		switch {
		case sw.statusCode >= http.StatusInternalServerError:
			event = logger.Warn()
			msg = "Request failed"
		case duration > SlowRequestThreshold:
			event = logger.Warn()
			msg = "Slow request detected"
		}
		event.
			Str("method", r.Method).
			Str("route", routePattern(r)).
			Int("status", sw.statusCode).
			Int64("duration_ms", duration.Milliseconds()).
			Msg(msg)
	})
}
