// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type traceKey struct{}

// trace is the set of IDs carried by a request or a CLI run.
type trace struct {
	correlationID string
	requestID     string
}

func traceFrom(ctx context.Context) trace {
	t, _ := ctx.Value(traceKey{}).(trace)
	return t
}

func withTrace(ctx context.Context, fn func(*trace)) context.Context {
	t := traceFrom(ctx)
	fn(&t)
	return context.WithValue(ctx, traceKey{}, t)
}

// GenerateCorrelationID returns the first 8 hex characters of a random UUID.
func GenerateCorrelationID() string {
	return uuid.NewString()[:8]
}

// ContextWithCorrelationID returns ctx carrying id as its correlation ID.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return withTrace(ctx, func(t *trace) { t.correlationID = id })
}

// ContextWithNewCorrelationID returns ctx carrying a fresh correlation ID.
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

// CorrelationIDFromContext returns the correlation ID, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	return traceFrom(ctx).correlationID
}

// ContextWithRequestID returns ctx carrying the HTTP request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return withTrace(ctx, func(t *trace) { t.requestID = id })
}

// RequestIDFromContext returns the request ID, or "".
func RequestIDFromContext(ctx context.Context) string {
	return traceFrom(ctx).requestID
}

// Ctx returns the global logger enriched with the IDs found in ctx.
//
//	logging.Ctx(ctx).Info().Int64("film_id", id).Msg("Rating recomputed")
func Ctx(ctx context.Context) *zerolog.Logger {
	t := traceFrom(ctx)
	if t == (trace{}) {
		l := Logger()
		return &l
	}
	zctx := current().With()
	if t.correlationID != "" {
		zctx = zctx.Str("correlation_id", t.correlationID)
	}
	if t.requestID != "" {
		zctx = zctx.Str("request_id", t.requestID)
	}
	l := zctx.Logger()
	return &l
}
