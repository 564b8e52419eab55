// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinematch_db_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinematch_db_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation"},
	)

	// Index Build Metrics
	IndexBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cinematch_index_build_duration_seconds",
			Help:    "Duration of similarity index builds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300, 900},
		},
	)

	IndexBuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinematch_index_builds_total",
			Help: "Total number of index builds by outcome",
		},
		[]string{"outcome"}, // "success", "empty_catalog", "error"
	)

	IndexBuildItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cinematch_index_build_items",
			Help: "Number of items in the most recently built artifact",
		},
	)

	// Index Serving Metrics
	IndexState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cinematch_index_state",
			Help: "Similarity index state (0=unloaded, 1=loaded, 2=load_failed)",
		},
	)

	IndexItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cinematch_index_items",
			Help: "Number of items in the active artifact",
		},
	)

	IndexLoadsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinematch_index_loads_total",
			Help: "Total number of successful artifact loads",
		},
	)

	IndexLoadFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinematch_index_load_failures_total",
			Help: "Total number of failed artifact loads",
		},
	)

	NeighborQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinematch_neighbor_queries_total",
			Help: "Total number of neighbor queries by result",
		},
		[]string{"result"}, // "hit", "empty"
	)

	// Recommendation Metrics
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinematch_recommend_requests_total",
			Help: "Total number of personalized recommendation requests by result",
		},
		[]string{"result"}, // "ok", "cold_start", "empty", "error"
	)

	RecommendResultSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cinematch_recommend_result_size",
			Help:    "Number of items returned per recommendation request",
			Buckets: []float64{0, 1, 5, 10, 20, 50},
		},
	)

	// Rating Metrics
	RatingRecomputes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinematch_rating_recomputes_total",
			Help: "Total number of aggregate rating recomputations by outcome",
		},
		[]string{"outcome"}, // "success", "retryable", "not_found", "error"
	)

	RatingRecomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cinematch_rating_recompute_duration_seconds",
			Help:    "Duration of aggregate rating recomputations including lock wait",
			Buckets: prometheus.DefBuckets,
		},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinematch_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinematch_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cinematch_api_active_requests",
			Help: "Number of in-flight API requests",
		},
	)

	// Notification Metrics
	NotificationsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinematch_notifications_published_total",
			Help: "Artifact-published notifications by backend and outcome",
		},
		[]string{"backend", "outcome"},
	)

	NotificationsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinematch_notifications_received_total",
			Help: "Artifact-published notifications received by backend",
		},
		[]string{"backend"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cinematch_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinematch_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordIndexBuild records the outcome of an index build.
func RecordIndexBuild(outcome string, items int, duration time.Duration) {
	IndexBuildsTotal.WithLabelValues(outcome).Inc()
	IndexBuildDuration.Observe(duration.Seconds())
	if outcome == "success" {
		IndexBuildItems.Set(float64(items))
	}
}

// RecordNeighborQuery records whether a neighbor query returned anything.
func RecordNeighborQuery(resultLen int) {
	if resultLen == 0 {
		NeighborQueries.WithLabelValues("empty").Inc()
		return
	}
	NeighborQueries.WithLabelValues("hit").Inc()
}

// RecordRecommendation records a personalized recommendation request.
func RecordRecommendation(result string, size int) {
	RecommendRequests.WithLabelValues(result).Inc()
	RecommendResultSize.Observe(float64(size))
}

// RecordRatingRecompute records a rating recomputation.
func RecordRatingRecompute(outcome string, duration time.Duration) {
	RatingRecomputes.WithLabelValues(outcome).Inc()
	RatingRecomputeDuration.Observe(duration.Seconds())
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest tracks in-flight API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
