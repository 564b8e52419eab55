// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/cinematch/internal/middleware"
	"github.com/tomtom215/cinematch/internal/models"
)

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	timeout       time.Duration
}

// NewRouter creates a Router. A non-positive timeout disables the
// per-request deadline.
func NewRouter(handler *Handler, mw *ChiMiddleware, timeout time.Duration) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, chiMiddleware: mw, timeout: timeout}
}

// Setup builds the route tree.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.AccessLog)
	r.Use(router.chiMiddleware.CORS())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, &models.APIError{Code: CodeNotFound, Message: "Route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, &models.APIError{Code: "METHOD_NOT_ALLOWED", Message: "Method not allowed"})
	})

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders)
		r.Use(middleware.PrometheusMetrics)
		if router.timeout > 0 {
			r.Use(chimiddleware.Timeout(router.timeout))
		}
		r.Use(middleware.Compression)

		r.Route("/recommendations", func(r chi.Router) {
			r.Get("/status", router.handler.RecommendationStatus)
			r.Get("/similar/{identifier}", router.handler.SimilarItems)
			r.Get("/users/{userID}", router.handler.UserRecommendations)
			r.Post("/reload", router.handler.ReloadIndex)
			r.Post("/build", router.handler.StartBuild)
			r.Get("/build", router.handler.BuildStatus)
		})

		r.Post("/films/{filmID}/rating/recompute", router.handler.RecomputeRating)

		r.Put("/reviews", router.handler.UpsertReview)
		r.Delete("/reviews/{reviewID}", router.handler.DeleteReview)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
