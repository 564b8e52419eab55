// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/cinematch/internal/models"
	"github.com/tomtom215/cinematch/internal/recommend/index"
)

// readiness is the body of GET /health/ready.
type readiness struct {
	Status     string      `json:"status"`
	Database   bool        `json:"database"`
	IndexState index.State `json:"index_state"`
	Uptime     float64     `json:"uptime"`
}

// HealthLive handles GET /api/v1/health/live. It always succeeds.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	}, models.Metadata{})
}

// HealthReady handles GET /api/v1/health/ready.
//
// An index that failed to load or is not loaded yet reports "degraded" but
// stays ready: similarity queries answer with empty lists rather than
// errors. Only an unreachable database makes the service not ready.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	body := readiness{
		Status:     "ready",
		Database:   true,
		IndexState: h.engine.Stats().State,
		Uptime:     time.Since(h.startTime).Seconds(),
	}
	if h.db != nil && h.db.Ping(r.Context()) != nil {
		body.Database = false
	}

	switch {
	case !body.Database:
		body.Status = "not_ready"
		respondJSON(w, http.StatusServiceUnavailable, &models.APIResponse{
			Status:   "error",
			Data:     body,
			Metadata: models.Metadata{Timestamp: time.Now()},
			Error:    &models.APIError{Code: CodeNotReady, Message: "Database unavailable"},
		})
		return
	case body.IndexState != index.StateLoaded:
		body.Status = "degraded"
	}
	respondSuccess(w, body, models.Metadata{IndexVersion: h.engine.IndexVersion()})
}
