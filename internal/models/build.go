// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package models

import "time"

// BuildStatus describes the server's in-process index builder.
type BuildStatus struct {
	Running bool `json:"running"`
	Pending bool `json:"pending"`

	// Builds counts finished attempts, successful or not.
	Builds int64 `json:"builds"`

	// LastRequest is the ID of the request the last finished build served,
	// or 0 for a scheduled build.
	LastRequest int64 `json:"last_request,omitempty"`

	LastFilter   CatalogFilter `json:"last_filter"`
	LastVersion  string        `json:"last_version,omitempty"`
	LastItems    int           `json:"last_items,omitempty"`
	LastError    string        `json:"last_error,omitempty"`
	LastStarted  *time.Time    `json:"last_started,omitempty"`
	LastFinished *time.Time    `json:"last_finished,omitempty"`
}

// BuildAccepted is the response to an accepted build request. RequestID
// appears as BuildStatus.LastRequest once that build has finished.
type BuildAccepted struct {
	RequestID int64       `json:"request_id"`
	Status    BuildStatus `json:"status"`
}
