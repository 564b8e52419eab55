// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

// Package validation validates API request structs with
// go-playground/validator v10.
//
// The validator is a lazily built singleton: struct metadata is cached
// after the first call, and it is safe for concurrent use. Field names in
// errors come from json tags, so messages match what clients send.
//
//	type reviewRequest struct {
//	    Rating int     `json:"rating" validate:"min=1,max=10"`
//	    Text   *string `json:"review_text" validate:"omitempty,max=5000"`
//	}
//
// Failures convert to the API's VALIDATION_ERROR body with ToAPIError.
// Beyond the built-in tags, notblank rejects strings that are empty after
// trimming whitespace.
package validation
