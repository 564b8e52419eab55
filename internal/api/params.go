// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package api

import (
	"net/http"
	"strconv"
	"strings"
)

// paramError names the query parameter that failed to parse.
type paramError struct {
	name  string
	value string
}

func (e *paramError) Error() string { return "invalid " + e.name }

// queryInt returns the integer query parameter key, or 0 when absent.
func queryInt(r *http.Request, key string) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &paramError{name: key, value: v}
	}
	return n, nil
}

// queryFloat returns the float query parameter key, or 0 when absent.
func queryFloat(r *http.Request, key string) (float64, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &paramError{name: key, value: v}
	}
	return f, nil
}

// queryBool returns the boolean query parameter key, or false when absent.
func queryBool(r *http.Request, key string) (bool, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, &paramError{name: key, value: v}
	}
	return b, nil
}
