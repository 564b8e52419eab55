// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package main

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/tomtom215/cinematch/internal/database"
	"github.com/tomtom215/cinematch/internal/models"
	"github.com/tomtom215/cinematch/internal/recommend/artifact"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		want       models.CatalogFilter
		wantSeed   string
		wantServer string
		wantWait   bool
		wantErr    bool
	}{
		{name: "no flags", args: nil},
		{
			name: "all filters",
			args: []string{"-genre-id", "3", "-director", "scott", "-release-year", "1979", "-seed", "films.json"},
			want: models.CatalogFilter{GenreID: 3, Director: "scott", ReleaseYear: 1979}, wantSeed: "films.json",
		},
		{name: "negative year", args: []string{"-release-year", "-1"}, wantErr: true},
		{name: "not a number", args: []string{"-genre-id", "x"}, wantErr: true},
		{name: "stray argument", args: []string{"extra"}, wantErr: true},
		{
			name: "server with wait", args: []string{"-server", "http://localhost:8080/", "-wait", "-director", "scott"},
			want: models.CatalogFilter{Director: "scott"}, wantServer: "http://localhost:8080/", wantWait: true,
		},
		{name: "wait without server", args: []string{"-wait"}, wantErr: true},
		{name: "seed against server", args: []string{"-server", "http://localhost:8080", "-seed", "films.json"}, wantErr: true},
		{name: "server not a url", args: []string{"-server", "localhost:8080"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := parseFlags(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if opts.filter != tt.want || opts.seedPath != tt.wantSeed {
				t.Errorf("parseFlags() = %+v seed %q, want %+v seed %q", opts.filter, opts.seedPath, tt.want, tt.wantSeed)
			}
			if opts.serverURL != tt.wantServer || opts.wait != tt.wantWait {
				t.Errorf("parseFlags() server %q wait %v, want %q %v", opts.serverURL, opts.wait, tt.wantServer, tt.wantWait)
			}
		})
	}
}

func TestLockHint(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantHint bool
	}{
		{name: "database locked", err: fmt.Errorf("open database: %w", database.ErrLocked), wantHint: true},
		{name: "badger locked", err: fmt.Errorf("open artifact store: %w", artifact.ErrStoreLocked), wantHint: true},
		{name: "other failure", err: errors.New("open database: permission denied")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lockHint(tt.err)
			if !errors.Is(got, tt.err) {
				t.Errorf("lockHint() = %v, want it to wrap %v", got, tt.err)
			}
			if hinted := strings.Contains(got.Error(), "-server"); hinted != tt.wantHint {
				t.Errorf("lockHint() = %q, hint present = %v, want %v", got, hinted, tt.wantHint)
			}
		})
	}
}
