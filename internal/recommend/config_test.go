// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package recommend

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() error = %v", err)
	}
	if cfg.MinRating != 3.0 {
		t.Errorf("MinRating = %v, want 3.0", cfg.MinRating)
	}
	if cfg.MaxTopN != 50 {
		t.Errorf("MaxTopN = %d, want 50", cfg.MaxTopN)
	}
	if cfg.RatingLockTimeout != 5*time.Second {
		t.Errorf("RatingLockTimeout = %v, want 5s", cfg.RatingLockTimeout)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "valid default", modify: func(c *Config) {}, wantErr: false},
		{name: "negative min rating", modify: func(c *Config) { c.MinRating = -1 }, wantErr: true},
		{name: "zero default top n", modify: func(c *Config) { c.DefaultTopN = 0 }, wantErr: true},
		{name: "max below default", modify: func(c *Config) { c.MaxTopN = 5 }, wantErr: true},
		{name: "zero fanout", modify: func(c *Config) { c.Fanout = 0 }, wantErr: true},
		{name: "negative workers", modify: func(c *Config) { c.BuildWorkers = -1 }, wantErr: true},
		{name: "negative lock timeout", modify: func(c *Config) { c.RatingLockTimeout = -time.Second }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClampTopN(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		in, want int
	}{
		{in: -3, want: 10},
		{in: 0, want: 10},
		{in: 1, want: 1},
		{in: 50, want: 50},
		{in: 51, want: 50},
	}
	for _, tt := range tests {
		if got := cfg.ClampTopN(tt.in); got != tt.want {
			t.Errorf("ClampTopN(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
