// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package recommend

import (
	"fmt"
	"time"
)

// Config contains the tunables of the recommendation engine.
type Config struct {
	// MinRating is the lowest review rating that counts as "liked".
	MinRating float64 `json:"min_rating"`

	// DefaultTopN is used when a request leaves TopN unset.
	DefaultTopN int `json:"default_top_n"`

	// MaxTopN is the upper clamp for TopN.
	MaxTopN int `json:"max_top_n"`

	// Fanout is the number of neighbors pulled per liked item.
	Fanout int `json:"fanout"`

	// BuildWorkers bounds similarity rows computed in parallel.
	// Zero selects runtime.NumCPU().
	BuildWorkers int `json:"build_workers"`

	// RatingLockTimeout bounds the wait for a film's rating lock.
	RatingLockTimeout time.Duration `json:"rating_lock_timeout"`

	// FilmCacheSize bounds the resolved films kept between requests.
	// Zero disables the cache.
	FilmCacheSize int `json:"film_cache_size"`

	// FilmCacheTTL is how long a resolved film is served from the cache.
	FilmCacheTTL time.Duration `json:"film_cache_ttl"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() *Config {
	return &Config{
		MinRating:         3.0,
		DefaultTopN:       10,
		MaxTopN:           50,
		Fanout:            10,
		BuildWorkers:      0,
		RatingLockTimeout: 5 * time.Second,
		FilmCacheSize:     10000,
		FilmCacheTTL:      5 * time.Minute,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.MinRating < 0 {
		return fmt.Errorf("min_rating must be non-negative, got %f", c.MinRating)
	}
	if c.DefaultTopN <= 0 {
		return fmt.Errorf("default_top_n must be positive, got %d", c.DefaultTopN)
	}
	if c.MaxTopN < c.DefaultTopN {
		return fmt.Errorf("max_top_n must be >= default_top_n, got %d < %d", c.MaxTopN, c.DefaultTopN)
	}
	if c.Fanout <= 0 {
		return fmt.Errorf("fanout must be positive, got %d", c.Fanout)
	}
	if c.BuildWorkers < 0 {
		return fmt.Errorf("build_workers must be non-negative, got %d", c.BuildWorkers)
	}
	if c.RatingLockTimeout < 0 {
		return fmt.Errorf("rating_lock_timeout must be non-negative, got %v", c.RatingLockTimeout)
	}
	if c.FilmCacheSize < 0 || c.FilmCacheTTL < 0 {
		return fmt.Errorf("film cache size and ttl must be non-negative")
	}
	return nil
}

// ClampTopN maps n into [1, MaxTopN]. Zero or negative selects DefaultTopN.
func (c *Config) ClampTopN(n int) int {
	if n <= 0 {
		return c.DefaultTopN
	}
	if n > c.MaxTopN {
		return c.MaxTopN
	}
	return n
}
