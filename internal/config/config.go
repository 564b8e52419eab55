// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the complete application configuration.
type Config struct {
	Database  DatabaseConfig  `koanf:"database"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Recommend RecommendConfig `koanf:"recommend"`
	Artifact  ArtifactConfig  `koanf:"artifact"`
	Notify    NotifyConfig    `koanf:"notify"`
}

// Load reads configuration from defaults, an optional YAML file and
// environment variables, in increasing priority.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// DatabaseConfig holds DuckDB settings for the catalog and review store.
type DatabaseConfig struct {
	Path                   string `koanf:"path"`
	MaxMemory              string `koanf:"max_memory"`
	Threads                int    `koanf:"threads"`                  // 0 = NumCPU
	PreserveInsertionOrder bool   `koanf:"preserve_insertion_order"` // default true
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// CORSAllowedOrigins lists origins allowed by the CORS middleware.
	// Default: ["*"]
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// RateLimitRequests requests per RateLimitWindow per client IP.
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is json (production) or console (development).
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// RecommendConfig holds the online recommendation and rating parameters.
type RecommendConfig struct {
	// MinRating is the lowest review rating that counts as "liked".
	// Default: 3.0
	MinRating float64 `koanf:"min_rating"`

	// DefaultTopN is used when a request does not specify top_n.
	// Default: 10
	DefaultTopN int `koanf:"default_top_n"`

	// MaxTopN is the upper clamp for top_n on every endpoint.
	// Default: 50
	MaxTopN int `koanf:"max_top_n"`

	// Fanout is the number of neighbors pulled per liked film.
	// Default: 10
	Fanout int `koanf:"fanout"`

	// BuildWorkers bounds similarity rows computed in parallel (0 = NumCPU).
	BuildWorkers int `koanf:"build_workers"`

	// RatingLockTimeout bounds the wait for a film's rating lock.
	// Default: 5s
	RatingLockTimeout time.Duration `koanf:"rating_lock_timeout"`

	// ReloadInterval is how often the server polls the artifact store for a
	// new version. Zero disables polling.
	// Default: 1m
	ReloadInterval time.Duration `koanf:"reload_interval"`

	// ReloadMinGap is the minimum time between two index reloads.
	// Default: 1s
	ReloadMinGap time.Duration `koanf:"reload_min_gap"`

	// RebuildInterval is how often the server rebuilds the index from the
	// live catalog. Zero disables scheduled rebuilds; POST
	// /api/v1/recommendations/build still works.
	// Default: 0
	RebuildInterval time.Duration `koanf:"rebuild_interval"`

	// RebuildTimeout bounds one in-process rebuild (0 = no limit).
	// Default: 30m
	RebuildTimeout time.Duration `koanf:"rebuild_timeout"`

	// FilmCacheSize bounds resolved films cached by the server (0 = off).
	// Default: 10000
	FilmCacheSize int `koanf:"film_cache_size"`

	// FilmCacheTTL is the lifetime of a cached film.
	// Default: 5m
	FilmCacheTTL time.Duration `koanf:"film_cache_ttl"`
}

// Artifact storage backends.
const (
	ArtifactBackendFile   = "file"
	ArtifactBackendBadger = "badger"
)

// ArtifactConfig selects where similarity artifacts are persisted.
type ArtifactConfig struct {
	// Backend is "file" (versioned directories) or "badger".
	Backend string `koanf:"backend"`

	// Path is the artifact root directory (file) or the Badger directory.
	Path string `koanf:"path"`

	// Retain is the number of versions kept after a successful build.
	// Default: 3
	Retain int `koanf:"retain"`
}

// Notification backends.
const (
	NotifyBackendNone  = "none"
	NotifyBackendRedis = "redis"
	NotifyBackendNATS  = "nats"
)

// NotifyConfig configures artifact-published notifications between the
// build command and serving processes.
type NotifyConfig struct {
	Backend string `koanf:"backend"`

	// Channel is the Redis channel or NATS subject.
	// Default: cinematch.artifact.published
	Channel string `koanf:"channel"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	NATSURL string `koanf:"nats_url"`
}

// Addr returns the HTTP listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
