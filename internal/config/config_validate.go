// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package config

import (
	"fmt"
	"strings"
)

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateRecommend(); err != nil {
		return err
	}
	if err := c.validateArtifact(); err != nil {
		return err
	}
	if err := c.validateNotify(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must be >= 0, got %d", c.Database.Threads)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if !c.Server.RateLimitDisabled {
		if c.Server.RateLimitRequests < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.Server.RateLimitRequests)
		}
		if c.Server.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %v", c.Server.RateLimitWindow)
		}
	}
	return nil
}

func (c *Config) validateRecommend() error {
	r := c.Recommend
	if r.MaxTopN < 1 {
		return fmt.Errorf("RECOMMEND_MAX_TOP_N must be positive, got %d", r.MaxTopN)
	}
	if r.DefaultTopN < 1 || r.DefaultTopN > r.MaxTopN {
		return fmt.Errorf("RECOMMEND_DEFAULT_TOP_N must be between 1 and %d, got %d", r.MaxTopN, r.DefaultTopN)
	}
	if r.Fanout < 1 {
		return fmt.Errorf("RECOMMEND_FANOUT must be positive, got %d", r.Fanout)
	}
	if r.BuildWorkers < 0 {
		return fmt.Errorf("RECOMMEND_BUILD_WORKERS must be >= 0, got %d", r.BuildWorkers)
	}
	if r.RatingLockTimeout <= 0 {
		return fmt.Errorf("RECOMMEND_RATING_LOCK_TIMEOUT must be positive, got %v", r.RatingLockTimeout)
	}
	if r.ReloadInterval < 0 || r.ReloadMinGap < 0 {
		return fmt.Errorf("reload durations must not be negative")
	}
	if r.RebuildInterval < 0 || r.RebuildTimeout < 0 {
		return fmt.Errorf("RECOMMEND_REBUILD_INTERVAL and RECOMMEND_REBUILD_TIMEOUT must not be negative")
	}
	if r.FilmCacheSize < 0 || r.FilmCacheTTL < 0 {
		return fmt.Errorf("RECOMMEND_FILM_CACHE_SIZE and RECOMMEND_FILM_CACHE_TTL must not be negative")
	}
	return nil
}

func (c *Config) validateArtifact() error {
	switch c.Artifact.Backend {
	case ArtifactBackendFile, ArtifactBackendBadger:
	default:
		return fmt.Errorf("ARTIFACT_BACKEND must be %q or %q, got %q",
			ArtifactBackendFile, ArtifactBackendBadger, c.Artifact.Backend)
	}
	if c.Artifact.Path == "" {
		return fmt.Errorf("ARTIFACT_PATH is required")
	}
	if c.Artifact.Retain < 1 {
		return fmt.Errorf("ARTIFACT_RETAIN must be at least 1, got %d", c.Artifact.Retain)
	}
	return nil
}

func (c *Config) validateNotify() error {
	switch c.Notify.Backend {
	case NotifyBackendNone:
		return nil
	case NotifyBackendRedis:
		if c.Notify.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when NOTIFY_BACKEND=redis")
		}
	case NotifyBackendNATS:
		if c.Notify.NATSURL == "" {
			return fmt.Errorf("NATS_URL is required when NOTIFY_BACKEND=nats")
		}
	default:
		return fmt.Errorf("NOTIFY_BACKEND must be one of none, redis, nats; got %q", c.Notify.Backend)
	}
	if c.Notify.Channel == "" {
		return fmt.Errorf("NOTIFY_CHANNEL is required when notifications are enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error; got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
