// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists config file locations searched in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/cinematch/config.yaml",
	"/etc/cinematch/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// listKeys accept a comma-separated string from the environment.
var listKeys = []string{
	"server.cors_allowed_origins",
}

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:                   "/data/cinematch.duckdb",
			MaxMemory:              "1GB",
			Threads:                0,
			PreserveInsertionOrder: true,
		},
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8080,
			Timeout:            30 * time.Second,
			ShutdownTimeout:    10 * time.Second,
			CORSAllowedOrigins: []string{"*"},
			RateLimitRequests:  100,
			RateLimitWindow:    time.Minute,
			RateLimitDisabled:  false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Recommend: RecommendConfig{
			MinRating:         3.0,
			DefaultTopN:       10,
			MaxTopN:           50,
			Fanout:            10,
			BuildWorkers:      0,
			RatingLockTimeout: 5 * time.Second,
			ReloadInterval:    time.Minute,
			ReloadMinGap:      time.Second,
			RebuildTimeout:    30 * time.Minute,
			FilmCacheSize:     10000,
			FilmCacheTTL:      5 * time.Minute,
		},
		Artifact: ArtifactConfig{
			Backend: ArtifactBackendFile,
			Path:    "/data/artifacts",
			Retain:  3,
		},
		Notify: NotifyConfig{
			Backend:   NotifyBackendNone,
			Channel:   "cinematch.artifact.published",
			RedisAddr: "127.0.0.1:6379",
			NATSURL:   "nats://127.0.0.1:4222",
		},
	}
}

// LoadWithKoanf layers struct defaults, the optional YAML file and the
// mapped environment variables, then validates the result.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath := locateConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := splitListValues(k); err != nil {
		return nil, fmt.Errorf("split list values: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// locateConfigFile returns the first existing candidate, preferring
// $CONFIG_PATH, or "" when none exists.
func locateConfigFile() string {
	candidates := DefaultConfigPaths
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		candidates = append([]string{p}, candidates...)
	}
	for _, p := range candidates {
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p
		}
	}
	return ""
}

// splitListValues splits comma-separated env values into slices.
// YAML lists are left untouched.
func splitListValues(k *koanf.Koanf) error {
	for _, key := range listKeys {
		raw, ok := k.Get(key).(string)
		if !ok {
			continue
		}
		parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' })
		items := parts[:0]
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				items = append(items, p)
			}
		}
		if len(items) == 0 {
			continue
		}
		if err := k.Set(key, items); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	"duckdb_path":                     "database.path",
	"duckdb_max_memory":               "database.max_memory",
	"duckdb_threads":                  "database.threads",
	"duckdb_preserve_insertion_order": "database.preserve_insertion_order",

	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"cors_allowed_origins":  "server.cors_allowed_origins",
	"rate_limit_requests":   "server.rate_limit_requests",
	"rate_limit_window":     "server.rate_limit_window",
	"disable_rate_limit":    "server.rate_limit_disabled",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"recommend_min_rating":          "recommend.min_rating",
	"recommend_default_top_n":       "recommend.default_top_n",
	"recommend_max_top_n":           "recommend.max_top_n",
	"recommend_fanout":              "recommend.fanout",
	"recommend_build_workers":       "recommend.build_workers",
	"recommend_rating_lock_timeout": "recommend.rating_lock_timeout",
	"recommend_reload_interval":     "recommend.reload_interval",
	"recommend_reload_min_gap":      "recommend.reload_min_gap",
	"recommend_rebuild_interval":    "recommend.rebuild_interval",
	"recommend_rebuild_timeout":     "recommend.rebuild_timeout",
	"recommend_film_cache_size":     "recommend.film_cache_size",
	"recommend_film_cache_ttl":      "recommend.film_cache_ttl",

	"artifact_backend": "artifact.backend",
	"artifact_path":    "artifact.path",
	"artifact_retain":  "artifact.retain",

	"notify_backend": "notify.backend",
	"notify_channel": "notify.channel",
	"redis_addr":     "notify.redis_addr",
	"redis_password": "notify.redis_password",
	"redis_db":       "notify.redis_db",
	"nats_url":       "notify.nats_url",
}

// envKey maps an environment variable to its koanf path; "" drops it.
func envKey(name string) string {
	return envMappings[strings.ToLower(name)]
}
