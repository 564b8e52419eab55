// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/cinematch/internal/config"
	"github.com/tomtom215/cinematch/internal/database"
	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/recommend"
	"github.com/tomtom215/cinematch/internal/recommend/artifact"
	"github.com/tomtom215/cinematch/internal/recommend/index"
)

// RecommendComponents holds the serving side of the recommendation engine.
type RecommendComponents struct {
	Engine    *recommend.Engine
	Artifacts artifact.Store
}

// Close releases the artifact store.
func (rc *RecommendComponents) Close() {
	if err := rc.Artifacts.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing artifact store")
	}
}

// initRecommend opens the artifact store, creates the engine and attempts
// the first index load. A failed load is not fatal: the server starts
// degraded and the reload service retries on the next published version.
func initRecommend(ctx context.Context, cfg *config.Config, db *database.DB) (*RecommendComponents, error) {
	store, err := artifact.Open(artifact.Backend(cfg.Artifact.Backend), cfg.Artifact.Path, cfg.Artifact.Retain)
	if err != nil {
		return nil, fmt.Errorf("open artifact store: %w", err)
	}

	engine, err := recommend.NewEngine(buildEngineConfig(cfg), recommend.Dependencies{
		Catalog:   db,
		Reviews:   db,
		Ratings:   db,
		Artifacts: store,
		Index:     index.New(),
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("create engine: %w", err)
	}

	state := engine.LoadIndex(ctx)
	stats := engine.Stats()
	event := logging.Info()
	if state != index.StateLoaded {
		event = logging.Warn().Str("last_error", stats.LastError)
	}
	event.
		Str("state", state.String()).
		Str("version", stats.Version).
		Int("items", stats.ItemCount).
		Msg("Initial index load finished")

	return &RecommendComponents{Engine: engine, Artifacts: store}, nil
}

// buildEngineConfig maps the recommend config section onto the engine.
func buildEngineConfig(cfg *config.Config) *recommend.Config {
	return &recommend.Config{
		MinRating:         cfg.Recommend.MinRating,
		DefaultTopN:       cfg.Recommend.DefaultTopN,
		MaxTopN:           cfg.Recommend.MaxTopN,
		Fanout:            cfg.Recommend.Fanout,
		BuildWorkers:      cfg.Recommend.BuildWorkers,
		RatingLockTimeout: cfg.Recommend.RatingLockTimeout,
		FilmCacheSize:     cfg.Recommend.FilmCacheSize,
		FilmCacheTTL:      cfg.Recommend.FilmCacheTTL,
	}
}
