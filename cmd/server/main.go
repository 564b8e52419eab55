// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/cinematch/internal/api"
	"github.com/tomtom215/cinematch/internal/config"
	"github.com/tomtom215/cinematch/internal/database"
	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/notify"
	"github.com/tomtom215/cinematch/internal/supervisor"
	"github.com/tomtom215/cinematch/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("artifact_backend", cfg.Artifact.Backend).
		Str("artifact_path", cfg.Artifact.Path).
		Str("notify_backend", cfg.Notify.Backend).
		Msg("Starting Cinematch server")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rc, err := initRecommend(ctx, cfg, db)
	if err != nil {
		// Close the database before the fatal exit skips the deferred close.
		if closeErr := db.Close(); closeErr != nil {
			logging.Error().Err(closeErr).Msg("Error closing database")
		}
		logging.Fatal().Err(err).Msg("Failed to initialize recommendation engine")
	}
	defer rc.Close()

	notifier, err := notify.Open(ctx, cfg.Notify)
	if err != nil {
		// Polling still picks up new versions.
		logging.Warn().Err(err).Str("backend", cfg.Notify.Backend).Msg("Notifier unavailable, falling back to polling")
		notifier = notify.Noop{}
	}
	defer func() {
		if err := notifier.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing notifier")
		}
	}()

	// Builds run here because this process holds the DuckDB and Badger locks.
	builder := services.NewIndexBuildService(rc.Engine, notifier, services.IndexBuildConfig{
		Interval: cfg.Recommend.RebuildInterval,
		Timeout:  cfg.Recommend.RebuildTimeout,
	}, logging.WithComponent("index-build"))

	handler, err := api.NewHandler(rc.Engine, db, db)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create API handler")
	}
	handler.SetBuilder(builder)
	if len(cfg.Server.CORSAllowedOrigins) == 1 && cfg.Server.CORSAllowedOrigins[0] == "*" {
		logging.Warn().Msg("CORS allows any origin (CORS_ALLOWED_ORIGINS=*)")
	}
	if cfg.Server.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFromServer(cfg.Server)), cfg.Server.Timeout)

	server := &http.Server{
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddDataService(services.NewIndexReloadService(rc.Engine, rc.Artifacts, notifier, services.IndexReloadConfig{
		PollInterval: cfg.Recommend.ReloadInterval,
		MinGap:       cfg.Recommend.ReloadMinGap,
	}, logging.WithComponent("index-reload")))
	logging.Info().
		Dur("poll_interval", cfg.Recommend.ReloadInterval).
		Str("notify_backend", notifier.Backend()).
		Msg("Index reload service added to supervisor tree")

	tree.AddDataService(builder)
	logging.Info().
		Dur("rebuild_interval", cfg.Recommend.RebuildInterval).
		Msg("Index build service added to supervisor tree")

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Addr(), cfg.Server.ShutdownTimeout, logging.WithComponent("http")))
	logging.Info().Str("addr", cfg.Server.Addr()).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	if err := awaitTree(ctx, errCh); err != nil {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Cinematch server stopped gracefully")
}

// awaitTree returns the tree's single result. ServeBackground delivers one
// value and never closes the channel, so it is received exactly once.
func awaitTree(ctx context.Context, errCh <-chan error) error {
	var err error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
		err = <-errCh
	case err = <-errCh:
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
