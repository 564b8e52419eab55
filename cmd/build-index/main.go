// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

// Command build-index builds a similarity artifact from the film catalog
// and announces the new version to running servers.
//
// Usage:
//
//	build-index [-genre-id N] [-director NAME] [-release-year YYYY] [-seed films.json]
//	build-index -server http://host:8080 [-wait] [filters]
//
// Without -server the command opens the database and artifact store
// itself. DuckDB and Badger allow one process per file, so this offline
// mode fails with a lock error while a server runs against the same
// paths. With -server the running server builds and loads the index in
// process (POST /api/v1/recommendations/build); -wait blocks until that
// build finished.
//
// Configuration comes from the same sources as the server (config.yaml and
// environment). The command exits 1 when the build fails; no artifact
// version becomes visible in that case. A failed notification is logged
// but does not fail the build, since servers also poll the artifact store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/cinematch/internal/config"
	"github.com/tomtom215/cinematch/internal/database"
	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/models"
	"github.com/tomtom215/cinematch/internal/notify"
	"github.com/tomtom215/cinematch/internal/recommend"
	"github.com/tomtom215/cinematch/internal/recommend/artifact"
)

type options struct {
	filter    models.CatalogFilter
	seedPath  string
	serverURL string
	wait      bool
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("build-index", flag.ContinueOnError)
	opts := &options{}
	fs.IntVar(&opts.filter.GenreID, "genre-id", 0, "only include films with this genre id")
	fs.StringVar(&opts.filter.Director, "director", "", "only include films whose director contains this text (case-insensitive)")
	fs.IntVar(&opts.filter.ReleaseYear, "release-year", 0, "only include films released in this year")
	fs.StringVar(&opts.seedPath, "seed", "", "JSON file of films and reviews to load before building")
	fs.StringVar(&opts.serverURL, "server", "", "base URL of a running server to build on, e.g. http://localhost:8080")
	fs.BoolVar(&opts.wait, "wait", false, "with -server, wait for the build to finish")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if opts.filter.GenreID < 0 || opts.filter.ReleaseYear < 0 {
		return nil, fmt.Errorf("genre-id and release-year must not be negative")
	}
	if opts.serverURL != "" {
		u, err := url.Parse(opts.serverURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("server must be an http(s) URL, got %q", opts.serverURL)
		}
		if opts.seedPath != "" {
			return nil, fmt.Errorf("seed writes the database directly and cannot be combined with server")
		}
	} else if opts.wait {
		return nil, fmt.Errorf("wait requires server")
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	ctx = logging.ContextWithNewCorrelationID(ctx)

	if opts.serverURL != "" {
		st, err := runRemote(ctx, opts)
		stop()
		if err != nil {
			logging.Error().Err(err).Str("server", opts.serverURL).Msg("Server index build failed")
			os.Exit(1)
		}
		logging.Info().
			Str("version", st.LastVersion).
			Int("items", st.LastItems).
			Bool("waited", opts.wait).
			Msg("Server index build request finished")
		return
	}

	res, err := run(ctx, cfg, opts)
	stop()
	if err != nil {
		logging.Error().Err(err).Msg("Index build failed")
		os.Exit(1)
	}
	logging.Info().
		Str("version", res.Version).
		Int("items", res.Items).
		Int("vocabulary", res.Vocabulary).
		Dur("duration", res.Duration).
		Msg("Index build finished")
}

func run(ctx context.Context, cfg *config.Config, opts *options) (*recommend.BuildResult, error) {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, lockHint(fmt.Errorf("open database: %w", err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	if opts.seedPath != "" {
		if err := seed(ctx, db, opts.seedPath); err != nil {
			return nil, err
		}
	}

	store, err := artifact.Open(artifact.Backend(cfg.Artifact.Backend), cfg.Artifact.Path, cfg.Artifact.Retain)
	if err != nil {
		return nil, lockHint(fmt.Errorf("open artifact store: %w", err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing artifact store")
		}
	}()

	engine, err := recommend.NewEngine(&recommend.Config{
		MinRating:         cfg.Recommend.MinRating,
		DefaultTopN:       cfg.Recommend.DefaultTopN,
		MaxTopN:           cfg.Recommend.MaxTopN,
		Fanout:            cfg.Recommend.Fanout,
		BuildWorkers:      cfg.Recommend.BuildWorkers,
		RatingLockTimeout: cfg.Recommend.RatingLockTimeout,
	}, recommend.Dependencies{Catalog: db, Artifacts: store})
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	res, err := engine.BuildIndex(ctx, opts.filter)
	if err != nil {
		return nil, err
	}

	announce(ctx, cfg.Notify, res)
	return res, nil
}

// lockHint points at -server when a running server holds a store lock.
func lockHint(err error) error {
	if errors.Is(err, database.ErrLocked) || errors.Is(err, artifact.ErrStoreLocked) {
		return fmt.Errorf("%w (a server is running against these paths; rerun with -server <url>)", err)
	}
	return err
}

func seed(ctx context.Context, db *database.DB, path string) error {
	f, err := os.Open(path) //nolint:gosec // path is an operator-supplied flag
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	res, err := db.Seed(ctx, f)
	if err != nil {
		return fmt.Errorf("seed database: %w", err)
	}
	logging.Info().Str("file", path).Int("films", res.Films).Int("reviews", res.Reviews).Msg("Seed file loaded")
	return nil
}

//nolint:gocritic // config passed by value from the loaded Config
func announce(ctx context.Context, cfg config.NotifyConfig, res *recommend.BuildResult) {
	notifier, err := notify.Open(ctx, cfg)
	if err != nil {
		logging.Warn().Err(err).Str("backend", cfg.Backend).Msg("Notifier unavailable, servers will pick the version up by polling")
		return
	}
	defer func() {
		if err := notifier.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing notifier")
		}
	}()

	ev := notify.Event{Version: res.Version, BuiltAt: res.BuiltAt, ItemCount: res.Items}
	if err := notifier.Publish(ctx, ev); err != nil {
		logging.Warn().Err(err).Str("backend", notifier.Backend()).Msg("Failed to publish artifact notification")
		return
	}
	logging.Info().Str("backend", notifier.Backend()).Str("version", res.Version).Msg("Artifact notification published")
}
