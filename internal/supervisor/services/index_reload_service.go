// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/cinematch/internal/notify"
	"github.com/tomtom215/cinematch/internal/recommend/artifact"
	"github.com/tomtom215/cinematch/internal/recommend/index"
)

// IndexReloader loads the published artifact into the serving index.
// Satisfied by *recommend.Engine.
type IndexReloader interface {
	LoadIndex(ctx context.Context) index.State
	IndexVersion() string
}

// VersionSource reports the published artifact version.
// Satisfied by artifact.Store.
type VersionSource interface {
	CurrentVersion(ctx context.Context) (string, error)
}

// IndexReloadConfig configures IndexReloadService.
type IndexReloadConfig struct {
	// PollInterval is how often the published version is checked. Zero
	// disables polling.
	PollInterval time.Duration

	// MinGap is the minimum time between two reloads.
	MinGap time.Duration
}

// IndexReloadService keeps the serving index on the latest published
// artifact. It reloads on artifact-published notifications and on a
// version poll, whichever comes first, and never reloads more often than
// once per MinGap.
type IndexReloadService struct {
	reloader IndexReloader
	versions VersionSource
	sub      notify.Subscriber
	config   IndexReloadConfig
	limiter  *rate.Limiter
	logger   zerolog.Logger
	name     string
}

// NewIndexReloadService creates the service. sub may be nil.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewIndexReloadService(reloader IndexReloader, versions VersionSource, sub notify.Subscriber, cfg IndexReloadConfig, logger zerolog.Logger) *IndexReloadService {
	limit := rate.Inf
	if cfg.MinGap > 0 {
		limit = rate.Every(cfg.MinGap)
	}
	return &IndexReloadService{
		reloader: reloader,
		versions: versions,
		sub:      sub,
		config:   cfg,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger.With().Str("service", "index-reload").Logger(),
		name:     "index-reload-service",
	}
}

// Serve implements suture.Service. If the subscription cannot be opened
// the service keeps polling; if an open subscription ends, Serve returns
// an error so the supervisor restarts it.
func (s *IndexReloadService) Serve(ctx context.Context) error {
	var events <-chan notify.Event
	if s.sub != nil {
		ch, err := s.sub.Subscribe(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Notification subscribe failed, polling only")
		} else {
			events = ch
		}
	}

	var tick <-chan time.Time
	if s.config.PollInterval > 0 {
		ticker := time.NewTicker(s.config.PollInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	s.logger.Info().
		Bool("subscribed", events != nil).
		Dur("poll_interval", s.config.PollInterval).
		Msg("Index reload service running")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.New("artifact notification subscription closed")
			}
			s.logger.Debug().Str("version", ev.Version).Int("item_count", ev.ItemCount).Msg("Artifact published")
			if err := s.reloadIfNewer(ctx, ev.Version); err != nil {
				return err
			}

		case <-tick:
			version, err := s.versions.CurrentVersion(ctx)
			if err != nil {
				if !errors.Is(err, artifact.ErrNoArtifact) {
					s.logger.Warn().Err(err).Msg("Version poll failed")
				}
				continue
			}
			if err := s.reloadIfNewer(ctx, version); err != nil {
				return err
			}
		}
	}
}

// reloadIfNewer reloads when version differs from the loaded one. It only
// returns an error when ctx ends while waiting on the limiter.
func (s *IndexReloadService) reloadIfNewer(ctx context.Context, version string) error {
	current := s.reloader.IndexVersion()
	if version == "" || version == current {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("reload limiter: %w", err)
	}

	state := s.reloader.LoadIndex(ctx)
	loaded := s.reloader.IndexVersion()
	event := s.logger.Info()
	if loaded != version {
		event = s.logger.Warn()
	}
	event.
		Str("previous_version", current).
		Str("announced_version", version).
		Str("loaded_version", loaded).
		Str("state", state.String()).
		Msg("Index reloaded")
	return nil
}

// String implements fmt.Stringer.
func (s *IndexReloadService) String() string {
	return s.name
}
