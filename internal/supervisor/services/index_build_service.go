// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cinematch/internal/models"
	"github.com/tomtom215/cinematch/internal/notify"
	"github.com/tomtom215/cinematch/internal/recommend"
	"github.com/tomtom215/cinematch/internal/recommend/index"
)

// IndexRebuilder builds an artifact and swaps it into the serving index.
// Satisfied by *recommend.Engine.
type IndexRebuilder interface {
	Rebuild(ctx context.Context, filter models.CatalogFilter) (*recommend.BuildResult, index.State, error)
}

// IndexBuildConfig configures IndexBuildService.
type IndexBuildConfig struct {
	// Interval schedules a full-catalog rebuild. Zero disables it.
	Interval time.Duration

	// Timeout bounds a single rebuild. Zero means no limit.
	Timeout time.Duration
}

// IndexBuildService runs index builds inside the server process, which
// owns the database and artifact store locks. Builds come from Request
// (the admin API) and from the optional schedule. At most one request is
// queued behind the running build; further requests are refused until it
// starts.
type IndexBuildService struct {
	builder  IndexRebuilder
	pub      notify.Publisher
	config   IndexBuildConfig
	requests chan buildRequest
	logger   zerolog.Logger
	name     string

	mu     sync.Mutex
	lastID int64
	status models.BuildStatus
}

type buildRequest struct {
	id     int64
	filter models.CatalogFilter
}

// NewIndexBuildService creates the service. pub may be nil.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewIndexBuildService(builder IndexRebuilder, pub notify.Publisher, cfg IndexBuildConfig, logger zerolog.Logger) *IndexBuildService {
	return &IndexBuildService{
		builder:  builder,
		pub:      pub,
		config:   cfg,
		requests: make(chan buildRequest, 1),
		logger:   logger.With().Str("service", "index-build").Logger(),
		name:     "index-build-service",
	}
}

// Request queues a build of the films selected by filter and returns its
// request ID. ok is false when a build is already queued.
func (s *IndexBuildService) Request(filter models.CatalogFilter) (id int64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case s.requests <- buildRequest{id: s.lastID + 1, filter: filter}:
		s.lastID++
		s.status.Pending = true
		return s.lastID, true
	default:
		return 0, false
	}
}

// Status returns a snapshot of the builder state.
func (s *IndexBuildService) Status() models.BuildStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Serve implements suture.Service. A failed build is logged and recorded
// in Status; it does not restart the service.
func (s *IndexBuildService) Serve(ctx context.Context) error {
	var tick <-chan time.Time
	if s.config.Interval > 0 {
		ticker := time.NewTicker(s.config.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	s.logger.Info().
		Dur("interval", s.config.Interval).
		Dur("timeout", s.config.Timeout).
		Msg("Index build service running")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-s.requests:
			s.build(ctx, req.id, req.filter)
		case <-tick:
			s.build(ctx, 0, models.CatalogFilter{})
		}
	}
}

func (s *IndexBuildService) build(ctx context.Context, requestID int64, filter models.CatalogFilter) {
	trigger := "schedule"
	if requestID > 0 {
		trigger = "request"
	}
	started := time.Now().UTC()
	s.mu.Lock()
	s.status.Running = true
	s.status.Pending = len(s.requests) > 0
	s.status.LastFilter = filter
	s.status.LastStarted = &started
	s.mu.Unlock()

	buildCtx := ctx
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		buildCtx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	result, state, err := s.builder.Rebuild(buildCtx, filter)

	finished := time.Now().UTC()
	s.mu.Lock()
	s.status.Running = false
	s.status.Builds++
	s.status.LastRequest = requestID
	s.status.LastFinished = &finished
	if err != nil {
		s.status.LastError = err.Error()
	} else {
		s.status.LastError = ""
		s.status.LastVersion = result.Version
		s.status.LastItems = result.Items
	}
	s.mu.Unlock()

	switch {
	case err == nil:
	case errors.Is(err, recommend.ErrEmptyCatalog):
		s.logger.Warn().Str("trigger", trigger).Interface("filter", filter).Msg("Catalog is empty, index unchanged")
		return
	case ctx.Err() != nil:
		s.logger.Info().Str("trigger", trigger).Msg("Index build abandoned on shutdown")
		return
	default:
		s.logger.Error().Err(err).
			Str("trigger", trigger).
			Str("state", state.String()).
			Interface("filter", filter).
			Msg("Index build failed")
		return
	}

	s.logger.Info().
		Str("trigger", trigger).
		Str("version", result.Version).
		Int("items", result.Items).
		Dur("elapsed", finished.Sub(started)).
		Msg("Index rebuilt and serving")

	if s.pub == nil {
		return
	}
	ev := notify.Event{Version: result.Version, BuiltAt: result.BuiltAt, ItemCount: result.Items}
	if err := s.pub.Publish(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Str("version", result.Version).Msg("Failed to announce rebuilt index")
	}
}

// String implements fmt.Stringer.
func (s *IndexBuildService) String() string {
	return s.name
}
