// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cinematch/internal/cache"
	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/metrics"
	"github.com/tomtom215/cinematch/internal/models"
	"github.com/tomtom215/cinematch/internal/rating"
	"github.com/tomtom215/cinematch/internal/recommend/artifact"
	"github.com/tomtom215/cinematch/internal/recommend/features"
	"github.com/tomtom215/cinematch/internal/recommend/index"
	"github.com/tomtom215/cinematch/internal/recommend/similarity"
)

// ErrEmptyCatalog is returned by BuildIndex when the filter selects no
// films. Nothing is written in that case.
var ErrEmptyCatalog = features.ErrEmptyCatalog

// ErrBuildInProgress is returned by Rebuild while another rebuild runs.
var ErrBuildInProgress = errors.New("recommend: index build already in progress")

// Dependencies are the collaborators an Engine needs. Catalog and
// Artifacts are required for builds; Index and Artifacts for serving;
// Reviews for personalized recommendations; Ratings for recomputation.
type Dependencies struct {
	Catalog   CatalogSource
	Reviews   ReviewSource
	Ratings   rating.Store
	Artifacts artifact.Store
	Index     *index.Index
}

// Engine is the entry point for building, loading and querying the
// similarity index and for rating recomputation. It is safe for
// concurrent use.
type Engine struct {
	config *Config
	logger zerolog.Logger

	catalog   CatalogSource
	artifacts artifact.Store
	index     *index.Index

	extractor  *features.Extractor
	builder    *similarity.Builder
	aggregator *Aggregator
	ratings    *rating.Aggregator

	// films caches resolved films; nil when disabled. cacheEpoch counts
	// rating changes; Resolve only caches rows read within one epoch.
	films      *cache.LRU[int64, models.CatalogItem]
	cacheMu    sync.Mutex
	cacheEpoch uint64

	rebuildMu sync.Mutex
}

// NewEngine creates an Engine. A nil cfg selects DefaultConfig().
func NewEngine(cfg *Config, deps Dependencies) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	idx := deps.Index
	if idx == nil {
		idx = index.New()
	}

	e := &Engine{
		config:    cfg,
		logger:    logging.WithComponent("recommend"),
		catalog:   deps.Catalog,
		artifacts: deps.Artifacts,
		index:     idx,
		extractor: features.NewExtractor(),
		builder:   similarity.NewBuilder(similarity.WithWorkers(cfg.BuildWorkers)),
	}
	if deps.Reviews != nil {
		e.aggregator = NewAggregator(idx, deps.Reviews)
	}
	if deps.Ratings != nil {
		e.ratings = rating.NewAggregator(deps.Ratings, cfg.RatingLockTimeout)
	}
	if cfg.FilmCacheSize > 0 {
		e.films = cache.NewLRU[int64, models.CatalogItem](cfg.FilmCacheSize, cfg.FilmCacheTTL)
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() *Config { return e.config }

// Index returns the similarity index the engine serves from.
func (e *Engine) Index() *index.Index { return e.index }

// BuildIndex extracts features for the films selected by filter, computes
// the similarity matrix and persists it as a new artifact version. The
// running index is not touched; servers pick the version up on reload.
func (e *Engine) BuildIndex(ctx context.Context, filter models.CatalogFilter) (*BuildResult, error) {
	if e.catalog == nil || e.artifacts == nil {
		return nil, errors.New("recommend: engine has no catalog or artifact store")
	}
	start := time.Now()

	items, err := e.catalog.FetchCatalog(ctx, filter)
	if err != nil {
		metrics.RecordIndexBuild("error", 0, time.Since(start))
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	if len(items) == 0 {
		metrics.RecordIndexBuild("empty_catalog", 0, time.Since(start))
		e.logger.Warn().Interface("filter", filter).Msg("Catalog is empty, no artifact written")
		return nil, ErrEmptyCatalog
	}

	e.logger.Info().
		Int("items", len(items)).
		Interface("filter", filter).
		Msg("Building similarity index")

	res, err := e.extractor.Extract(items)
	if err != nil {
		metrics.RecordIndexBuild("error", len(items), time.Since(start))
		return nil, fmt.Errorf("extract features: %w", err)
	}

	a, err := e.builder.Build(ctx, res, items)
	if err != nil {
		metrics.RecordIndexBuild("error", len(items), time.Since(start))
		return nil, fmt.Errorf("build similarity: %w", err)
	}

	if err := e.artifacts.Save(ctx, a); err != nil {
		metrics.RecordIndexBuild("error", len(items), time.Since(start))
		return nil, fmt.Errorf("save artifact: %w", err)
	}

	elapsed := time.Since(start)
	metrics.RecordIndexBuild("success", a.Len(), elapsed)

	result := &BuildResult{
		Version:    a.Version,
		Items:      a.Len(),
		Vocabulary: len(res.Vocabulary),
		Titles:     len(a.TitleToID),
		BuiltAt:    a.BuiltAt,
		Duration:   elapsed,
	}
	e.logger.Info().
		Str("version", result.Version).
		Int("items", result.Items).
		Int("vocabulary", result.Vocabulary).
		Dur("elapsed", elapsed).
		Msg("Similarity index built")
	return result, nil
}

// LoadIndex loads the published artifact into the index and returns the
// resulting state. Failures are logged and reflected in the state; they
// never stop the service.
func (e *Engine) LoadIndex(ctx context.Context) index.State {
	if e.artifacts == nil {
		return e.index.State()
	}
	state, _ := e.index.Load(ctx, e.artifacts) //nolint:errcheck // recorded by the index
	return state
}

// Rebuild builds a new artifact from the live catalog and swaps it into the
// running index. Queries keep reading the previous version until the swap.
// Only one rebuild runs at a time; a concurrent call gets ErrBuildInProgress.
func (e *Engine) Rebuild(ctx context.Context, filter models.CatalogFilter) (*BuildResult, index.State, error) {
	if !e.rebuildMu.TryLock() {
		return nil, e.index.State(), ErrBuildInProgress
	}
	defer e.rebuildMu.Unlock()

	result, err := e.BuildIndex(ctx, filter)
	if err != nil {
		return nil, e.index.State(), err
	}
	state, err := e.index.Load(ctx, e.artifacts)
	if err != nil {
		return result, state, fmt.Errorf("load rebuilt index %s: %w", result.Version, err)
	}
	e.logger.Info().
		Str("version", e.index.Version()).
		Str("state", state.String()).
		Msg("Rebuilt index is serving")
	return result, state, nil
}

// Neighbors returns up to topN films similar to identifier, which may be a
// title or a numeric ID. topN is clamped to the configured range.
func (e *Engine) Neighbors(ctx context.Context, identifier string, topN int) []int64 {
	if ctx.Err() != nil {
		return []int64{}
	}
	return e.index.Neighbors(identifier, e.config.ClampTopN(topN))
}

// NeighborsByID is Neighbors without title resolution.
func (e *Engine) NeighborsByID(ctx context.Context, id int64, topN int) []int64 {
	if ctx.Err() != nil {
		return []int64{}
	}
	return e.index.NeighborsByID(id, e.config.ClampTopN(topN))
}

// RecommendForUser returns personalized film IDs for userID. Unset options
// take the configured defaults.
func (e *Engine) RecommendForUser(ctx context.Context, userID uuid.UUID, opts Options) ([]int64, error) {
	if e.aggregator == nil {
		return nil, errors.New("recommend: engine has no review source")
	}
	opts = e.withDefaults(opts)

	ids, err := e.aggregator.RecommendForUser(ctx, userID, opts)
	if err != nil {
		metrics.RecordRecommendation("error", 0)
		return nil, err
	}

	result := "ok"
	if len(ids) == 0 {
		result = "empty"
	}
	metrics.RecordRecommendation(result, len(ids))

	logging.Ctx(ctx).Debug().
		Str("user_id", userID.String()).
		Int("top_n", opts.TopN).
		Int("fanout", opts.Fanout).
		Int("returned", len(ids)).
		Msg("Recommendations computed")
	return ids, nil
}

func (e *Engine) withDefaults(opts Options) Options {
	if opts.MinRating <= 0 {
		opts.MinRating = e.config.MinRating
	}
	opts.TopN = e.config.ClampTopN(opts.TopN)
	if opts.Fanout <= 0 {
		opts.Fanout = e.config.Fanout
	}
	if opts.Fanout > e.config.MaxTopN {
		opts.Fanout = e.config.MaxTopN
	}
	return opts
}

// RecomputeRating rewrites the aggregate rating of a film from its
// reviews.
func (e *Engine) RecomputeRating(ctx context.Context, itemID int64) (models.AggregateRating, error) {
	if e.ratings == nil {
		return models.AggregateRating{}, errors.New("recommend: engine has no rating store")
	}
	if e.films != nil {
		defer e.invalidateFilm(itemID)
	}
	return e.ratings.Recompute(ctx, itemID)
}

// invalidateFilm evicts itemID and starts a new cache epoch, so a Resolve
// that read the row before the change does not cache it afterwards.
func (e *Engine) invalidateFilm(itemID int64) {
	e.cacheMu.Lock()
	e.cacheEpoch++
	e.films.Remove(itemID)
	e.cacheMu.Unlock()
}

func (e *Engine) currentEpoch() uint64 {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	return e.cacheEpoch
}

// Resolve returns the films for ids in order, dropping missing ones.
func (e *Engine) Resolve(ctx context.Context, ids []int64) ([]models.CatalogItem, error) {
	if len(ids) == 0 {
		return []models.CatalogItem{}, nil
	}
	if e.catalog == nil {
		return nil, errors.New("recommend: engine has no catalog")
	}
	if e.films == nil {
		return e.catalog.ResolveItems(ctx, ids)
	}

	found := make(map[int64]models.CatalogItem, len(ids))
	var missing []int64
	for _, id := range ids {
		if item, ok := e.films.Get(id); ok {
			found[id] = item
		} else {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		epoch := e.currentEpoch()
		items, err := e.catalog.ResolveItems(ctx, missing)
		if err != nil {
			return nil, err
		}
		for i := range items {
			found[items[i].ID] = items[i]
		}
		e.cacheMu.Lock()
		if e.cacheEpoch == epoch {
			for i := range items {
				e.films.Add(items[i].ID, items[i])
			}
		}
		e.cacheMu.Unlock()
	}

	out := make([]models.CatalogItem, 0, len(ids))
	for _, id := range ids {
		if item, ok := found[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

// IndexVersion returns the version of the loaded artifact, or "" when none
// is loaded.
func (e *Engine) IndexVersion() string {
	return e.index.Version()
}

// Stats reports the state of the similarity index.
func (e *Engine) Stats() index.Stats {
	return e.index.Stats()
}
