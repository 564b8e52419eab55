// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

// Package index serves nearest-neighbor queries from a loaded similarity
// artifact.
//
// The active artifact is held behind an atomic pointer. Readers never take
// a lock and always see one complete snapshot; a reload builds the new
// snapshot off to the side and swaps it in with a single store.
//
// Queries never fail. While no artifact is loaded every query returns an
// empty result, which lets the service start and stay up without a model.
package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/metrics"
	"github.com/tomtom215/cinematch/internal/recommend/artifact"
)

// State is the lifecycle state of an Index.
type State int

const (
	StateUnloaded State = iota
	StateLoaded
	StateLoadFailed
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateLoadFailed:
		return "load_failed"
	default:
		return "unknown"
	}
}

// MarshalText lets State render as its name in JSON.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText parses a State name produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "unloaded":
		*s = StateUnloaded
	case "loaded":
		*s = StateLoaded
	case "load_failed":
		*s = StateLoadFailed
	default:
		return fmt.Errorf("unknown index state %q", text)
	}
	return nil
}

// Loader reads an artifact. artifact.Store satisfies it.
type Loader interface {
	Load(ctx context.Context) (*artifact.Artifact, error)
}

// snapshot is immutable once published.
type snapshot struct {
	state    State
	art      *artifact.Artifact
	idToIdx  map[int64]int
	loadedAt time.Time
	lastErr  string
}

// Index answers neighbor queries. The zero value is not usable; call New.
type Index struct {
	cur atomic.Pointer[snapshot]

	// loadMu serializes writers. Readers never take it.
	loadMu sync.Mutex
	now    func() time.Time
	logger zerolog.Logger
}

// New returns an unloaded Index.
func New() *Index {
	idx := &Index{
		now:    time.Now,
		logger: logging.WithComponent("similarity-index"),
	}
	idx.cur.Store(&snapshot{state: StateUnloaded})
	metrics.IndexState.Set(float64(StateUnloaded))
	return idx
}

// State returns the current lifecycle state.
func (x *Index) State() State { return x.cur.Load().state }

// Version returns the version of the active artifact, or "".
func (x *Index) Version() string {
	if a := x.cur.Load().art; a != nil {
		return a.Version
	}
	return ""
}

// Load reads an artifact from loader and swaps it in. If loading fails
// while an artifact is already active, the active one keeps serving and
// only the error is recorded. Otherwise the state becomes StateLoadFailed.
func (x *Index) Load(ctx context.Context, loader Loader) (State, error) {
	a, err := loader.Load(ctx)
	if err == nil {
		err = x.Swap(a)
	}
	if err != nil {
		x.recordFailure(err)
		return x.State(), err
	}
	return StateLoaded, nil
}

// Swap validates a and makes it the active artifact.
func (x *Index) Swap(a *artifact.Artifact) error {
	if a == nil {
		return fmt.Errorf("%w: nil artifact", artifact.ErrInconsistent)
	}
	if err := a.Validate(); err != nil {
		return err
	}

	idToIdx := make(map[int64]int, len(a.ItemIDs))
	for i, id := range a.ItemIDs {
		idToIdx[id] = i
	}
	next := &snapshot{
		state:    StateLoaded,
		art:      a,
		idToIdx:  idToIdx,
		loadedAt: x.now().UTC(),
	}

	x.loadMu.Lock()
	prev := x.cur.Swap(next)
	x.loadMu.Unlock()

	metrics.IndexState.Set(float64(StateLoaded))
	metrics.IndexItems.Set(float64(len(a.ItemIDs)))
	metrics.IndexLoadsTotal.Inc()

	event := x.logger.Info().
		Str("version", a.Version).
		Int("items", len(a.ItemIDs)).
		Int("titles", len(a.TitleToID))
	if prev.art != nil {
		event = event.Str("previous_version", prev.art.Version)
	}
	event.Msg("Similarity index loaded")
	return nil
}

func (x *Index) recordFailure(err error) {
	metrics.IndexLoadFailures.Inc()

	x.loadMu.Lock()
	prev := x.cur.Load()
	next := *prev
	next.lastErr = err.Error()
	if prev.art == nil {
		next.state = StateLoadFailed
	}
	x.cur.Store(&next)
	x.loadMu.Unlock()

	metrics.IndexState.Set(float64(next.state))

	// Repeated identical failures from polling are only logged once.
	if prev.lastErr == next.lastErr {
		x.logger.Debug().Err(err).Msg("Similarity index load still failing")
		return
	}

	event := x.logger.Error().Err(err).Str("state", next.state.String())
	var missing *artifact.MissingComponentError
	switch {
	case errors.As(err, &missing):
		event = event.Str("component", missing.Component).Str("version", missing.Version)
	case errors.Is(err, artifact.ErrNoArtifact):
		event = x.logger.Warn().Err(err).Str("state", next.state.String())
	}
	if prev.art != nil {
		event = event.Str("serving_version", prev.art.Version)
	}
	event.Msg("Similarity index load failed")
}

// Neighbors resolves identifier as a title first and as an integer item
// ID second, then returns up to topN most similar item IDs. Unknown
// identifiers and an unloaded index yield an empty result.
func (x *Index) Neighbors(identifier string, topN int) []int64 {
	snap := x.cur.Load()
	if snap.state != StateLoaded {
		metrics.RecordNeighborQuery(0)
		return []int64{}
	}
	if id, ok := snap.art.TitleToID[identifier]; ok {
		return x.neighbors(snap, id, topN)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(identifier), 10, 64)
	if err != nil {
		metrics.RecordNeighborQuery(0)
		return []int64{}
	}
	return x.neighbors(snap, id, topN)
}

// NeighborsByID returns up to topN item IDs most similar to id.
func (x *Index) NeighborsByID(id int64, topN int) []int64 {
	return x.neighbors(x.cur.Load(), id, topN)
}

func (x *Index) neighbors(snap *snapshot, id int64, topN int) []int64 {
	out := rank(snap, id, topN)
	metrics.RecordNeighborQuery(len(out))
	return out
}

type scored struct {
	id    int64
	score float32
}

// rank orders every other item by descending similarity, breaking ties by
// ascending item ID, and keeps the first topN. The query item is excluded
// by position so duplicates that also score 1 are still returned.
func rank(snap *snapshot, id int64, topN int) []int64 {
	if snap.state != StateLoaded || topN <= 0 {
		return []int64{}
	}
	row, ok := snap.idToIdx[id]
	if !ok {
		return []int64{}
	}

	a := snap.art
	scores := a.Matrix.Row(row)
	candidates := make([]scored, 0, len(scores)-1)
	for j, s := range scores {
		if j == row {
			continue
		}
		candidates = append(candidates, scored{id: a.ItemIDs[j], score: s})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].id < candidates[j].id
	})

	if topN > len(candidates) {
		topN = len(candidates)
	}
	out := make([]int64, topN)
	for i := 0; i < topN; i++ {
		out[i] = candidates[i].id
	}
	return out
}

// Stats describes the active artifact.
type Stats struct {
	State        State      `json:"state"`
	Loaded       bool       `json:"loaded"`
	ItemCount    int        `json:"item_count"`
	UniqueTitles int        `json:"unique_titles"`
	MatrixShape  [2]int     `json:"matrix_shape"`
	Version      string     `json:"version,omitempty"`
	BuiltAt      *time.Time `json:"built_at,omitempty"`
	LoadedAt     *time.Time `json:"loaded_at,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
}

// Stats reports the current state and artifact dimensions.
func (x *Index) Stats() Stats {
	snap := x.cur.Load()
	st := Stats{
		State:     snap.state,
		Loaded:    snap.state == StateLoaded,
		LastError: snap.lastErr,
	}
	if a := snap.art; a != nil {
		builtAt := a.BuiltAt
		loadedAt := snap.loadedAt
		st.ItemCount = len(a.ItemIDs)
		st.UniqueTitles = len(a.TitleToID)
		st.MatrixShape = [2]int{a.Matrix.N, a.Matrix.N}
		st.Version = a.Version
		st.BuiltAt = &builtAt
		st.LoadedAt = &loadedAt
	}
	return st
}
