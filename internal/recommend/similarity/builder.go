// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

// Package similarity computes the dense pairwise cosine similarity matrix
// over TF-IDF vectors and packages it as an artifact.
package similarity

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/models"
	"github.com/tomtom215/cinematch/internal/recommend/artifact"
	"github.com/tomtom215/cinematch/internal/recommend/features"
)

// Builder turns extraction results into similarity artifacts.
type Builder struct {
	workers int
	now     func() time.Time
	logger  zerolog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithWorkers bounds the number of rows computed concurrently.
// Zero or negative selects runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithClock overrides the build timestamp source.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		workers: runtime.NumCPU(),
		now:     time.Now,
		logger:  logging.WithComponent("similarity-builder"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// posting is one (document, weight) entry of a term's inverted list.
type posting struct {
	doc    int32
	weight float64
}

// Build computes the similarity matrix for res and the title lookup for
// items. items must be the catalog res was extracted from, in the same
// order.
func (b *Builder) Build(ctx context.Context, res *features.Result, items []models.CatalogItem) (*artifact.Artifact, error) {
	if res == nil || len(res.Vectors) == 0 {
		return nil, features.ErrEmptyCatalog
	}
	if len(items) != len(res.ItemIDs) {
		return nil, fmt.Errorf("similarity: %d items but %d vectors", len(items), len(res.ItemIDs))
	}

	start := time.Now()
	m, err := b.Matrix(ctx, res.Vectors, len(res.Vocabulary))
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(res.ItemIDs))
	copy(ids, res.ItemIDs)

	a := &artifact.Artifact{
		Version:   artifact.NewVersion(),
		BuiltAt:   b.now().UTC(),
		ItemIDs:   ids,
		TitleToID: TitleIndex(items),
		Matrix:    m,
	}

	b.logger.Info().
		Str("version", a.Version).
		Int("items", len(ids)).
		Int("vocabulary", len(res.Vocabulary)).
		Int("titles", len(a.TitleToID)).
		Dur("elapsed", time.Since(start)).
		Msg("Similarity matrix built")

	return a, nil
}

// Matrix computes the cosine similarity of every pair of L2-normalized
// vectors. Only the upper triangle is computed; each value is mirrored
// into the lower triangle so the result is exactly symmetric. Values are
// clamped to [0,1] and the diagonal is 1.
func (b *Builder) Matrix(ctx context.Context, vectors []features.Vector, vocabSize int) (*artifact.Matrix, error) {
	n := len(vectors)
	m := artifact.NewMatrix(n)
	if n == 0 {
		return m, nil
	}

	postings := invert(vectors, vocabSize)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		row := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			computeRow(m, vectors[row], postings, row)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("compute similarity rows: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// computeRow fills M[i][j] and M[j][i] for every j >= i. Row i is the only
// writer of those cells, so rows can run concurrently.
func computeRow(m *artifact.Matrix, v features.Vector, postings [][]posting, i int) {
	n := m.N
	acc := make([]float64, n-i)
	for k, term := range v.Terms {
		w := v.Weights[k]
		for _, p := range postings[term] {
			j := int(p.doc)
			if j <= i {
				continue
			}
			acc[j-i] += w * p.weight
		}
	}

	m.Set(i, i, 1)
	for off := 1; off < len(acc); off++ {
		s := float32(clamp(acc[off]))
		j := i + off
		m.Set(i, j, s)
		m.Set(j, i, s)
	}
}

// invert builds per-term postings lists ordered by document index.
func invert(vectors []features.Vector, vocabSize int) [][]posting {
	counts := make([]int, vocabSize)
	for _, v := range vectors {
		for _, t := range v.Terms {
			counts[t]++
		}
	}
	postings := make([][]posting, vocabSize)
	for t, c := range counts {
		if c > 0 {
			postings[t] = make([]posting, 0, c)
		}
	}
	for d, v := range vectors {
		for k, t := range v.Terms {
			postings[t] = append(postings[t], posting{doc: int32(d), weight: v.Weights[k]}) //nolint:gosec // catalog size fits int32
		}
	}
	return postings
}

func clamp(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}

// TitleIndex maps each non-empty title to its item ID. When titles
// collide the item that appears last in items wins.
func TitleIndex(items []models.CatalogItem) map[string]int64 {
	titles := make(map[string]int64, len(items))
	for i := range items {
		if items[i].Title == "" {
			continue
		}
		titles[items[i].Title] = items[i].ID
	}
	return titles
}
