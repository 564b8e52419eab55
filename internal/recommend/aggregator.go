// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package recommend

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Aggregator turns a user's liked items into a ranked list by counting how
// often each candidate shows up among the liked items' neighbors.
type Aggregator struct {
	neighbors NeighborFinder
	reviews   ReviewSource
}

// NewAggregator creates an Aggregator.
func NewAggregator(neighbors NeighborFinder, reviews ReviewSource) *Aggregator {
	return &Aggregator{neighbors: neighbors, reviews: reviews}
}

// RecommendForUser ranks candidates by frequency among the neighbors of
// the items the user liked. Items the user already reviewed are removed.
// Ties keep the order in which candidates were first encountered, and
// liked items are visited oldest review first, so the result is
// deterministic. A user with no liked items gets an empty result.
func (a *Aggregator) RecommendForUser(ctx context.Context, userID uuid.UUID, opts Options) ([]int64, error) {
	if opts.TopN <= 0 || opts.Fanout <= 0 {
		return []int64{}, nil
	}

	liked, err := a.reviews.LikedItemIDs(ctx, userID, opts.MinRating)
	if err != nil {
		return nil, fmt.Errorf("load liked items: %w", err)
	}
	if len(liked) == 0 {
		return []int64{}, nil
	}

	seenIDs, err := a.reviews.SeenItemIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load seen items: %w", err)
	}
	seen := make(map[int64]struct{}, len(seenIDs)+len(liked))
	for _, id := range seenIDs {
		seen[id] = struct{}{}
	}
	// Liked items are reviewed by definition, even if the seen query raced
	// with a concurrent delete.
	for _, id := range liked {
		seen[id] = struct{}{}
	}

	counts := make(map[int64]int)
	order := make([]int64, 0, len(liked)*opts.Fanout)
	for _, item := range liked {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, n := range a.neighbors.NeighborsByID(item, opts.Fanout) {
			if _, ok := counts[n]; !ok {
				order = append(order, n)
			}
			counts[n]++
		}
	}

	candidates := order[:0]
	for _, id := range order {
		if _, ok := seen[id]; ok {
			continue
		}
		candidates = append(candidates, id)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return counts[candidates[i]] > counts[candidates[j]]
	})

	if len(candidates) > opts.TopN {
		candidates = candidates[:opts.TopN]
	}
	out := make([]int64, len(candidates))
	copy(out, candidates)
	return out, nil
}
