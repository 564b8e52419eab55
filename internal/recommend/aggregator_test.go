// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package recommend

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"
)

// mockNeighbors returns fixed neighbor lists, truncated to topN.
type mockNeighbors map[int64][]int64

func (m mockNeighbors) NeighborsByID(id int64, topN int) []int64 {
	n := m[id]
	if topN < len(n) {
		n = n[:topN]
	}
	return n
}

// mockReviews implements ReviewSource for testing.
type mockReviews struct {
	liked    []int64
	seen     []int64
	likedErr error
	seenErr  error

	lastMinRating float64
}

func (m *mockReviews) LikedItemIDs(_ context.Context, _ uuid.UUID, minRating float64) ([]int64, error) {
	m.lastMinRating = minRating
	return m.liked, m.likedErr
}

func (m *mockReviews) SeenItemIDs(context.Context, uuid.UUID) ([]int64, error) {
	return m.seen, m.seenErr
}

const (
	itemA int64 = 1
	itemB int64 = 2
	itemC int64 = 3
	itemD int64 = 4
	itemE int64 = 5
)

func TestRecommendForUser_ABCExample(t *testing.T) {
	neighbors := mockNeighbors{itemA: {itemB, itemC}}
	reviews := &mockReviews{liked: []int64{itemA}, seen: []int64{itemA, itemC}}

	got, err := NewAggregator(neighbors, reviews).RecommendForUser(context.Background(), uuid.New(), Options{MinRating: 3, TopN: 10, Fanout: 2})
	if err != nil {
		t.Fatalf("RecommendForUser() error = %v", err)
	}
	if want := []int64{itemB}; !reflect.DeepEqual(got, want) {
		t.Errorf("RecommendForUser() = %v, want %v", got, want)
	}
}

func TestRecommendForUser_ColdStart(t *testing.T) {
	reviews := &mockReviews{seen: []int64{itemA}}

	got, err := NewAggregator(mockNeighbors{}, reviews).RecommendForUser(context.Background(), uuid.New(), Options{MinRating: 3, TopN: 10, Fanout: 5})
	if err != nil {
		t.Fatalf("RecommendForUser() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("RecommendForUser() = %#v, want empty non-nil slice", got)
	}
}

func TestRecommendForUser_FrequencyThenFirstSeen(t *testing.T) {
	neighbors := mockNeighbors{
		itemA: {itemC, itemD, itemE},
		itemB: {itemE, itemD},
	}
	reviews := &mockReviews{liked: []int64{itemA, itemB}, seen: []int64{itemA, itemB}}

	got, err := NewAggregator(neighbors, reviews).RecommendForUser(context.Background(), uuid.New(), Options{MinRating: 3, TopN: 10, Fanout: 3})
	if err != nil {
		t.Fatalf("RecommendForUser() error = %v", err)
	}
	// D and E appear twice; D was encountered first. C appears once.
	if want := []int64{itemD, itemE, itemC}; !reflect.DeepEqual(got, want) {
		t.Errorf("RecommendForUser() = %v, want %v", got, want)
	}
}

func TestRecommendForUser_NeverReturnsSeen(t *testing.T) {
	neighbors := mockNeighbors{
		itemA: {itemB, itemC, itemD},
		itemB: {itemA, itemC, itemE},
	}
	reviews := &mockReviews{liked: []int64{itemA, itemB}, seen: []int64{itemA, itemB, itemC}}

	got, err := NewAggregator(neighbors, reviews).RecommendForUser(context.Background(), uuid.New(), Options{MinRating: 3, TopN: 10, Fanout: 3})
	if err != nil {
		t.Fatalf("RecommendForUser() error = %v", err)
	}
	seen := map[int64]bool{itemA: true, itemB: true, itemC: true}
	for _, id := range got {
		if seen[id] {
			t.Errorf("RecommendForUser() returned seen item %d", id)
		}
	}
	if want := []int64{itemD, itemE}; !reflect.DeepEqual(got, want) {
		t.Errorf("RecommendForUser() = %v, want %v", got, want)
	}
}

func TestRecommendForUser_TopNAndFanout(t *testing.T) {
	neighbors := mockNeighbors{itemA: {itemB, itemC, itemD, itemE}}
	reviews := &mockReviews{liked: []int64{itemA}, seen: []int64{itemA}}
	agg := NewAggregator(neighbors, reviews)

	got, err := agg.RecommendForUser(context.Background(), uuid.New(), Options{MinRating: 3, TopN: 2, Fanout: 4})
	if err != nil {
		t.Fatalf("RecommendForUser() error = %v", err)
	}
	if want := []int64{itemB, itemC}; !reflect.DeepEqual(got, want) {
		t.Errorf("TopN=2: got %v, want %v", got, want)
	}

	got, err = agg.RecommendForUser(context.Background(), uuid.New(), Options{MinRating: 3, TopN: 10, Fanout: 1})
	if err != nil {
		t.Fatalf("RecommendForUser() error = %v", err)
	}
	if want := []int64{itemB}; !reflect.DeepEqual(got, want) {
		t.Errorf("Fanout=1: got %v, want %v", got, want)
	}
}

func TestRecommendForUser_PassesMinRating(t *testing.T) {
	reviews := &mockReviews{}
	_, err := NewAggregator(mockNeighbors{}, reviews).RecommendForUser(context.Background(), uuid.New(), Options{MinRating: 7.5, TopN: 1, Fanout: 1})
	if err != nil {
		t.Fatalf("RecommendForUser() error = %v", err)
	}
	if reviews.lastMinRating != 7.5 {
		t.Errorf("LikedItemIDs minRating = %v, want 7.5", reviews.lastMinRating)
	}
}

func TestRecommendForUser_Errors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		reviews *mockReviews
	}{
		{name: "liked query fails", reviews: &mockReviews{likedErr: boom}},
		{name: "seen query fails", reviews: &mockReviews{liked: []int64{itemA}, seenErr: boom}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAggregator(mockNeighbors{}, tt.reviews).RecommendForUser(context.Background(), uuid.New(), Options{TopN: 5, Fanout: 5})
			if !errors.Is(err, boom) {
				t.Errorf("RecommendForUser() error = %v, want %v", err, boom)
			}
		})
	}
}

func TestRecommendForUser_Cancelled(t *testing.T) {
	reviews := &mockReviews{liked: []int64{itemA}, seen: []int64{itemA}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAggregator(mockNeighbors{itemA: {itemB}}, reviews).RecommendForUser(ctx, uuid.New(), Options{TopN: 5, Fanout: 5})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("RecommendForUser() error = %v, want context.Canceled", err)
	}
}
