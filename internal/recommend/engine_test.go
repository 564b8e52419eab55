// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package recommend

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/tomtom215/cinematch/internal/models"
	"github.com/tomtom215/cinematch/internal/rating"
	"github.com/tomtom215/cinematch/internal/recommend/artifact"
	"github.com/tomtom215/cinematch/internal/recommend/index"
)

// mockCatalog implements CatalogSource for testing.
type mockCatalog struct {
	items      []models.CatalogItem
	err        error
	lastFilter models.CatalogFilter
	resolved   [][]int64
}

func (m *mockCatalog) FetchCatalog(_ context.Context, filter models.CatalogFilter) ([]models.CatalogItem, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, m.err
	}
	var out []models.CatalogItem
	for _, it := range m.items {
		if filter.ReleaseYear != 0 && it.ReleaseYear != filter.ReleaseYear {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func (m *mockCatalog) ResolveItems(_ context.Context, ids []int64) ([]models.CatalogItem, error) {
	m.resolved = append(m.resolved, append([]int64(nil), ids...))
	byID := make(map[int64]models.CatalogItem, len(m.items))
	for _, it := range m.items {
		byID[it.ID] = it
	}
	out := make([]models.CatalogItem, 0, len(ids))
	for _, id := range ids {
		if it, ok := byID[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

// mockRatingStore implements rating.Store over a fixed review list.
type mockRatingStore struct {
	mu      sync.Mutex
	reviews map[int64][]models.Review
	written map[int64]models.AggregateRating
}

func (m *mockRatingStore) WithItemLock(ctx context.Context, itemID int64, fn func(context.Context, rating.ItemTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reviews[itemID]; !ok {
		return rating.ErrUnknownItem
	}
	return fn(ctx, mockItemTx{store: m, itemID: itemID})
}

type mockItemTx struct {
	store  *mockRatingStore
	itemID int64
}

func (t mockItemTx) Reviews(context.Context) ([]models.Review, error) {
	return t.store.reviews[t.itemID], nil
}

func (t mockItemTx) WriteAggregate(_ context.Context, agg models.AggregateRating) error {
	t.store.written[t.itemID] = agg
	return nil
}

func filmCatalog() []models.CatalogItem {
	return []models.CatalogItem{
		{ID: 1, Title: "Alien", Director: "Ridley Scott", ReleaseYear: 1979, Genres: []models.Genre{{Name: "Horror"}, {Name: "SciFi"}}, Description: "crew of a spaceship hunted by a creature"},
		{ID: 2, Title: "Aliens", Director: "James Cameron", ReleaseYear: 1986, Genres: []models.Genre{{Name: "Action"}, {Name: "SciFi"}}, Description: "marines fight the creature on a colony"},
		{ID: 3, Title: "Prometheus", Director: "Ridley Scott", ReleaseYear: 2012, Genres: []models.Genre{{Name: "SciFi"}}, Description: "spaceship expedition seeks the origins of humanity"},
		{ID: 4, Title: "Notting Hill", Director: "Roger Michell", ReleaseYear: 1999, Genres: []models.Genre{{Name: "Romance"}}, Description: "bookshop owner falls for a famous actress"},
		{ID: 5, Title: "Love Actually", Director: "Richard Curtis", ReleaseYear: 2003, Genres: []models.Genre{{Name: "Romance"}}, Description: "interwoven love stories in london at christmas"},
	}
}

func newTestEngine(t *testing.T, catalog *mockCatalog, reviews ReviewSource) (*Engine, artifact.Store) {
	t.Helper()
	store, err := artifact.NewFileStore(t.TempDir(), 2)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	e, err := NewEngine(DefaultConfig(), Dependencies{
		Catalog:   catalog,
		Reviews:   reviews,
		Artifacts: store,
		Index:     index.New(),
	})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e, store
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Fanout = 0
	if _, err := NewEngine(cfg, Dependencies{}); err == nil {
		t.Fatal("NewEngine() with invalid config should fail")
	}
}

func TestEngine_BuildLoadQuery(t *testing.T) {
	ctx := context.Background()
	catalog := &mockCatalog{items: filmCatalog()}
	e, store := newTestEngine(t, catalog, &mockReviews{})

	if state := e.LoadIndex(ctx); state != index.StateLoadFailed {
		t.Fatalf("LoadIndex() before build = %v, want load_failed", state)
	}
	if got := e.Neighbors(ctx, "Alien", 3); len(got) != 0 {
		t.Errorf("Neighbors() before build = %v, want empty", got)
	}

	res, err := e.BuildIndex(ctx, models.CatalogFilter{})
	if err != nil {
		t.Fatalf("BuildIndex() error = %v", err)
	}
	if res.Items != 5 || res.Titles != 5 || res.Version == "" {
		t.Errorf("BuildIndex() = %+v", res)
	}
	if v, err := store.CurrentVersion(ctx); err != nil || v != res.Version {
		t.Errorf("CurrentVersion() = %q, %v; want %q", v, err, res.Version)
	}

	if state := e.LoadIndex(ctx); state != index.StateLoaded {
		t.Fatalf("LoadIndex() = %v, want loaded", state)
	}

	got := e.Neighbors(ctx, "Alien", 2)
	if len(got) != 2 {
		t.Fatalf("Neighbors(Alien, 2) = %v, want 2 ids", got)
	}
	for _, id := range got {
		if id == 4 || id == 5 || id == 1 {
			t.Errorf("Neighbors(Alien) returned unrelated or self item %d: %v", id, got)
		}
	}
	if byID := e.Neighbors(ctx, "1", 2); !reflect.DeepEqual(byID, got) {
		t.Errorf("Neighbors(\"1\") = %v, want %v", byID, got)
	}

	if st := e.Stats(); st.Version != res.Version || st.ItemCount != 5 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestEngine_BuildIndexFilter(t *testing.T) {
	ctx := context.Background()
	catalog := &mockCatalog{items: filmCatalog()}
	e, _ := newTestEngine(t, catalog, nil)

	filter := models.CatalogFilter{ReleaseYear: 1979}
	res, err := e.BuildIndex(ctx, filter)
	if err != nil {
		t.Fatalf("BuildIndex() error = %v", err)
	}
	if catalog.lastFilter != filter {
		t.Errorf("FetchCatalog filter = %+v, want %+v", catalog.lastFilter, filter)
	}
	if res.Items != 1 {
		t.Errorf("Items = %d, want 1", res.Items)
	}
}

func TestEngine_BuildIndexEmptyCatalog(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t, &mockCatalog{}, nil)

	if _, err := e.BuildIndex(ctx, models.CatalogFilter{}); !errors.Is(err, ErrEmptyCatalog) {
		t.Fatalf("BuildIndex() error = %v, want ErrEmptyCatalog", err)
	}
	if _, err := store.CurrentVersion(ctx); !errors.Is(err, artifact.ErrNoArtifact) {
		t.Errorf("empty build published an artifact: %v", err)
	}
}

func TestEngine_BuildIndexCatalogError(t *testing.T) {
	boom := errors.New("db down")
	e, _ := newTestEngine(t, &mockCatalog{err: boom}, nil)

	if _, err := e.BuildIndex(context.Background(), models.CatalogFilter{}); !errors.Is(err, boom) {
		t.Errorf("BuildIndex() error = %v, want %v", err, boom)
	}
}

func TestEngine_RecommendForUser(t *testing.T) {
	ctx := context.Background()
	reviews := &mockReviews{liked: []int64{1}, seen: []int64{1, 2}}
	e, _ := newTestEngine(t, &mockCatalog{items: filmCatalog()}, reviews)

	if _, err := e.BuildIndex(ctx, models.CatalogFilter{}); err != nil {
		t.Fatalf("BuildIndex() error = %v", err)
	}
	e.LoadIndex(ctx)

	got, err := e.RecommendForUser(ctx, uuid.New(), Options{TopN: 1})
	if err != nil {
		t.Fatalf("RecommendForUser() error = %v", err)
	}
	// Aliens (2) is seen, so Prometheus (3) is the best remaining match.
	if want := []int64{3}; !reflect.DeepEqual(got, want) {
		t.Errorf("RecommendForUser() = %v, want %v", got, want)
	}
	if reviews.lastMinRating != DefaultConfig().MinRating {
		t.Errorf("default MinRating not applied: %v", reviews.lastMinRating)
	}

	films, err := e.Resolve(ctx, append(got, 999))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(films) != 1 || films[0].Title != "Prometheus" {
		t.Errorf("Resolve() = %+v", films)
	}
}

func TestEngine_RecommendForUserUnloadedIndex(t *testing.T) {
	reviews := &mockReviews{liked: []int64{1}, seen: []int64{1}}
	e, _ := newTestEngine(t, &mockCatalog{items: filmCatalog()}, reviews)

	got, err := e.RecommendForUser(context.Background(), uuid.New(), Options{})
	if err != nil {
		t.Fatalf("RecommendForUser() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("RecommendForUser() on unloaded index = %v, want empty", got)
	}
}

func TestEngine_RecomputeRating(t *testing.T) {
	ratings := &mockRatingStore{
		reviews: map[int64][]models.Review{1: {{Rating: 4}, {Rating: 2}}},
		written: map[int64]models.AggregateRating{},
	}
	e, err := NewEngine(nil, Dependencies{Ratings: ratings})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	agg, err := e.RecomputeRating(context.Background(), 1)
	if err != nil {
		t.Fatalf("RecomputeRating() error = %v", err)
	}
	if agg.Rating == nil || *agg.Rating != 3.0 || agg.ReviewCount != 2 {
		t.Errorf("RecomputeRating() = %+v, want 3.0 over 2", agg)
	}

	if _, err := e.RecomputeRating(context.Background(), 2); !errors.Is(err, rating.ErrUnknownItem) {
		t.Errorf("RecomputeRating(unknown) error = %v, want ErrUnknownItem", err)
	}
}

func TestEngine_WithDefaultsMinRating(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinRating = 6
	e, err := NewEngine(cfg, Dependencies{})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{name: "unset uses configured default", in: 0, want: 6},
		{name: "negative uses configured default", in: -1, want: 6},
		{name: "one counts every review", in: 1, want: 1},
		{name: "explicit value kept", in: 8.5, want: 8.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.withDefaults(Options{MinRating: tt.in}).MinRating; got != tt.want {
				t.Errorf("withDefaults(MinRating=%v).MinRating = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestEngine_MissingDependencies(t *testing.T) {
	e, err := NewEngine(nil, Dependencies{})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	ctx := context.Background()

	if _, err := e.BuildIndex(ctx, models.CatalogFilter{}); err == nil {
		t.Error("BuildIndex() without stores should fail")
	}
	if _, err := e.RecommendForUser(ctx, uuid.New(), Options{}); err == nil {
		t.Error("RecommendForUser() without reviews should fail")
	}
	if _, err := e.RecomputeRating(ctx, 1); err == nil {
		t.Error("RecomputeRating() without rating store should fail")
	}
	if state := e.LoadIndex(ctx); state != index.StateUnloaded {
		t.Errorf("LoadIndex() without store = %v, want unloaded", state)
	}
}

func TestEngine_ResolveCache(t *testing.T) {
	catalog := &mockCatalog{items: filmCatalog()}
	ratings := &mockRatingStore{
		reviews: map[int64][]models.Review{3: {{Rating: 9}}},
		written: map[int64]models.AggregateRating{},
	}
	e, err := NewEngine(DefaultConfig(), Dependencies{Catalog: catalog, Ratings: ratings})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	ctx := context.Background()

	first, err := e.Resolve(ctx, []int64{3, 99, 1})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(first) != 2 || first[0].ID != 3 || first[1].ID != 1 {
		t.Fatalf("Resolve() = %+v, want films 3 and 1 in order", first)
	}

	if _, err := e.Resolve(ctx, []int64{1, 3, 2}); err != nil {
		t.Fatal(err)
	}
	if got := catalog.resolved[len(catalog.resolved)-1]; !reflect.DeepEqual(got, []int64{2}) {
		t.Errorf("second Resolve() fetched %v, want only the uncached [2]", got)
	}

	if _, err := e.RecomputeRating(ctx, 3); err != nil {
		t.Fatalf("RecomputeRating() error = %v", err)
	}
	if _, err := e.Resolve(ctx, []int64{3}); err != nil {
		t.Fatal(err)
	}
	if got := catalog.resolved[len(catalog.resolved)-1]; !reflect.DeepEqual(got, []int64{3}) {
		t.Errorf("Resolve() after recompute fetched %v, want [3]", got)
	}
}

// pausingCatalog serves one film whose rating can change between the
// moment ResolveItems reads it and the moment it returns.
// gatedCatalog blocks FetchCatalog until release is closed.
type gatedCatalog struct {
	*mockCatalog
	entered chan struct{}
	release chan struct{}
}

func (g *gatedCatalog) FetchCatalog(ctx context.Context, filter models.CatalogFilter) ([]models.CatalogItem, error) {
	close(g.entered)
	<-g.release
	return g.mockCatalog.FetchCatalog(ctx, filter)
}

func TestEngine_RebuildServesWhileBuilding(t *testing.T) {
	ctx := context.Background()
	catalog := &mockCatalog{items: filmCatalog()}
	e, _ := newTestEngine(t, catalog, nil)

	first, state, err := e.Rebuild(ctx, models.CatalogFilter{})
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if state != index.StateLoaded || e.IndexVersion() != first.Version {
		t.Fatalf("Rebuild() state = %v version = %q, want loaded %q", state, e.IndexVersion(), first.Version)
	}

	catalog.items = append(filmCatalog(), models.CatalogItem{
		ID: 6, Title: "Alien Covenant", Director: "Ridley Scott", ReleaseYear: 2017,
		Genres: []models.Genre{{Name: "Horror"}, {Name: "SciFi"}}, Description: "colony ship crew meets the creature",
	})

	stop := make(chan struct{})
	var wg sync.WaitGroup
	var emptyMu sync.Mutex
	empty := 0
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if len(e.Neighbors(ctx, "Alien", 2)) == 0 {
					emptyMu.Lock()
					empty++
					emptyMu.Unlock()
				}
			}
		}()
	}

	second, state, err := e.Rebuild(ctx, models.CatalogFilter{})
	close(stop)
	wg.Wait()
	if err != nil {
		t.Fatalf("second Rebuild() error = %v", err)
	}
	if empty != 0 {
		t.Errorf("Neighbors() returned empty %d times during rebuild", empty)
	}
	if state != index.StateLoaded || second.Version == first.Version || e.IndexVersion() != second.Version {
		t.Errorf("after second Rebuild() state = %v version = %q, want loaded %q", state, e.IndexVersion(), second.Version)
	}
	if second.Items != 6 {
		t.Errorf("second Rebuild() items = %d, want 6", second.Items)
	}
	if got := e.NeighborsByID(ctx, 6, 1); len(got) != 1 {
		t.Errorf("NeighborsByID(6) = %v, want the new film to be indexed", got)
	}
}

func TestEngine_RebuildInProgress(t *testing.T) {
	ctx := context.Background()
	gated := &gatedCatalog{
		mockCatalog: &mockCatalog{items: filmCatalog()},
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	e, _ := newTestEngine(t, gated.mockCatalog, nil)
	e.catalog = gated

	done := make(chan error, 1)
	go func() {
		_, _, err := e.Rebuild(ctx, models.CatalogFilter{})
		done <- err
	}()

	<-gated.entered
	if _, _, err := e.Rebuild(ctx, models.CatalogFilter{}); !errors.Is(err, ErrBuildInProgress) {
		t.Errorf("concurrent Rebuild() error = %v, want ErrBuildInProgress", err)
	}
	close(gated.release)

	if err := <-done; err != nil {
		t.Fatalf("first Rebuild() error = %v", err)
	}
	if e.IndexVersion() == "" {
		t.Error("IndexVersion() empty after rebuild")
	}
}

func TestEngine_RebuildEmptyCatalogKeepsServing(t *testing.T) {
	ctx := context.Background()
	catalog := &mockCatalog{items: filmCatalog()}
	e, _ := newTestEngine(t, catalog, nil)

	first, _, err := e.Rebuild(ctx, models.CatalogFilter{})
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	_, state, err := e.Rebuild(ctx, models.CatalogFilter{ReleaseYear: 1900})
	if !errors.Is(err, ErrEmptyCatalog) {
		t.Fatalf("Rebuild(empty filter) error = %v, want ErrEmptyCatalog", err)
	}
	if state != index.StateLoaded || e.IndexVersion() != first.Version {
		t.Errorf("after empty rebuild state = %v version = %q, want loaded %q", state, e.IndexVersion(), first.Version)
	}
}

type pausingCatalog struct {
	mu      sync.Mutex
	rating  float64
	pause   bool
	entered chan struct{}
	release chan struct{}
}

func (c *pausingCatalog) FetchCatalog(context.Context, models.CatalogFilter) ([]models.CatalogItem, error) {
	return nil, nil
}

func (c *pausingCatalog) ResolveItems(_ context.Context, ids []int64) ([]models.CatalogItem, error) {
	c.mu.Lock()
	r, pause := c.rating, c.pause
	c.pause = false
	c.mu.Unlock()
	if pause {
		close(c.entered)
		<-c.release
	}
	out := make([]models.CatalogItem, 0, len(ids))
	for _, id := range ids {
		rv := r
		out = append(out, models.CatalogItem{ID: id, Title: "Prometheus", Rating: &rv})
	}
	return out, nil
}

func (c *pausingCatalog) setRating(r float64) {
	c.mu.Lock()
	c.rating = r
	c.mu.Unlock()
}

func TestEngine_ResolveDoesNotCacheRowReadBeforeRecompute(t *testing.T) {
	catalog := &pausingCatalog{rating: 2, pause: true, entered: make(chan struct{}), release: make(chan struct{})}
	ratings := &mockRatingStore{
		reviews: map[int64][]models.Review{3: {{Rating: 9}}},
		written: map[int64]models.AggregateRating{},
	}
	e, err := NewEngine(DefaultConfig(), Dependencies{Catalog: catalog, Ratings: ratings})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	ctx := context.Background()

	type result struct {
		items []models.CatalogItem
		err   error
	}
	done := make(chan result, 1)
	go func() {
		items, err := e.Resolve(ctx, []int64{3})
		done <- result{items, err}
	}()

	<-catalog.entered
	if _, err := e.RecomputeRating(ctx, 3); err != nil {
		t.Fatalf("RecomputeRating() error = %v", err)
	}
	catalog.setRating(9)
	close(catalog.release)

	first := <-done
	if first.err != nil {
		t.Fatalf("Resolve() error = %v", first.err)
	}
	if got := *first.items[0].Rating; got != 2 {
		t.Fatalf("in-flight Resolve() rating = %v, want the row it read (2)", got)
	}

	again, err := e.Resolve(ctx, []int64{3})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got := *again[0].Rating; got != 9 {
		t.Errorf("Resolve() after recompute rating = %v, want 9", got)
	}
}

func TestEngine_ResolveCacheDisabled(t *testing.T) {
	catalog := &mockCatalog{items: filmCatalog()}
	cfg := DefaultConfig()
	cfg.FilmCacheSize = 0
	e, err := NewEngine(cfg, Dependencies{Catalog: catalog})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := e.Resolve(context.Background(), []int64{1}); err != nil {
			t.Fatal(err)
		}
	}
	if len(catalog.resolved) != 2 {
		t.Errorf("ResolveItems calls = %d, want 2 with the cache disabled", len(catalog.resolved))
	}
}
