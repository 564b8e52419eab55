// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package api

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cinematch/internal/models"
	"github.com/tomtom215/cinematch/internal/recommend"
	"github.com/tomtom215/cinematch/internal/recommend/artifact"
	"github.com/tomtom215/cinematch/internal/recommend/index"
	"github.com/tomtom215/cinematch/internal/supervisor/services"
)

type fakeBuilder struct {
	mu      sync.Mutex
	accept  bool
	filters []models.CatalogFilter
	status  models.BuildStatus
}

func (f *fakeBuilder) Request(filter models.CatalogFilter) (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.accept {
		return 0, false
	}
	f.filters = append(f.filters, filter)
	f.status.Pending = true
	return int64(len(f.filters)), true
}

func (f *fakeBuilder) Status() models.BuildStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func newBuildServer(t *testing.T, engine Recommender, b IndexBuilder) http.Handler {
	t.Helper()
	h, err := NewHandler(engine, &fakeReviews{}, nil)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	if b != nil {
		h.SetBuilder(b)
	}
	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitDisabled = true
	return NewRouter(h, NewChiMiddleware(cfg), 5*time.Second).Setup()
}

func TestStartBuild(t *testing.T) {
	tests := []struct {
		name       string
		accept     bool
		body       string
		wantStatus int
		wantCode   string
		wantFilter models.CatalogFilter
	}{
		{name: "empty body builds everything", accept: true, body: "", wantStatus: http.StatusAccepted},
		{name: "filter", accept: true, body: `{"director":" Ridley Scott ","release_year":1979}`,
			wantStatus: http.StatusAccepted, wantFilter: models.CatalogFilter{Director: "Ridley Scott", ReleaseYear: 1979}},
		{name: "already queued", accept: false, body: "", wantStatus: http.StatusConflict, wantCode: CodeBuildInProgress},
		{name: "unknown field", accept: true, body: `{"genre":"horror"}`, wantStatus: http.StatusBadRequest, wantCode: CodeInvalidParameter},
		{name: "negative genre", accept: true, body: `{"genre_id":-1}`, wantStatus: http.StatusBadRequest},
		{name: "implausible year", accept: true, body: `{"release_year":12}`, wantStatus: http.StatusBadRequest},
		{name: "malformed json", accept: true, body: `{"director":`, wantStatus: http.StatusBadRequest, wantCode: CodeInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBuilder{accept: tt.accept}
			srv := newBuildServer(t, newFakeEngine(), b)

			rec, env := do(t, srv, http.MethodPost, "/api/v1/recommendations/build", strings.NewReader(tt.body))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantCode != "" && (env.Error == nil || env.Error.Code != tt.wantCode) {
				t.Errorf("error = %+v, want code %s", env.Error, tt.wantCode)
			}
			if tt.wantStatus != http.StatusAccepted {
				return
			}
			if len(b.filters) != 1 || b.filters[0] != tt.wantFilter {
				t.Errorf("requested filters = %+v, want [%+v]", b.filters, tt.wantFilter)
			}
			var accepted models.BuildAccepted
			if err := json.Unmarshal(env.Data, &accepted); err != nil {
				t.Fatal(err)
			}
			if accepted.RequestID != 1 || !accepted.Status.Pending {
				t.Errorf("accepted = %+v, want request 1 pending", accepted)
			}
		})
	}
}

func TestBuildEndpoints_WithoutBuilder(t *testing.T) {
	srv := newBuildServer(t, newFakeEngine(), nil)
	for _, method := range []string{http.MethodPost, http.MethodGet} {
		rec, env := do(t, srv, method, "/api/v1/recommendations/build", nil)
		if rec.Code != http.StatusServiceUnavailable || env.Error == nil || env.Error.Code != CodeBuildUnavailable {
			t.Errorf("%s build status = %d error = %+v, want 503 %s", method, rec.Code, env.Error, CodeBuildUnavailable)
		}
	}
}

func TestBuildStatus(t *testing.T) {
	finished := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b := &fakeBuilder{status: models.BuildStatus{Builds: 2, LastVersion: "v9", LastItems: 40, LastFinished: &finished}}
	srv := newBuildServer(t, newFakeEngine(), b)

	rec, env := do(t, srv, http.MethodGet, "/api/v1/recommendations/build", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got models.BuildStatus
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Builds != 2 || got.LastVersion != "v9" || got.LastItems != 40 || !got.LastFinished.Equal(finished) {
		t.Errorf("status = %+v", got)
	}
}

// memCatalog is a catalog whose contents the test swaps between builds.
type memCatalog struct {
	mu    sync.Mutex
	items []models.CatalogItem
}

func (c *memCatalog) FetchCatalog(context.Context, models.CatalogFilter) ([]models.CatalogItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.CatalogItem(nil), c.items...), nil
}

func (c *memCatalog) ResolveItems(_ context.Context, ids []int64) ([]models.CatalogItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []models.CatalogItem{}
	for _, id := range ids {
		for _, it := range c.items {
			if it.ID == id {
				out = append(out, it)
			}
		}
	}
	return out, nil
}

func (c *memCatalog) add(it models.CatalogItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, it)
}

func TestStartBuild_ServesWhileRebuilding(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalog := &memCatalog{items: []models.CatalogItem{
		{ID: 1, Title: "Alien", Director: "Ridley Scott", Genres: []models.Genre{{Name: "SciFi"}}, Description: "crew hunted by a creature"},
		{ID: 2, Title: "Aliens", Director: "James Cameron", Genres: []models.Genre{{Name: "SciFi"}}, Description: "marines fight the creature"},
		{ID: 3, Title: "Notting Hill", Director: "Roger Michell", Genres: []models.Genre{{Name: "Romance"}}, Description: "bookshop owner in london"},
	}}
	store, err := artifact.NewFileStore(t.TempDir(), 2)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	engine, err := recommend.NewEngine(recommend.DefaultConfig(), recommend.Dependencies{
		Catalog:   catalog,
		Artifacts: store,
		Index:     index.New(),
	})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	builder := services.NewIndexBuildService(engine, nil, services.IndexBuildConfig{}, zerolog.Nop())
	go func() { _ = builder.Serve(ctx) }() //nolint:errcheck // returns ctx.Err() on cancel

	srv := newBuildServer(t, engine, builder)
	waitBuilds := func(n int64) {
		t.Helper()
		deadline := time.Now().Add(5 * time.Second)
		for builder.Status().Builds < n {
			if time.Now().After(deadline) {
				t.Fatalf("timed out waiting for build %d: %+v", n, builder.Status())
			}
			time.Sleep(5 * time.Millisecond)
		}
	}

	if rec, _ := do(t, srv, http.MethodPost, "/api/v1/recommendations/build", nil); rec.Code != http.StatusAccepted {
		t.Fatalf("first build status = %d", rec.Code)
	}
	waitBuilds(1)
	first := engine.IndexVersion()
	if first == "" || builder.Status().LastError != "" {
		t.Fatalf("first build did not load: %+v", builder.Status())
	}

	catalog.add(models.CatalogItem{ID: 4, Title: "Prometheus", Director: "Ridley Scott", Genres: []models.Genre{{Name: "SciFi"}}, Description: "expedition meets the creature"})
	if rec, _ := do(t, srv, http.MethodPost, "/api/v1/recommendations/build", nil); rec.Code != http.StatusAccepted {
		t.Fatalf("second build status = %d", rec.Code)
	}
	deadline := time.Now().Add(5 * time.Second)
	for builder.Status().Builds < 2 && time.Now().Before(deadline) {
		rec, env := do(t, srv, http.MethodGet, "/api/v1/recommendations/similar/Alien", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("similar during rebuild status = %d", rec.Code)
		}
		if _, n := decodeItems[int64](t, env); n == 0 {
			t.Fatal("similar returned no films during rebuild")
		}
	}
	waitBuilds(2)

	if v := engine.IndexVersion(); v == first || v != builder.Status().LastVersion {
		t.Errorf("serving version = %q, want the rebuilt %q", v, builder.Status().LastVersion)
	}
	rec, env := do(t, srv, http.MethodGet, "/api/v1/recommendations/similar/Prometheus", nil)
	if _, n := decodeItems[int64](t, env); rec.Code != http.StatusOK || n == 0 {
		t.Errorf("similar(Prometheus) after rebuild status = %d count = %d", rec.Code, n)
	}
}
