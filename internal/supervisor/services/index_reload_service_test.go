// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
	"golang.org/x/time/rate"

	"github.com/tomtom215/cinematch/internal/notify"
	"github.com/tomtom215/cinematch/internal/recommend/artifact"
	"github.com/tomtom215/cinematch/internal/recommend/index"
)

// fakeStore stands in for both the artifact store and the engine: loading
// adopts the store's published version.
type fakeStore struct {
	mu        sync.Mutex
	published string
	pollErr   error
	loaded    string
	loads     int
}

func (f *fakeStore) CurrentVersion(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pollErr != nil {
		return "", f.pollErr
	}
	return f.published, nil
}

func (f *fakeStore) LoadIndex(context.Context) index.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	f.loaded = f.published
	return index.StateLoaded
}

func (f *fakeStore) IndexVersion() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded
}

func (f *fakeStore) publish(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = v
}

func (f *fakeStore) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

type fakeSubscriber struct {
	ch  chan notify.Event
	err error
}

func (f *fakeSubscriber) Subscribe(context.Context) (<-chan notify.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ch, nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func runService(t *testing.T, svc *IndexReloadService) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()
	t.Cleanup(cancel)
	return cancel, errCh
}

func TestIndexReloadService_Interface(t *testing.T) {
	var _ suture.Service = (*IndexReloadService)(nil)
}

func TestIndexReloadService_ReloadsOnNotification(t *testing.T) {
	store := &fakeStore{published: "v1", loaded: "v1"}
	sub := &fakeSubscriber{ch: make(chan notify.Event)}
	svc := NewIndexReloadService(store, store, sub, IndexReloadConfig{}, zerolog.Nop())
	runService(t, svc)

	// Same version: ignored. The channel is unbuffered, so the second send
	// only completes after the first event was handled.
	sub.ch <- notify.Event{Version: "v1"}
	store.publish("v2")
	sub.ch <- notify.Event{Version: "v2"}

	waitFor(t, "reload", func() bool { return store.IndexVersion() == "v2" })
	if got := store.loadCount(); got != 1 {
		t.Errorf("loads = %d, want 1", got)
	}
}

func TestIndexReloadService_ReloadsOnPoll(t *testing.T) {
	store := &fakeStore{published: "v2", loaded: "v1"}
	svc := NewIndexReloadService(store, store, nil, IndexReloadConfig{PollInterval: 10 * time.Millisecond}, zerolog.Nop())
	runService(t, svc)

	waitFor(t, "reload", func() bool { return store.IndexVersion() == "v2" })
	time.Sleep(50 * time.Millisecond)
	if got := store.loadCount(); got != 1 {
		t.Errorf("loads = %d, want 1 (unchanged version must not reload)", got)
	}
}

func TestIndexReloadService_NothingPublished(t *testing.T) {
	store := &fakeStore{pollErr: artifact.ErrNoArtifact}
	svc := NewIndexReloadService(store, store, nil, IndexReloadConfig{PollInterval: 5 * time.Millisecond}, zerolog.Nop())
	runService(t, svc)

	time.Sleep(50 * time.Millisecond)
	if got := store.loadCount(); got != 0 {
		t.Errorf("loads = %d, want 0", got)
	}
}

func TestIndexReloadService_SubscribeFailureFallsBackToPolling(t *testing.T) {
	store := &fakeStore{published: "v2", loaded: "v1"}
	sub := &fakeSubscriber{err: errors.New("redis: connection refused")}
	svc := NewIndexReloadService(store, store, sub, IndexReloadConfig{PollInterval: 10 * time.Millisecond}, zerolog.Nop())
	runService(t, svc)

	waitFor(t, "reload", func() bool { return store.IndexVersion() == "v2" })
}

func TestIndexReloadService_ClosedSubscriptionRestarts(t *testing.T) {
	store := &fakeStore{}
	sub := &fakeSubscriber{ch: make(chan notify.Event)}
	svc := NewIndexReloadService(store, store, sub, IndexReloadConfig{}, zerolog.Nop())
	_, errCh := runService(t, svc)

	close(sub.ch)
	select {
	case err := <-errCh:
		if err == nil || errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want subscription error", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not return after subscription closed")
	}
}

func TestIndexReloadService_StopsOnCancel(t *testing.T) {
	store := &fakeStore{}
	svc := NewIndexReloadService(store, store, nil, IndexReloadConfig{PollInterval: time.Hour}, zerolog.Nop())
	cancel, errCh := runService(t, svc)

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}

func TestNewIndexReloadService_Limiter(t *testing.T) {
	tests := []struct {
		name   string
		minGap time.Duration
		want   rate.Limit
	}{
		{name: "gap", minGap: time.Second, want: rate.Every(time.Second)},
		{name: "no gap", minGap: 0, want: rate.Inf},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewIndexReloadService(&fakeStore{}, &fakeStore{}, nil, IndexReloadConfig{MinGap: tt.minGap}, zerolog.Nop())
			if got := svc.limiter.Limit(); got != tt.want {
				t.Errorf("Limit() = %v, want %v", got, tt.want)
			}
			if svc.String() != "index-reload-service" {
				t.Errorf("String() = %q", svc.String())
			}
		})
	}
}
