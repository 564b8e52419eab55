// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

//go:build integration

package notify

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/cinematch/internal/config"
	"github.com/tomtom215/cinematch/internal/testinfra"
)

func TestRedisNotifier_RoundTrip(t *testing.T) {
	testinfra.SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	redis, err := testinfra.NewRedisContainer(ctx)
	if err != nil {
		t.Fatalf("NewRedisContainer() error = %v", err)
	}
	defer testinfra.CleanupContainer(t, ctx, redis.Container)

	n, err := Open(ctx, config.NotifyConfig{
		Backend:   config.NotifyBackendRedis,
		Channel:   "test.artifact.published",
		RedisAddr: redis.Addr,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer n.Close()

	subCtx, subCancel := context.WithCancel(ctx)
	defer subCancel()
	events, err := n.Subscribe(subCtx)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	want := Event{Version: "v-roundtrip", BuiltAt: time.Now().UTC().Truncate(time.Second), ItemCount: 7}
	if err := n.Publish(ctx, want); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case got := <-events:
		if got.Version != want.Version || got.ItemCount != want.ItemCount || !got.BuiltAt.Equal(want.BuiltAt) {
			t.Errorf("received %+v, want %+v", got, want)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("no notification received")
	}

	subCancel()
	select {
	case _, ok := <-events:
		if ok {
			t.Error("unexpected event after cancel")
		}
	case <-time.After(5 * time.Second):
		t.Error("events channel not closed after cancel")
	}
}

func TestNATSNotifier_RoundTrip(t *testing.T) {
	testinfra.SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	nats, err := testinfra.NewNATSContainer(ctx)
	if err != nil {
		t.Fatalf("NewNATSContainer() error = %v", err)
	}
	defer testinfra.CleanupContainer(t, ctx, nats.Container)

	n, err := Open(ctx, config.NotifyConfig{Backend: config.NotifyBackendNATS, NATSURL: nats.URL})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer n.Close()

	events, err := n.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	// Core NATS drops messages published before the subscription is registered.
	time.Sleep(500 * time.Millisecond)

	if err := n.Publish(ctx, Event{Version: "v-nats", ItemCount: 3}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	select {
	case got := <-events:
		if got.Version != "v-nats" || got.ItemCount != 3 {
			t.Errorf("received %+v", got)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("no notification received")
	}
}
