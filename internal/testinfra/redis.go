// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

//go:build integration

package testinfra

import (
	"context"

	"github.com/testcontainers/testcontainers-go"
)

const (
	// DefaultRedisImage is the Redis image used for notification tests.
	DefaultRedisImage = "redis:7-alpine"

	// DefaultRedisPort is the Redis listen port inside the container.
	DefaultRedisPort = "6379/tcp"
)

// RedisContainer is a running Redis server.
type RedisContainer struct {
	testcontainers.Container
	// Addr is host:port reachable from the test process.
	Addr string
}

// NewRedisContainer starts a Redis server for the redis notify backend.
//
//	redis, err := testinfra.NewRedisContainer(ctx)
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer testinfra.CleanupContainer(t, ctx, redis.Container)
func NewRedisContainer(ctx context.Context, opts ...ContainerOption) (*RedisContainer, error) {
	c, addr, err := start(ctx, applyOptions(DefaultRedisImage, opts), DefaultRedisPort, "Ready to accept connections")
	if err != nil {
		return nil, err
	}
	return &RedisContainer{Container: c, Addr: addr}, nil
}
