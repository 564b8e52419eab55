// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

// Package testinfra provides test infrastructure for integration testing with containers.
//
// It uses testcontainers-go to start the message brokers that carry
// artifact-published notifications:
//
//	func TestRedisNotifier(t *testing.T) {
//	    ctx := context.Background()
//	    redis, err := testinfra.NewRedisContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, redis.Container)
//
//	    n, err := notify.DialRedis(ctx, redis.Addr, "", 0, "test.channel")
//	    // ...
//	}
//
// All files carry the integration build tag; run them with
// go test -tags=integration. Tests are skipped when Docker is unavailable.
package testinfra
