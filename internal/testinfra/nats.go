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
	// DefaultNATSImage is the NATS server image used for notification tests.
	DefaultNATSImage = "nats:2.10-alpine"

	// DefaultNATSPort is the NATS client port inside the container.
	DefaultNATSPort = "4222/tcp"
)

// NATSContainer is a running NATS server.
type NATSContainer struct {
	testcontainers.Container
	// URL is the nats:// client URL reachable from the test process.
	URL string
}

// NewNATSContainer starts a core NATS server (no JetStream).
func NewNATSContainer(ctx context.Context, opts ...ContainerOption) (*NATSContainer, error) {
	c, addr, err := start(ctx, applyOptions(DefaultNATSImage, opts), DefaultNATSPort, "Server is ready")
	if err != nil {
		return nil, err
	}
	return &NATSContainer{Container: c, URL: "nats://" + addr}, nil
}
