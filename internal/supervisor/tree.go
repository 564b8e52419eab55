// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig tunes restart behaviour for every layer. Zero fields take the
// values from DefaultTreeConfig.
type TreeConfig struct {
	// FailureThreshold is the failure score that puts a layer into backoff.
	FailureThreshold float64

	// FailureDecay is the half-life of the failure score, in seconds.
	FailureDecay float64

	// FailureBackoff is how long a layer waits once over the threshold.
	FailureBackoff time.Duration

	// ShutdownTimeout bounds how long each service gets to stop.
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig matches suture's own defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

func (c TreeConfig) withDefaults() TreeConfig {
	d := DefaultTreeConfig()
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.FailureDecay <= 0 {
		c.FailureDecay = d.FailureDecay
	}
	if c.FailureBackoff <= 0 {
		c.FailureBackoff = d.FailureBackoff
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	return c
}

func (c TreeConfig) sutureSpec() suture.Spec {
	return suture.Spec{
		FailureThreshold: c.FailureThreshold,
		FailureDecay:     c.FailureDecay,
		FailureBackoff:   c.FailureBackoff,
		Timeout:          c.ShutdownTimeout,
	}
}

// Layer identifies a child supervisor of the tree.
type Layer int

const (
	// DataLayer holds services that keep the recommendation index current.
	DataLayer Layer = iota
	// APILayer holds the HTTP server.
	APILayer
)

func (l Layer) String() string {
	switch l {
	case DataLayer:
		return "data-layer"
	case APILayer:
		return "api-layer"
	default:
		return fmt.Sprintf("layer(%d)", int(l))
	}
}

// SupervisorTree is the server's supervisor hierarchy:
//
//	cinematch
//	├── data-layer   index reload
//	└── api-layer    HTTP server
//
// Each layer restarts its own children. A reload service stuck in backoff
// leaves the API serving the last loaded index.
type SupervisorTree struct {
	root   *suture.Supervisor
	layers [2]*suture.Supervisor
	config TreeConfig
}

// NewSupervisorTree builds the tree and routes suture events to logger.
func NewSupervisorTree(logger *slog.Logger, config TreeConfig) (*SupervisorTree, error) {
	if logger == nil {
		return nil, errors.New("supervisor: logger is required")
	}
	config = config.withDefaults()

	rootSpec := config.sutureSpec()
	hook := &sutureslog.Handler{Logger: logger}
	rootSpec.EventHook = hook.MustHook()

	t := &SupervisorTree{
		root:   suture.New("cinematch", rootSpec),
		config: config,
	}
	for _, l := range []Layer{DataLayer, APILayer} {
		t.layers[l] = suture.New(l.String(), config.sutureSpec())
		t.root.Add(t.layers[l])
	}
	return t, nil
}

// Add places svc under the given layer.
func (t *SupervisorTree) Add(layer Layer, svc suture.Service) (suture.ServiceToken, error) {
	if layer < DataLayer || layer > APILayer {
		return suture.ServiceToken{}, fmt.Errorf("supervisor: unknown %s", layer)
	}
	return t.layers[layer].Add(svc), nil
}

// AddDataService adds svc to the data layer.
func (t *SupervisorTree) AddDataService(svc suture.Service) suture.ServiceToken {
	return t.layers[DataLayer].Add(svc)
}

// AddAPIService adds svc to the API layer.
func (t *SupervisorTree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.layers[APILayer].Add(svc)
}

// Serve runs the tree until ctx is canceled.
func (t *SupervisorTree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground runs the tree in a goroutine and delivers Serve's result.
func (t *SupervisorTree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that outlived the shutdown timeout.
func (t *SupervisorTree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
