// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/models"
)

const buildPath = "/api/v1/recommendations/build"

// errBuildQueued is returned when the server already has a build queued.
var errBuildQueued = errors.New("server already has an index build queued")

// remoteEnvelope mirrors the API envelope with a raw payload.
type remoteEnvelope struct {
	Status string           `json:"status"`
	Data   json.RawMessage  `json:"data"`
	Error  *models.APIError `json:"error"`
}

// remoteBuilder asks a running server to build and load the index. The
// server owns the database and artifact store locks, so this is the only
// way to build while it runs.
type remoteBuilder struct {
	baseURL      string
	client       *http.Client
	pollInterval time.Duration
}

func newRemoteBuilder(baseURL string) *remoteBuilder {
	return &remoteBuilder{
		baseURL:      strings.TrimRight(baseURL, "/"),
		client:       &http.Client{Timeout: 30 * time.Second},
		pollInterval: time.Second,
	}
}

// Start queues a build and returns the server's acceptance.
func (b *remoteBuilder) Start(ctx context.Context, filter models.CatalogFilter) (models.BuildAccepted, error) {
	var accepted models.BuildAccepted
	body, err := json.Marshal(filter)
	if err != nil {
		return accepted, fmt.Errorf("encode filter: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+buildPath, bytes.NewReader(body))
	if err != nil {
		return accepted, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	err = b.do(req, http.StatusAccepted, &accepted)
	return accepted, err
}

// Status fetches the server's builder status.
func (b *remoteBuilder) Status(ctx context.Context) (models.BuildStatus, error) {
	var st models.BuildStatus
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+buildPath, http.NoBody)
	if err != nil {
		return st, fmt.Errorf("create request: %w", err)
	}
	err = b.do(req, http.StatusOK, &st)
	return st, err
}

// Wait polls until the build for requestID has finished. Requests run in
// order, so a later LastRequest means it finished earlier; its outcome is
// then unknown and the later build is what serves.
func (b *remoteBuilder) Wait(ctx context.Context, requestID int64) (models.BuildStatus, error) {
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return models.BuildStatus{}, ctx.Err()
		case <-ticker.C:
		}
		st, err := b.Status(ctx)
		if err != nil {
			return st, err
		}
		if st.LastRequest < requestID {
			continue
		}
		if st.LastRequest == requestID && st.LastError != "" {
			return st, fmt.Errorf("server build failed: %s", st.LastError)
		}
		return st, nil
	}
}

func (b *remoteBuilder) do(req *http.Request, want int, out interface{}) error {
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var env remoteEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%s %s: status %d: undecodable body", req.Method, req.URL.Path, resp.StatusCode)
	}

	if resp.StatusCode == http.StatusConflict {
		return errBuildQueued
	}
	if resp.StatusCode != want {
		msg := http.StatusText(resp.StatusCode)
		if env.Error != nil {
			msg = env.Error.Code + ": " + env.Error.Message
		}
		return fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, msg)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// runRemote asks the server at opts.serverURL to build. With opts.wait it
// blocks until the build finished and fails when the build did.
func runRemote(ctx context.Context, opts *options) (models.BuildStatus, error) {
	b := newRemoteBuilder(opts.serverURL)
	accepted, err := b.Start(ctx, opts.filter)
	if err != nil {
		return models.BuildStatus{}, err
	}
	logging.Info().
		Str("server", b.baseURL).
		Int64("request_id", accepted.RequestID).
		Bool("server_busy", accepted.Status.Running).
		Msg("Index build queued on server")
	if !opts.wait {
		return accepted.Status, nil
	}
	return b.Wait(ctx, accepted.RequestID)
}
