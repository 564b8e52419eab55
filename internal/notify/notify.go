// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

// Package notify carries "artifact published" events from the index build
// command to serving processes, over Redis pub/sub or core NATS.
//
// Notifications are hints: a serving process that misses one still picks
// the new artifact up through its periodic version poll.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cinematch/internal/config"
	"github.com/tomtom215/cinematch/internal/logging"
)

// DefaultChannel is the Redis channel and NATS subject used when none is configured.
const DefaultChannel = "cinematch.artifact.published"

// subscriberBuffer bounds events queued for a slow consumer.
const subscriberBuffer = 8

// Event announces a newly published artifact.
type Event struct {
	Version   string    `json:"version"`
	BuiltAt   time.Time `json:"built_at"`
	ItemCount int       `json:"item_count"`
}

// Publisher announces artifacts.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Subscriber receives announcements. The returned channel is closed when
// ctx is done or the underlying subscription ends.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan Event, error)
}

// Notifier is a backend that can both publish and subscribe.
type Notifier interface {
	Publisher
	Subscriber
	// Backend names the transport, for logs and metric labels.
	Backend() string
	Close() error
}

// Encode serializes an event.
func Encode(ev Event) ([]byte, error) {
	if ev.Version == "" {
		return nil, errors.New("notify: event has no version")
	}
	return json.Marshal(ev)
}

// Decode parses an event and rejects payloads without a version.
func Decode(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("notify: decode event: %w", err)
	}
	if ev.Version == "" {
		return Event{}, errors.New("notify: event has no version")
	}
	return ev, nil
}

// Open creates the notifier selected by cfg.Backend. Redis and NATS
// notifiers publish through a circuit breaker.
//
//nolint:gocritic // config is passed by value from the loaded Config
func Open(ctx context.Context, cfg config.NotifyConfig) (Notifier, error) {
	channel := cfg.Channel
	if channel == "" {
		channel = DefaultChannel
	}

	var (
		n   Notifier
		err error
	)
	switch cfg.Backend {
	case "", config.NotifyBackendNone:
		return Noop{}, nil
	case config.NotifyBackendRedis:
		n, err = DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, channel)
	case config.NotifyBackendNATS:
		n, err = DialNATS(cfg.NATSURL, channel, logging.WithComponent("notify"))
	default:
		return nil, fmt.Errorf("notify: unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return NewBreakerPublisher(n, DefaultBreakerConfig(n.Backend())), nil
}

// Noop discards published events and never delivers any.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, Event) error { return nil }

// Subscribe returns a channel that is closed when ctx is done.
func (Noop) Subscribe(ctx context.Context) (<-chan Event, error) {
	ch := make(chan Event)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

// Backend implements Notifier.
func (Noop) Backend() string { return config.NotifyBackendNone }

// Close implements Notifier.
func (Noop) Close() error { return nil }
