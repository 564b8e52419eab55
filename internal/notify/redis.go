// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cinematch/internal/config"
	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/metrics"
)

// RedisNotifier publishes events on a Redis pub/sub channel.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	logger  zerolog.Logger
}

// DialRedis connects to Redis and verifies the connection with PING.
func DialRedis(ctx context.Context, addr, password string, db int, channel string) (*RedisNotifier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck
		return nil, fmt.Errorf("notify: redis ping %s: %w", addr, err)
	}
	return NewRedisNotifier(client, channel), nil
}

// NewRedisNotifier wraps an existing client.
func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisNotifier{
		client:  client,
		channel: channel,
		logger:  logging.WithComponent("notify").With().Str("backend", config.NotifyBackendRedis).Logger(),
	}
}

// Publish implements Publisher.
func (n *RedisNotifier) Publish(ctx context.Context, ev Event) error {
	data, err := Encode(ev)
	if err != nil {
		return err
	}
	if err := n.client.Publish(ctx, n.channel, data).Err(); err != nil {
		return fmt.Errorf("notify: redis publish: %w", err)
	}
	return nil
}

// Subscribe implements Subscriber. The subscription is confirmed before
// Subscribe returns.
func (n *RedisNotifier) Subscribe(ctx context.Context) (<-chan Event, error) {
	ps := n.client.Subscribe(ctx, n.channel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close() //nolint:errcheck
		return nil, fmt.Errorf("notify: redis subscribe %s: %w", n.channel, err)
	}

	out := make(chan Event, subscriberBuffer)
	go func() {
		defer close(out)
		defer ps.Close() //nolint:errcheck

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				ev, err := Decode([]byte(msg.Payload))
				if err != nil {
					n.logger.Warn().Err(err).Str("channel", msg.Channel).Msg("Dropping malformed notification")
					continue
				}
				metrics.NotificationsReceived.WithLabelValues(config.NotifyBackendRedis).Inc()
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Backend implements Notifier.
func (n *RedisNotifier) Backend() string { return config.NotifyBackendRedis }

// Close closes the client.
func (n *RedisNotifier) Close() error { return n.client.Close() }
