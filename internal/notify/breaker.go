// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/metrics"
)

// ErrPublishRejected is returned while the breaker is open.
var ErrPublishRejected = errors.New("notify: publish rejected by circuit breaker")

// BreakerConfig configures BreakerPublisher.
type BreakerConfig struct {
	Name string

	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32

	// MaxRequests is the number of trial publishes allowed while half-open.
	MaxRequests uint32

	// Interval resets the failure counts while closed. Zero never resets.
	Interval time.Duration

	// Timeout is how long the breaker stays open.
	Timeout time.Duration
}

// DefaultBreakerConfig returns the breaker settings for a backend.
func DefaultBreakerConfig(backend string) BreakerConfig {
	return BreakerConfig{
		Name:             "notify-" + backend,
		FailureThreshold: 3,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
	}
}

// BreakerPublisher guards a Notifier's Publish with a circuit breaker.
// Subscribe, Backend and Close pass through.
type BreakerPublisher struct {
	Notifier
	cb *gobreaker.CircuitBreaker[interface{}]
}

// NewBreakerPublisher wraps n.
func NewBreakerPublisher(n Notifier, cfg BreakerConfig) *BreakerPublisher {
	logger := logging.WithComponent("notify")
	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0)

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	}
	return &BreakerPublisher{
		Notifier: n,
		cb:       gobreaker.NewCircuitBreaker[interface{}](settings),
	}
}

// Publish implements Publisher.
func (p *BreakerPublisher) Publish(ctx context.Context, ev Event) error {
	_, err := p.cb.Execute(func() (interface{}, error) {
		return nil, p.Notifier.Publish(ctx, ev)
	})

	backend := p.Backend()
	switch {
	case err == nil:
		metrics.NotificationsPublished.WithLabelValues(backend, "success").Inc()
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.NotificationsPublished.WithLabelValues(backend, "rejected").Inc()
		return fmt.Errorf("%w: %w", ErrPublishRejected, err)
	default:
		metrics.NotificationsPublished.WithLabelValues(backend, "error").Inc()
		return err
	}
}

// State reports the breaker state.
func (p *BreakerPublisher) State() gobreaker.State {
	return p.cb.State()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
