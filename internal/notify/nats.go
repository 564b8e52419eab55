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

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cinematch/internal/config"
	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/metrics"
)

// NATSNotifier publishes events on a core NATS subject through Watermill.
// Every subscriber gets every event; there is no queue group.
type NATSNotifier struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	subject    string
	logger     zerolog.Logger
}

// DialNATS creates a Watermill publisher and subscriber for url.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func DialNATS(url, subject string, logger zerolog.Logger) (*NATSNotifier, error) {
	if url == "" {
		return nil, errors.New("notify: nats url is empty")
	}
	if subject == "" {
		subject = DefaultChannel
	}
	zlog := logger.With().Str("backend", config.NotifyBackendNATS).Logger()
	wmLogger := logging.NewWatermillAdapter(zlog)

	natsOpts := []natsgo.Option{
		natsgo.Name("cinematch"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				wmLogger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			wmLogger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}
	marshaler := &wmNats.NATSMarshaler{}
	jetStream := wmNats.JetStreamConfig{Disabled: true}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   marshaler,
		JetStream:   jetStream,
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("notify: create nats publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		SubscribersCount: 1,
		CloseTimeout:     5 * time.Second,
		AckWaitTimeout:   5 * time.Second,
		NatsOptions:      natsOpts,
		Unmarshaler:      marshaler,
		JetStream:        jetStream,
	}, wmLogger)
	if err != nil {
		pub.Close() //nolint:errcheck
		return nil, fmt.Errorf("notify: create nats subscriber: %w", err)
	}

	return &NATSNotifier{
		publisher:  pub,
		subscriber: sub,
		subject:    subject,
		logger:     zlog,
	}, nil
}

// Publish implements Publisher.
func (n *NATSNotifier) Publish(_ context.Context, ev Event) error {
	data, err := Encode(ev)
	if err != nil {
		return err
	}
	msg := message.NewMessage(uuid.NewString(), data)
	msg.Metadata.Set("version", ev.Version)
	if err := n.publisher.Publish(n.subject, msg); err != nil {
		return fmt.Errorf("notify: nats publish: %w", err)
	}
	return nil
}

// Subscribe implements Subscriber.
func (n *NATSNotifier) Subscribe(ctx context.Context) (<-chan Event, error) {
	msgs, err := n.subscriber.Subscribe(ctx, n.subject)
	if err != nil {
		return nil, fmt.Errorf("notify: nats subscribe %s: %w", n.subject, err)
	}

	out := make(chan Event, subscriberBuffer)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				ev, err := Decode(msg.Payload)
				msg.Ack()
				if err != nil {
					n.logger.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping malformed notification")
					continue
				}
				metrics.NotificationsReceived.WithLabelValues(config.NotifyBackendNATS).Inc()
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
func (n *NATSNotifier) Backend() string { return config.NotifyBackendNATS }

// Close closes the subscriber and publisher.
func (n *NATSNotifier) Close() error {
	return errors.Join(n.subscriber.Close(), n.publisher.Close())
}
