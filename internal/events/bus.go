// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

/*
Package events publishes and consumes the worker's domain events.

Two topics exist, both prefixed with the configured topic prefix:

  - <prefix>.model.built: a new similarity artifact was saved
  - <prefix>.moderation.decided: a pending item reached a terminal status

Backends:

  - gochannel: in-process watermill GoChannel, the default for a single worker
  - nats: core NATS through watermill-nats, for fan-out to other processes
  - none: publishing is a no-op and consumers block until cancelled

Publishing failures are reported to the caller and counted, but callers treat
them as non-fatal: the artifact or decision is already durable when the event
is sent.
*/
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/tomtom215/reelcast/internal/config"
	"github.com/tomtom215/reelcast/internal/metrics"
)

// Backend names accepted by NewBus.
const (
	BackendGoChannel = "gochannel"
	BackendNATS      = "nats"
	BackendNone      = "none"
)

const (
	natsMaxReconnects   = -1
	natsReconnectWait   = 2 * time.Second
	natsReconnectBuffer = 8 * 1024 * 1024
	natsCloseTimeout    = 10 * time.Second
	channelBuffer       = 64
)

// ErrBusClosed is returned when publishing on a closed bus.
var ErrBusClosed = errors.New("event bus is closed")

// Bus is a small typed facade over a watermill publisher and subscriber.
type Bus struct {
	backend string
	prefix  string
	pub     message.Publisher
	sub     message.Subscriber
	logger  zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewBus creates the bus for the configured backend.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewBus(cfg config.EventsConfig, logger zerolog.Logger) (*Bus, error) {
	logger = logger.With().Str("component", "events").Str("backend", cfg.Backend).Logger()
	b := &Bus{
		backend: cfg.Backend,
		prefix:  cfg.TopicPrefix,
		logger:  logger,
	}
	wmLogger := NewLoggerAdapter(logger)

	switch cfg.Backend {
	case BackendNone, "":
		b.backend = BackendNone
	case BackendGoChannel:
		ch := gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: channelBuffer,
		}, wmLogger)
		b.pub, b.sub = ch, ch
	case BackendNATS:
		pub, sub, err := newNATS(cfg.NATSURL, wmLogger)
		if err != nil {
			return nil, err
		}
		b.pub, b.sub = pub, sub
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
	return b, nil
}

func natsOptions(logger watermill.LoggerAdapter) []natsgo.Option {
	return []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(natsMaxReconnects),
		natsgo.ReconnectWait(natsReconnectWait),
		natsgo.ReconnectBufSize(natsReconnectBuffer),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
		natsgo.ErrorHandler(func(_ *natsgo.Conn, sub *natsgo.Subscription, err error) {
			fields := watermill.LogFields{}
			if sub != nil {
				fields["subject"] = sub.Subject
			}
			logger.Error("NATS error", err, fields)
		}),
	}
}

// newNATS connects a core NATS publisher and subscriber. Every worker
// receives every event, so no queue group is used.
func newNATS(url string, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	marshaler := &wmNats.NATSMarshaler{}
	jetStream := wmNats.JetStreamConfig{Disabled: true}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOptions(logger),
		Marshaler:   marshaler,
		JetStream:   jetStream,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("create nats publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		SubscribersCount: 1,
		CloseTimeout:     natsCloseTimeout,
		NatsOptions:      natsOptions(logger),
		Unmarshaler:      marshaler,
		JetStream:        jetStream,
	}, logger)
	if err != nil {
		_ = pub.Close() //nolint:errcheck // best effort on construction failure
		return nil, nil, fmt.Errorf("create nats subscriber: %w", err)
	}
	return pub, sub, nil
}

// Backend reports the active backend name.
func (b *Bus) Backend() string { return b.backend }

// Topic returns the fully qualified topic for a suffix.
func (b *Bus) Topic(suffix string) string {
	if b.prefix == "" {
		return suffix
	}
	return b.prefix + "." + suffix
}

// PublishModelBuilt announces a saved artifact.
func (b *Bus) PublishModelBuilt(ctx context.Context, ev ModelBuilt) error {
	return b.publish(ctx, TopicModelBuilt, ev.EventID, ev)
}

// PublishModerationDecided announces a moderation decision.
func (b *Bus) PublishModerationDecided(ctx context.Context, ev ModerationDecided) error {
	return b.publish(ctx, TopicModerationDecided, ev.EventID, ev)
}

func (b *Bus) publish(ctx context.Context, suffix, id string, payload any) error {
	topic := b.Topic(suffix)

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}
	if b.pub == nil {
		return nil
	}

	data, err := encode(payload)
	if err != nil {
		metrics.RecordEventPublish(topic, err)
		return err
	}
	if id == "" {
		id = watermill.NewUUID()
	}
	msg := message.NewMessage(id, data)
	msg.Metadata.Set(natsgo.MsgIdHdr, id)
	msg.SetContext(ctx)

	err = b.pub.Publish(topic, msg)
	metrics.RecordEventPublish(topic, err)
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// OnModelBuilt consumes model.built events until ctx is cancelled, calling fn
// for each. Handler errors are logged and the message is still acknowledged.
func (b *Bus) OnModelBuilt(ctx context.Context, fn func(context.Context, ModelBuilt) error) error {
	return b.consume(ctx, TopicModelBuilt, func(ctx context.Context, data []byte) error {
		ev, err := DecodeModelBuilt(data)
		if err != nil {
			return err
		}
		return fn(ctx, ev)
	})
}

// OnModerationDecided consumes moderation.decided events until ctx is cancelled.
func (b *Bus) OnModerationDecided(ctx context.Context, fn func(context.Context, ModerationDecided) error) error {
	return b.consume(ctx, TopicModerationDecided, func(ctx context.Context, data []byte) error {
		ev, err := DecodeModerationDecided(data)
		if err != nil {
			return err
		}
		return fn(ctx, ev)
	})
}

func (b *Bus) consume(ctx context.Context, suffix string, handle func(context.Context, []byte) error) error {
	if b.sub == nil {
		<-ctx.Done()
		return nil
	}
	topic := b.Topic(suffix)
	msgs, err := b.sub.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	b.logger.Debug().Str("topic", topic).Msg("Subscribed")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := handle(ctx, msg.Payload); err != nil {
				b.logger.Warn().Err(err).Str("topic", topic).Str("message_id", msg.UUID).Msg("Event handler failed")
			}
			msg.Ack()
		}
	}
}

// Close shuts down the publisher and subscriber. It is safe to call twice.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	if b.pub != nil {
		if err := b.pub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	if b.sub != nil && any(b.sub) != any(b.pub) {
		if err := b.sub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close subscriber: %w", err))
		}
	}
	return errors.Join(errs...)
}
