// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/patrhick1/pgl-pipeline/internal/logging"
	"github.com/patrhick1/pgl-pipeline/internal/metrics"
)

// maxHistory bounds the in-memory event history kept for debugging.
const maxHistory = 1000

// Handler processes one event. A returned error is logged and recorded
// in metrics but never blocks or cancels sibling handlers subscribed to
// the same topic — each subscription runs its handler on its own
// goroutine, one message at a time.
type Handler func(ctx context.Context, evt Event) error

// Mirror is the narrow seam onto the optional durable NATS JetStream
// publisher (see nats_mirror.go). Left nil, the bus is purely in-process.
type Mirror interface {
	Publish(ctx context.Context, evt Event) error
}

// Bus is an in-process publish/subscribe event bus built on Watermill's
// gochannel driver, generalized from internal/eventprocessor's
// MediaEvent/NATS pattern down to a single-process, non-persistent
// transport. Handlers for a topic all receive every message published to
// it and run concurrently; one handler's failure never blocks another's.
type Bus struct {
	pubsub *gochannel.GoChannel
	mirror Mirror

	mu      sync.Mutex
	history []Event
}

// New builds a Bus. mirror may be nil to disable the durable NATS
// mirror entirely.
func New(mirror Mirror) *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer:            256,
				Persistent:                     false,
				BlockPublishUntilSubscriberAck: false,
			},
			watermill.NopLogger{},
		),
		mirror: mirror,
	}
}

// Publish validates, records, and fans the event out to every
// subscriber of its topic. It also best-effort mirrors the event to the
// optional durable publisher; a mirror failure is logged but never
// fails the publish since the in-process bus is the source of truth for
// a single-process deployment.
func (b *Bus) Publish(ctx context.Context, evt Event) error {
	if err := evt.Validate(); err != nil {
		return fmt.Errorf("eventbus: invalid event: %w", err)
	}

	b.recordHistory(evt)

	payload, err := evt.Marshal()
	if err != nil {
		return fmt.Errorf("eventbus: marshal event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event_type", string(evt.EventType))
	msg.Metadata.Set("entity_type", evt.EntityType)
	msg.Metadata.Set("source", evt.Source)

	topic := evt.Topic()
	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("eventbus: publish: %w", err)
	}
	metrics.RecordEventPublish(topic)

	if b.mirror != nil {
		if err := b.mirror.Publish(ctx, evt); err != nil {
			logging.Warn().Err(err).Str("topic", topic).Msg("nats mirror publish failed")
		}
	}
	return nil
}

// Subscribe registers handler against every event of the given type.
// The subscription loop runs until ctx is canceled, dispatching each
// delivered message to handler in turn so that messages on the same
// topic are handled in publish order - matching the original event
// bus's per-publish asyncio.gather, which awaits one event's handlers
// before the next event is dispatched. Each call to Subscribe still
// runs its own goroutine, so handlers registered for different event
// types run concurrently with each other; only same-topic ordering is
// preserved.
func (b *Bus) Subscribe(ctx context.Context, eventType Type, handlerName string, handler Handler) error {
	topic := "pipeline." + string(eventType)
	messages, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("eventbus: subscribe %s: %w", topic, err)
	}

	go func() {
		for msg := range messages {
			b.dispatch(ctx, topic, handlerName, handler, msg)
		}
	}()
	return nil
}

func (b *Bus) dispatch(ctx context.Context, topic, handlerName string, handler Handler, msg *message.Message) {
	evt, err := Unmarshal(msg.Payload)
	if err != nil {
		logging.Warn().Err(err).Str("topic", topic).Msg("eventbus: failed to unmarshal event, dropping")
		msg.Ack()
		return
	}

	start := time.Now()
	err = handler(ctx, evt)
	metrics.RecordEventConsume(topic, handlerName, time.Since(start), err)
	if err != nil {
		logging.Warn().Err(err).Str("topic", topic).Str("handler", handlerName).Msg("event handler failed")
	}
	msg.Ack()
}

func (b *Bus) recordHistory(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = append(b.history, evt)
	if len(b.history) > maxHistory {
		b.history = b.history[len(b.history)-maxHistory:]
	}
}

// History returns up to limit of the most recently published events,
// newest last, optionally filtered to a single event type.
func (b *Bus) History(limit int, eventType Type) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	var filtered []Event
	if eventType == "" {
		filtered = b.history
	} else {
		for _, e := range b.history {
			if e.EventType == eventType {
				filtered = append(filtered, e)
			}
		}
	}
	if limit <= 0 || limit > len(filtered) {
		limit = len(filtered)
	}
	out := make([]Event, limit)
	copy(out, filtered[len(filtered)-limit:])
	return out
}

// Close releases the underlying gochannel resources.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}
