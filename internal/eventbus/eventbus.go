// Package eventbus is the process-local publish/subscribe channel for
// role-state changes. New code subscribes to the typed topics; every
// role-change publication is mirrored onto the legacy signal topic so
// components that have not migrated still receive it.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"role-state-sync/internal/domain"
	"role-state-sync/internal/logger"
	"role-state-sync/internal/metrics"
)

// Handler processes one raw event payload.
type Handler func(payload []byte)

// Bus wraps an in-process watermill pub/sub. Subscribers are
// fire-and-forget: each gets its own delivery goroutine, and a panicking
// handler is isolated from the rest of the publish cycle.
type Bus struct {
	pubsub *gochannel.GoChannel

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New creates a Bus.
func New(log *slog.Logger) *Bus {
	if log == nil {
		log = logger.Default()
	}
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewSlogLogger(log),
	)
	return &Bus{pubsub: pubsub}
}

// Publish marshals payload as JSON and publishes it on topic.
func (b *Bus) Publish(topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload for %s: %w", topic, err)
	}
	msg := message.NewMessage(uuid.New().String(), data)
	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	metrics.EventsPublishedTotal.WithLabelValues(topic).Inc()
	return nil
}

// Subscribe registers a handler for topic and returns an unsubscribe
// function. Unsubscribing twice is a no-op.
func (b *Bus) Subscribe(topic string, h Handler) (func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for msg := range ch {
			b.dispatch(topic, h, msg.Payload)
			msg.Ack()
		}
	}()

	var once sync.Once
	return func() { once.Do(cancel) }, nil
}

// dispatch invokes the handler, converting a panic into a log line so one
// broken subscriber cannot take down the publish cycle.
func (b *Bus) dispatch(topic string, h Handler, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			metrics.SubscriberPanicsTotal.WithLabelValues(topic).Inc()
			logger.Error("subscriber handler panicked",
				slog.String("topic", topic),
				slog.Any("panic", r))
		}
	}()
	h(payload)
}

// PublishRoleChanged emits the typed role.changed event and exactly one
// legacy-compatible signal for it.
func (b *Bus) PublishRoleChanged(ev domain.RoleChangeEvent) error {
	if err := b.Publish(domain.TopicRoleChanged, ev); err != nil {
		return err
	}
	return b.Publish(domain.TopicLegacyRoleSignal, domain.LegacySignalFromChange(ev))
}

// PublishAvailableRolesUpdated emits the typed role.available_updated
// event plus its legacy mirror (old and new role both set to the current
// role, which is how the old signal expressed "roles changed").
func (b *Bus) PublishAvailableRolesUpdated(ev domain.AvailableRolesEvent) error {
	if err := b.Publish(domain.TopicAvailableRolesUpdated, ev); err != nil {
		return err
	}
	legacy := domain.LegacyRoleSignal{
		OldRole: string(ev.CurrentRole),
		NewRole: string(ev.CurrentRole),
		Roles:   ev.AvailableRoles.Strings(),
		TS:      ev.Timestamp.UnixMilli(),
	}
	return b.Publish(domain.TopicLegacyRoleSignal, legacy)
}

// SubscribeRoleChanged registers a typed handler for role.changed.
func (b *Bus) SubscribeRoleChanged(h func(domain.RoleChangeEvent)) (func(), error) {
	return b.Subscribe(domain.TopicRoleChanged, func(payload []byte) {
		var ev domain.RoleChangeEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			logger.Warn("undecodable role.changed payload", slog.String("error", err.Error()))
			return
		}
		h(ev)
	})
}

// SubscribeAvailableRolesUpdated registers a typed handler for
// role.available_updated.
func (b *Bus) SubscribeAvailableRolesUpdated(h func(domain.AvailableRolesEvent)) (func(), error) {
	return b.Subscribe(domain.TopicAvailableRolesUpdated, func(payload []byte) {
		var ev domain.AvailableRolesEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			logger.Warn("undecodable role.available_updated payload", slog.String("error", err.Error()))
			return
		}
		h(ev)
	})
}

// SubscribeLegacySignal registers a handler for the untyped legacy signal.
func (b *Bus) SubscribeLegacySignal(h func(domain.LegacyRoleSignal)) (func(), error) {
	return b.Subscribe(domain.TopicLegacyRoleSignal, func(payload []byte) {
		var sig domain.LegacyRoleSignal
		if err := json.Unmarshal(payload, &sig); err != nil {
			logger.Warn("undecodable legacy signal payload", slog.String("error", err.Error()))
			return
		}
		h(sig)
	})
}

// Close shuts the bus down and waits for delivery goroutines to drain.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	err := b.pubsub.Close()
	b.wg.Wait()
	return err
}
