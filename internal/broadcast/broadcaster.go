// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

// Package broadcast implements a topic registry backed by channels. Every
// subscription owns a buffered channel; a single hub loop drains published
// events in order and fans them out with non-blocking sends.
//
// Delivery is best-effort: a subscriber whose buffer is full misses the
// event, and events published while nobody is subscribed are not replayed.
// Within one topic, subscribers observe events in publish order.
package broadcast

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/wayfarer/internal/metrics"
)

// ShutdownReason identifies why the hub stopped.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Drop reasons reported to metrics.
const (
	dropHubFull        = "hub_full"
	dropSubscriberFull = "subscriber_full"
)

// Config holds broadcaster buffer sizes.
type Config struct {
	BufferSize       int `koanf:"buffer_size"`
	SubscriberBuffer int `koanf:"subscriber_buffer"`
}

// DefaultConfig returns the default buffer sizes.
func DefaultConfig() *Config {
	return &Config{
		BufferSize:       256,
		SubscriberBuffer: 64,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.BufferSize < 1 {
		return fmt.Errorf("buffer_size must be positive, got %d", c.BufferSize)
	}
	if c.SubscriberBuffer < 1 {
		return fmt.Errorf("subscriber_buffer must be positive, got %d", c.SubscriberBuffer)
	}
	return nil
}

// Event is one published message.
type Event struct {
	ID          string      `json:"id"`
	Topic       string      `json:"topic"`
	Type        string      `json:"type"`
	Data        interface{} `json:"data"`
	PublishedAt time.Time   `json:"published_at"`
}

// UserID returns the owner encoded in the event topic.
func (e *Event) UserID() string {
	user, _ := SplitTopic(e.Topic)
	return user
}

// Sink receives every event after local fan-out. Forward is called from the
// hub loop and must not block for long.
type Sink interface {
	Forward(ctx context.Context, ev Event) error
}

// Topic builds the qualified topic "{userID}:{name}".
func Topic(userID, name string) string {
	return userID + ":" + name
}

// SplitTopic splits a qualified topic into user and name.
func SplitTopic(topic string) (userID, name string) {
	i := strings.Index(topic, ":")
	if i < 0 {
		return "", topic
	}
	return topic[:i], topic[i+1:]
}

// Subscription is a membership record. Events arrive on C until the
// subscription is removed, at which point C is closed.
type Subscription struct {
	ID     string
	UserID string
	Topic  string
	C      <-chan Event

	ch chan Event
}

// Broadcaster owns the topic registry and the hub loop.
type Broadcaster struct {
	cfg    *Config
	logger zerolog.Logger

	inbound chan Event

	mu     sync.RWMutex
	topics map[string]map[string]*Subscription
	sinks  []Sink
	count  int
}

// New creates a broadcaster. RunWithContext must be running for events to
// be delivered.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(cfg *Config, logger zerolog.Logger) (*Broadcaster, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid broadcast config: %w", err)
	}
	return &Broadcaster{
		cfg:     cfg,
		logger:  logger.With().Str("component", "broadcaster").Logger(),
		inbound: make(chan Event, cfg.BufferSize),
		topics:  make(map[string]map[string]*Subscription),
	}, nil
}

// AddSink registers a sink that receives every event.
func (b *Broadcaster) AddSink(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

// Subscribe registers interest of userID in the user-scoped topic name.
func (b *Broadcaster) Subscribe(userID, name string) (*Subscription, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if name == "" || strings.Contains(name, ":") {
		return nil, fmt.Errorf("invalid topic name %q", name)
	}

	ch := make(chan Event, b.cfg.SubscriberBuffer)
	sub := &Subscription{
		ID:     uuid.New().String(),
		UserID: userID,
		Topic:  Topic(userID, name),
		C:      ch,
		ch:     ch,
	}

	b.mu.Lock()
	subs, ok := b.topics[sub.Topic]
	if !ok {
		subs = make(map[string]*Subscription)
		b.topics[sub.Topic] = subs
	}
	subs[sub.ID] = sub
	b.count++
	count := b.count
	b.mu.Unlock()

	metrics.SetBroadcastSubscriptions(count)
	b.logger.Debug().Str("topic", sub.Topic).Str("subscription_id", sub.ID).Msg("Subscribed")
	return sub, nil
}

// Unsubscribe removes the subscription and closes its channel. Removing a
// subscription twice is a no-op.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	removed := b.removeLocked(sub)
	count := b.count
	b.mu.Unlock()

	if removed {
		metrics.SetBroadcastSubscriptions(count)
	}
}

// UnsubscribeTopic removes every subscription userID holds on name and
// returns how many were removed.
func (b *Broadcaster) UnsubscribeTopic(userID, name string) int {
	topic := Topic(userID, name)

	b.mu.Lock()
	var subs []*Subscription
	for _, s := range b.topics[topic] {
		subs = append(subs, s)
	}
	n := 0
	for _, s := range subs {
		if b.removeLocked(s) {
			n++
		}
	}
	count := b.count
	b.mu.Unlock()

	if n > 0 {
		metrics.SetBroadcastSubscriptions(count)
	}
	return n
}

func (b *Broadcaster) removeLocked(sub *Subscription) bool {
	subs, ok := b.topics[sub.Topic]
	if !ok {
		return false
	}
	if _, ok := subs[sub.ID]; !ok {
		return false
	}
	delete(subs, sub.ID)
	if len(subs) == 0 {
		delete(b.topics, sub.Topic)
	}
	close(sub.ch)
	b.count--
	return true
}

// Publish queues an event for topic. It never blocks: when the hub buffer
// is full the event is dropped and false is returned.
func (b *Broadcaster) Publish(topic, eventType string, data interface{}) bool {
	ev := Event{
		ID:          uuid.New().String(),
		Topic:       topic,
		Type:        eventType,
		Data:        data,
		PublishedAt: time.Now().UTC(),
	}
	select {
	case b.inbound <- ev:
		return true
	default:
		metrics.RecordBroadcastDropped(dropHubFull)
		b.logger.Warn().Str("topic", topic).Str("event_type", eventType).Msg("Broadcast buffer full, dropping event")
		return false
	}
}

// SubscriberCount returns the number of live subscriptions.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// TopicSubscribers returns the number of subscriptions on topic.
func (b *Broadcaster) TopicSubscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// RunWithContext drains published events until ctx is cancelled. On
// shutdown every subscription is closed.
func (b *Broadcaster) RunWithContext(ctx context.Context) error {
	for {
		// Shutdown takes priority over pending events.
		select {
		case <-ctx.Done():
			b.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case <-ctx.Done():
			b.shutdown(ctx)
			return ctx.Err()
		case ev := <-b.inbound:
			b.deliver(ctx, ev)
		}
	}
}

// Serve implements suture.Service.
func (b *Broadcaster) Serve(ctx context.Context) error {
	return b.RunWithContext(ctx)
}

func (b *Broadcaster) String() string {
	return "broadcaster"
}

// deliver fans ev out to the topic subscribers in subscription ID order,
// then hands it to the sinks.
func (b *Broadcaster) deliver(ctx context.Context, ev Event) {
	b.mu.RLock()
	subs := make([]*Subscription, 0, len(b.topics[ev.Topic]))
	for _, s := range b.topics[ev.Topic] {
		subs = append(subs, s)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })

	for _, s := range subs {
		select {
		case s.ch <- ev:
			metrics.RecordBroadcastDelivered()
		default:
			metrics.RecordBroadcastDropped(dropSubscriberFull)
			b.logger.Debug().Str("topic", ev.Topic).Str("subscription_id", s.ID).Msg("Subscriber buffer full, dropping event")
		}
	}
	sinks := b.sinks
	b.mu.RUnlock()

	for _, sink := range sinks {
		if err := sink.Forward(ctx, ev); err != nil {
			b.logger.Warn().Err(err).Str("topic", ev.Topic).Msg("Sink forward failed")
		}
	}
}

func (b *Broadcaster) shutdown(ctx context.Context) {
	b.mu.Lock()
	closed := 0
	for _, subs := range b.topics {
		for _, s := range subs {
			close(s.ch)
			closed++
		}
	}
	b.topics = make(map[string]map[string]*Subscription)
	b.count = 0
	b.mu.Unlock()

	metrics.SetBroadcastSubscriptions(0)
	b.logger.Info().
		Str("reason", string(shutdownReason(ctx))).
		Int("subscriptions_closed", closed).
		Msg("Broadcaster stopped")
}

func shutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}
