// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package eventbus

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/wayfarer/internal/broadcast"
	"github.com/tomtom215/wayfarer/internal/metrics"
)

// MessagePublisher is the publish side the forwarder needs.
type MessagePublisher interface {
	Publish(topic string, msg *message.Message) error
}

// Forwarder is a broadcast.Sink that republishes every event as a
// watermill message on "<prefix>.<topic name>".
type Forwarder struct {
	publisher MessagePublisher
	prefix    string
}

var _ broadcast.Sink = (*Forwarder)(nil)

// NewForwarder creates a forwarder publishing under prefix.
func NewForwarder(pub MessagePublisher, prefix string) *Forwarder {
	return &Forwarder{publisher: pub, prefix: prefix}
}

// Subject returns the subject an event topic is forwarded to.
func (f *Forwarder) Subject(topic string) string {
	_, name := broadcast.SplitTopic(topic)
	return f.prefix + "." + name
}

// Forward implements broadcast.Sink.
func (f *Forwarder) Forward(ctx context.Context, ev broadcast.Event) error {
	err := f.forward(ctx, ev)
	metrics.RecordEventForward(err)
	return err
}

func (f *Forwarder) forward(ctx context.Context, ev broadcast.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", ev.ID, err)
	}

	msg := message.NewMessage(ev.ID, data)
	msg.Metadata.Set("user_id", ev.UserID())
	msg.Metadata.Set("event_type", ev.Type)
	msg.SetContext(ctx)

	if err := f.publisher.Publish(f.Subject(ev.Topic), msg); err != nil {
		return fmt.Errorf("publish event %s: %w", ev.ID, err)
	}
	return nil
}
