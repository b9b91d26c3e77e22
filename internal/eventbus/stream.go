// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package eventbus

import (
	"context"
	"errors"
	"fmt"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// JetStreamContext is the subset of jetstream.JetStream used to provision
// the event stream.
type JetStreamContext interface {
	Stream(ctx context.Context, name string) (jetstream.Stream, error)
	CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	UpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
}

// StreamConfig returns the JetStream stream capturing every event subject.
func (c *Config) StreamConfig() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:      c.StreamName,
		Subjects:  []string{c.SubjectPrefix + ".>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    c.StreamMaxAge,
		Storage:   jetstream.FileStorage,
		Discard:   jetstream.DiscardOld,
	}
}

// EnsureStream creates the event stream or updates it in place. Idempotent.
func EnsureStream(ctx context.Context, js JetStreamContext, cfg *Config) error {
	streamCfg := cfg.StreamConfig()

	_, err := js.Stream(ctx, streamCfg.Name)
	switch {
	case err == nil:
		if _, err := js.UpdateStream(ctx, streamCfg); err != nil {
			return fmt.Errorf("update stream %s: %w", streamCfg.Name, err)
		}
		return nil
	case errors.Is(err, jetstream.ErrStreamNotFound):
		if _, err := js.CreateStream(ctx, streamCfg); err != nil {
			return fmt.Errorf("create stream %s: %w", streamCfg.Name, err)
		}
		return nil
	default:
		return fmt.Errorf("check stream %s: %w", streamCfg.Name, err)
	}
}

// provisionStream connects to url just long enough to ensure the stream.
func provisionStream(ctx context.Context, url string, cfg *Config) error {
	nc, err := natsgo.Connect(url, natsgo.Name("wayfarer-provisioner"))
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}
	return EnsureStream(ctx, js, cfg)
}
