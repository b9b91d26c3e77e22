// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

// Package eventbus forwards broadcaster events to a watermill transport:
// an in-process go channel, an external NATS JetStream, or a NATS server
// embedded in the process.
package eventbus

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"

	"github.com/tomtom215/wayfarer/internal/logging"
)

// Bus owns the transport behind a Forwarder.
type Bus struct {
	Forwarder *Forwarder

	// Server is set for the embedded backend and must be supervised.
	Server *EmbeddedServer

	publisher *Publisher
	local     *gochannel.GoChannel
	backend   Backend
	logger    zerolog.Logger
}

// Open builds the transport selected by cfg.Backend.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func Open(ctx context.Context, cfg *Config, logger zerolog.Logger) (*Bus, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid events config: %w", err)
	}
	if !cfg.Enabled() {
		return nil, errors.New("event forwarding is disabled")
	}

	b := &Bus{
		backend: cfg.Backend,
		logger:  logger.With().Str("component", "eventbus").Logger(),
	}
	wmLogger := watermill.NewSlogLogger(logging.NewSlogLogger())
	breaker := NewCircuitBreaker("wayfarer-events", cfg.CircuitBreaker, b.logger)

	var raw message.Publisher
	switch cfg.Backend {
	case BackendGoChannel:
		b.local = gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: cfg.ChannelBuffer,
		}, wmLogger)
		raw = b.local

	case BackendNATS, BackendEmbedded:
		url := cfg.NATSURL
		if cfg.Backend == BackendEmbedded {
			srv, err := NewEmbeddedServer(cfg, logger)
			if err != nil {
				return nil, err
			}
			b.Server = srv
			url = srv.ClientURL()
		}
		if err := provisionStream(ctx, url, cfg); err != nil {
			b.shutdownServer()
			return nil, err
		}
		pub, err := NewNATSPublisher(cfg, url, wmLogger)
		if err != nil {
			b.shutdownServer()
			return nil, err
		}
		raw = pub
	}

	b.publisher = NewPublisher(raw, breaker)
	b.Forwarder = NewForwarder(b.publisher, cfg.SubjectPrefix)

	b.logger.Info().
		Str("backend", string(cfg.Backend)).
		Str("subject_prefix", cfg.SubjectPrefix).
		Msg("Event bus ready")
	return b, nil
}

// Subscribe consumes forwarded events in process. Only the gochannel
// backend supports it.
func (b *Bus) Subscribe(ctx context.Context, subject string) (<-chan *message.Message, error) {
	if b.local == nil {
		return nil, fmt.Errorf("in-process subscribe not supported by backend %q", b.backend)
	}
	return b.local.Subscribe(ctx, subject)
}

// BreakerState reports the publisher circuit breaker state.
func (b *Bus) BreakerState() string {
	return b.publisher.BreakerState()
}

// Close stops the publisher. The embedded server is stopped by its
// supervisor.
func (b *Bus) Close() error {
	return b.publisher.Close()
}

func (b *Bus) shutdownServer() {
	if b.Server != nil {
		b.Server.Shutdown()
	}
}
