// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/rs/zerolog"
)

const embeddedReadyTimeout = 30 * time.Second

// EmbeddedServer runs a NATS JetStream server inside the process for
// single-instance deployments.
type EmbeddedServer struct {
	server *server.Server
	logger zerolog.Logger
}

// NewEmbeddedServer starts the server and waits until it accepts
// connections.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEmbeddedServer(cfg *Config, logger zerolog.Logger) (*EmbeddedServer, error) {
	opts := &server.Options{
		ServerName: "wayfarer-events",
		Host:       cfg.EmbeddedHost,
		Port:       cfg.EmbeddedPort,
		JetStream:  true,
		StoreDir:   cfg.EmbeddedStoreDir,
		NoLog:      true,
		NoSigs:     true,
		MaxPayload: 1024 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(embeddedReadyTimeout) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready within %s", embeddedReadyTimeout)
	}

	s := &EmbeddedServer{
		server: ns,
		logger: logger.With().Str("component", "nats-server").Logger(),
	}
	s.logger.Info().Str("url", ns.ClientURL()).Msg("Embedded NATS server started")
	return s, nil
}

// ClientURL returns the connection URL for clients.
func (s *EmbeddedServer) ClientURL() string {
	return s.server.ClientURL()
}

// IsRunning reports server health.
func (s *EmbeddedServer) IsRunning() bool {
	return s.server.Running()
}

// Shutdown stops the server and waits for it to exit.
func (s *EmbeddedServer) Shutdown() {
	s.server.Shutdown()
	s.server.WaitForShutdown()
}

// Serve blocks until ctx is done, then shuts the server down.
func (s *EmbeddedServer) Serve(ctx context.Context) error {
	<-ctx.Done()
	s.Shutdown()
	s.logger.Info().Msg("Embedded NATS server stopped")
	return ctx.Err()
}

// String implements fmt.Stringer for suture logging.
func (s *EmbeddedServer) String() string {
	return "nats-server"
}
