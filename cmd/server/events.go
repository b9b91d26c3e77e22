// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/wayfarer/internal/broadcast"
	"github.com/tomtom215/wayfarer/internal/config"
	"github.com/tomtom215/wayfarer/internal/eventbus"
	"github.com/tomtom215/wayfarer/internal/logging"
	"github.com/tomtom215/wayfarer/internal/supervisor"
)

// initEvents opens the event bus and attaches it to the broadcaster so every
// published event is mirrored to the bus. Returns nil when the bus is disabled.
// An embedded NATS server joins the data layer.
func initEvents(ctx context.Context, cfg *config.Config, b *broadcast.Broadcaster, tree *supervisor.Tree) (*eventbus.Bus, error) {
	if !cfg.Events.Enabled() {
		logging.Info().Msg("Event bus disabled (EVENTS_BACKEND=none)")
		return nil, nil
	}

	bus, err := eventbus.Open(ctx, &cfg.Events, logging.Logger())
	if err != nil {
		return nil, fmt.Errorf("open event bus: %w", err)
	}

	b.AddSink(bus.Forwarder)
	if bus.Server != nil {
		tree.AddDataService(bus.Server)
		logging.Info().Str("url", bus.Server.ClientURL()).Msg("Embedded NATS server added to supervisor tree")
	}

	logging.Info().
		Str("backend", string(cfg.Events.Backend)).
		Str("subject_prefix", cfg.Events.SubjectPrefix).
		Msg("Event bus initialized")
	return bus, nil
}
