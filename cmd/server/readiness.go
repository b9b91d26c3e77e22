// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/wayfarer/internal/api"
	"github.com/tomtom215/wayfarer/internal/jobs"
	"github.com/tomtom215/wayfarer/internal/patterns"
)

// readinessProbeUser is a user id no client can send (":" is rejected by
// the identity middleware).
const readinessProbeUser = "readiness:probe"

func storeCheck(s patterns.Store) api.ReadinessCheck {
	return api.ReadinessCheck{
		Name: "store",
		Check: func(ctx context.Context) error {
			_, err := s.ListPatterns(ctx, readinessProbeUser)
			return err
		},
	}
}

type statsSource interface {
	Stats() jobs.Stats
}

func schedulerCheck(s statsSource, maxQueue int) api.ReadinessCheck {
	return api.ReadinessCheck{
		Name: "scheduler",
		Check: func(context.Context) error {
			if depth := s.Stats().QueueDepth; depth >= maxQueue {
				return fmt.Errorf("%w: %d queued", jobs.ErrQueueFull, depth)
			}
			return nil
		},
	}
}

type breakerSource interface {
	BreakerState() string
}

func eventsCheck(b breakerSource) api.ReadinessCheck {
	return api.ReadinessCheck{
		Name: "events",
		Check: func(context.Context) error {
			if state := b.BreakerState(); state == "open" {
				return fmt.Errorf("event bus circuit breaker is %s", state)
			}
			return nil
		},
	}
}
