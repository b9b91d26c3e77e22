// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package main

import (
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/wayfarer/internal/config"
	"github.com/tomtom215/wayfarer/internal/detection"
	"github.com/tomtom215/wayfarer/internal/jobs"
	"github.com/tomtom215/wayfarer/internal/logging"
	"github.com/tomtom215/wayfarer/internal/store"
)

type fakeBias struct {
	configured map[detection.BiasType]string
	enabled    map[detection.BiasType]bool
}

func newFakeBias() *fakeBias {
	return &fakeBias{
		configured: make(map[detection.BiasType]string),
		enabled:    make(map[detection.BiasType]bool),
	}
}

func (f *fakeBias) Configure(t detection.BiasType, raw json.RawMessage) error {
	f.configured[t] = string(raw)
	return nil
}

func (f *fakeBias) SetEnabled(t detection.BiasType, enabled bool) error {
	f.enabled[t] = enabled
	return nil
}

func TestApplyBiasConfig(t *testing.T) {
	f := newFakeBias()
	cfg := &config.BiasConfig{
		Anchoring:    config.DetectorConfig{Enabled: true},
		Recency:      config.DetectorConfig{Enabled: true, MinSamples: 8, RecentWindow: 4},
		Confirmation: config.DetectorConfig{Enabled: false},
		Availability: config.DetectorConfig{Enabled: true},
	}

	if err := applyBiasConfig(f, cfg); err != nil {
		t.Fatalf("applyBiasConfig() error = %v", err)
	}

	if len(f.configured) != 1 {
		t.Errorf("configured %d detectors, want 1", len(f.configured))
	}
	if got := f.configured[detection.BiasRecency]; got != `{"min_samples":8,"recent_window":4}` {
		t.Errorf("recency config = %s", got)
	}
	if f.enabled[detection.BiasConfirmation] {
		t.Error("confirmation should be disabled")
	}
	if !f.enabled[detection.BiasAnchoring] {
		t.Error("anchoring should be enabled")
	}
}

func TestApplyBiasConfigRealEngine(t *testing.T) {
	e := detection.NewEngine(logging.Nop())
	cfg := &config.BiasConfig{
		Anchoring:    config.DetectorConfig{Enabled: true, MinSamples: 4},
		Recency:      config.DetectorConfig{Enabled: true},
		Confirmation: config.DetectorConfig{Enabled: true},
		Availability: config.DetectorConfig{Enabled: false},
	}
	if err := applyBiasConfig(e, cfg); err != nil {
		t.Fatalf("applyBiasConfig() error = %v", err)
	}
}

type fakeStats struct{ depth int }

func (f fakeStats) Stats() jobs.Stats { return jobs.Stats{QueueDepth: f.depth} }

type fakeBreaker string

func (f fakeBreaker) BreakerState() string { return string(f) }

func TestReadinessChecks(t *testing.T) {
	ctx := context.Background()

	if err := storeCheck(store.NewMemory()).Check(ctx); err != nil {
		t.Errorf("store check error = %v", err)
	}

	if err := schedulerCheck(fakeStats{depth: 2}, 10).Check(ctx); err != nil {
		t.Errorf("scheduler check error = %v", err)
	}
	err := schedulerCheck(fakeStats{depth: 10}, 10).Check(ctx)
	if !errors.Is(err, jobs.ErrQueueFull) {
		t.Errorf("full scheduler check error = %v, want ErrQueueFull", err)
	}

	for state, wantErr := range map[string]bool{"closed": false, "half-open": false, "disabled": false, "open": true} {
		err := eventsCheck(fakeBreaker(state)).Check(ctx)
		if (err != nil) != wantErr {
			t.Errorf("events check(%s) error = %v, wantErr %v", state, err, wantErr)
		}
	}
}
