// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package detection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/wayfarer/internal/activity"
	"github.com/tomtom215/wayfarer/internal/metrics"
)

// Engine runs the registered bias detectors in registration order.
type Engine struct {
	detectors map[BiasType]Detector
	order     []BiasType
	logger    zerolog.Logger

	mu           sync.RWMutex
	metricsStore *EngineMetrics
}

// EngineMetrics tracks detection engine activity.
type EngineMetrics struct {
	Runs             int64
	FindingsProduced int64
	Insufficient     int64
	AvgProcessingMs  float64
	LastRunAt        time.Time
	mu               sync.RWMutex
}

// MetricsSnapshot is a copy of EngineMetrics safe to read without locks.
type MetricsSnapshot struct {
	Runs             int64     `json:"runs"`
	FindingsProduced int64     `json:"findings_produced"`
	Insufficient     int64     `json:"insufficient"`
	AvgProcessingMs  float64   `json:"avg_processing_ms"`
	LastRunAt        time.Time `json:"last_run_at"`
}

// NewEngine creates an engine with the four standard detectors registered
// in the order anchoring, recency, confirmation, availability.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(logger zerolog.Logger) *Engine {
	e := &Engine{
		detectors:    make(map[BiasType]Detector),
		logger:       logger.With().Str("component", "bias_detection").Logger(),
		metricsStore: &EngineMetrics{},
	}
	e.RegisterDetector(NewAnchoringDetector())
	e.RegisterDetector(NewRecencyDetector())
	e.RegisterDetector(NewConfirmationDetector())
	e.RegisterDetector(NewAvailabilityDetector())
	return e
}

// RegisterDetector adds or replaces a detector. A replaced detector keeps its position.
func (e *Engine) RegisterDetector(detector Detector) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t := detector.Type()
	if _, exists := e.detectors[t]; !exists {
		e.order = append(e.order, t)
	}
	e.detectors[t] = detector
	e.logger.Debug().Str("detector", string(t)).Msg("registered detector")
}

// Detector returns the registered detector for t.
func (e *Engine) Detector(t BiasType) (Detector, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	d, ok := e.detectors[t]
	return d, ok
}

// Configure forwards a JSON configuration to the detector for t.
func (e *Engine) Configure(t BiasType, config json.RawMessage) error {
	d, ok := e.Detector(t)
	if !ok {
		return fmt.Errorf("unknown bias detector %q", t)
	}
	if err := d.Configure(config); err != nil {
		return fmt.Errorf("configure %s: %w", t, err)
	}
	return nil
}

// SetEnabled toggles the detector for t.
func (e *Engine) SetEnabled(t BiasType, enabled bool) error {
	d, ok := e.Detector(t)
	if !ok {
		return fmt.Errorf("unknown bias detector %q", t)
	}
	d.SetEnabled(enabled)
	return nil
}

// DetectAll runs every enabled detector against the history and returns
// the findings in registration order.
func (e *Engine) DetectAll(ctx context.Context, history *activity.History) ([]*Finding, error) {
	start := time.Now()

	e.mu.RLock()
	detectors := make([]Detector, 0, len(e.order))
	for _, t := range e.order {
		if d := e.detectors[t]; d.Enabled() {
			detectors = append(detectors, d)
		}
	}
	e.mu.RUnlock()

	findings := make([]*Finding, 0, len(detectors))
	var insufficientCount int64
	for _, d := range detectors {
		f, err := d.Detect(ctx, history)
		if err != nil {
			return nil, fmt.Errorf("%s detector: %w", d.Type(), err)
		}
		if f.Insufficient {
			insufficientCount++
		} else {
			metrics.RecordBiasFinding(string(f.BiasType), string(f.Severity))
		}
		findings = append(findings, f)
	}

	e.updateMetrics(start, int64(len(findings)), insufficientCount)

	e.logger.Debug().
		Str("user_id", history.UserID).
		Int("findings", len(findings)).
		Int64("insufficient", insufficientCount).
		Msg("bias detection completed")

	return findings, nil
}

func (e *Engine) updateMetrics(start time.Time, produced, insufficient int64) {
	m := e.metricsStore
	m.mu.Lock()
	defer m.mu.Unlock()

	elapsed := float64(time.Since(start).Microseconds()) / 1000
	m.Runs++
	m.FindingsProduced += produced
	m.Insufficient += insufficient
	m.AvgProcessingMs += (elapsed - m.AvgProcessingMs) / float64(m.Runs)
	m.LastRunAt = time.Now()
}

// Metrics returns a snapshot of the engine metrics.
func (e *Engine) Metrics() MetricsSnapshot {
	m := e.metricsStore
	m.mu.RLock()
	defer m.mu.RUnlock()
	return MetricsSnapshot{
		Runs:             m.Runs,
		FindingsProduced: m.FindingsProduced,
		Insufficient:     m.Insufficient,
		AvgProcessingMs:  m.AvgProcessingMs,
		LastRunAt:        m.LastRunAt,
	}
}
