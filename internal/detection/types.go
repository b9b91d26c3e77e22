// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package detection

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/wayfarer/internal/activity"
)

// BiasType identifies a bias heuristic.
type BiasType string

const (
	BiasAnchoring    BiasType = "anchoring"
	BiasRecency      BiasType = "recency"
	BiasConfirmation BiasType = "confirmation"
	BiasAvailability BiasType = "availability"
)

// Severity grades a finding.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Weight maps a severity onto [0,1] for consumers that need a number.
func (s Severity) Weight() float64 {
	switch s {
	case SeverityHigh:
		return 1.0
	case SeverityMedium:
		return 0.66
	default:
		return 0.33
	}
}

const (
	// InsufficientConfidence is reported when a detector has too few records.
	InsufficientConfidence = 0.3

	// scoreEpsilon absorbs float noise when comparing against thresholds.
	scoreEpsilon = 1e-9
)

// Finding is the output of one detector run. Findings are created fresh on
// every call and are not persisted.
type Finding struct {
	BiasType          BiasType        `json:"bias_type"`
	Severity          Severity        `json:"severity"`
	Confidence        float64         `json:"confidence"`
	Score             float64         `json:"score"`
	Evidence          []string        `json:"evidence"`
	Recommendations   []string        `json:"recommendations"`
	AffectedDecisions []string        `json:"affected_decisions"`
	SampleSize        int             `json:"sample_size"`
	Insufficient      bool            `json:"insufficient_data,omitempty"`
	Metadata          json.RawMessage `json:"metadata,omitempty"`
	DetectedAt        time.Time       `json:"detected_at"`
}

// Detector is implemented by every bias heuristic.
type Detector interface {
	// Type returns the bias this detector grades.
	Type() BiasType

	// Detect evaluates the history. The only error is a cancelled context.
	Detect(ctx context.Context, history *activity.History) (*Finding, error)

	// Configure replaces the detector configuration from JSON.
	Configure(config json.RawMessage) error

	// Enabled returns whether this detector is currently enabled.
	Enabled() bool

	// SetEnabled enables or disables the detector.
	SetEnabled(enabled bool)
}

// Thresholds are the strict lower bounds of the high and medium grades.
type Thresholds struct {
	High   float64 `json:"high"`
	Medium float64 `json:"medium"`
}

func (t Thresholds) validate() error {
	if t.Medium < 0 || t.High > 1 || t.Medium >= t.High {
		return fmt.Errorf("thresholds must satisfy 0 <= medium < high <= 1, got medium=%v high=%v", t.Medium, t.High)
	}
	return nil
}

// Grade maps a score onto a severity.
func (t Thresholds) Grade(score float64) Severity {
	switch {
	case score-t.High > scoreEpsilon:
		return SeverityHigh
	case score-t.Medium > scoreEpsilon:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// sampleConfidence grows with the sample size: min(0.9, 0.5 + n/20).
func sampleConfidence(n int) float64 {
	return math.Min(0.9, 0.5+float64(n)/20)
}

// insufficient builds the sentinel returned below the minimum sample size.
func insufficient(bias BiasType, n int, now time.Time) *Finding {
	return &Finding{
		BiasType:          bias,
		Severity:          SeverityLow,
		Confidence:        InsufficientConfidence,
		Evidence:          []string{},
		Recommendations:   []string{},
		AffectedDecisions: []string{},
		SampleSize:        n,
		Insufficient:      true,
		DetectedAt:        now,
	}
}

// finding builds a graded finding with its recommendations attached.
func finding(bias BiasType, t Thresholds, score float64, n int, evidence, affected []string, metadata interface{}, now time.Time) (*Finding, error) {
	sev := t.Grade(score)
	f := &Finding{
		BiasType:          bias,
		Severity:          sev,
		Confidence:        sampleConfidence(n),
		Score:             score,
		Evidence:          evidence,
		Recommendations:   recommendationsFor(bias, sev),
		AffectedDecisions: affected,
		SampleSize:        n,
		DetectedAt:        now,
	}
	if f.AffectedDecisions == nil {
		f.AffectedDecisions = []string{}
	}
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		f.Metadata = raw
	}
	return f, nil
}

func validateMinSamples(n int) error {
	if n < 1 {
		return fmt.Errorf("min_samples must be positive")
	}
	return nil
}
