// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

// Package patterns derives confidence- and significance-scored behavior
// patterns from a user's historical activity, aggregates them into a
// profile and turns the profile into plain-language recommendations.
//
// Every detector follows the same policy: fewer than MinDataPoints records
// yields the insufficient_data sentinel with confidence 0, confidence grows
// as min(cap, dataPoints/normalizer), and only results with confidence of
// at least MinConfidence become patterns.
package patterns

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

// PatternType is the top-level pattern family.
type PatternType string

const (
	TypePreference  PatternType = "preference"
	TypeDecision    PatternType = "decision"
	TypeExploration PatternType = "exploration"
	TypeBias        PatternType = "bias"
)

// Default acceptance policy.
const (
	MinDataPoints = 3
	MinConfidence = 0.6
)

// Skip reasons.
const (
	ReasonInsufficientData = "insufficient_data"
	ReasonLowConfidence    = "low_confidence"
	ReasonNotDetected      = "not_detected"
)

// BehaviorPattern is an accepted pattern. Re-analysis upserts it by
// (UserID, PatternType, Category); the analyzer never deletes patterns.
type BehaviorPattern struct {
	UserID        string          `json:"user_id"`
	PatternType   PatternType     `json:"pattern_type"`
	Category      string          `json:"category"`
	Payload       json.RawMessage `json:"payload"`
	Frequency     int             `json:"frequency"`
	Confidence    float64         `json:"confidence"`
	Significance  float64         `json:"significance"`
	Triggers      []string        `json:"triggers"`
	Outcomes      []string        `json:"outcomes"`
	FirstObserved time.Time       `json:"first_observed"`
	LastObserved  time.Time       `json:"last_observed"`
	DataPoints    int             `json:"data_points"`
	Reliability   float64         `json:"reliability"`
	IsActive      bool            `json:"is_active"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Key identifies a pattern for upserts.
func (p *BehaviorPattern) Key() string {
	return PatternKey(p.UserID, p.PatternType, p.Category)
}

// PatternKey builds the upsert key for a pattern.
func PatternKey(userID string, t PatternType, category string) string {
	return userID + ":" + string(t) + ":" + category
}

// DetectorResult is the raw output of one detector.
type DetectorResult struct {
	Pattern       interface{}
	Frequency     int
	Confidence    float64
	Significance  float64
	Triggers      []string
	Outcomes      []string
	DataPoints    int
	FirstObserved time.Time
	LastObserved  time.Time
	// Insufficient marks the sentinel returned below MinDataPoints.
	Insufficient bool
}

// Skipped records a detector result that did not become a pattern.
type Skipped struct {
	PatternType PatternType `json:"pattern_type"`
	Category    string      `json:"category"`
	DataPoints  int         `json:"data_points"`
	Confidence  float64     `json:"confidence"`
	Reason      string      `json:"reason"`
}

// Profile groups accepted patterns by type.
type Profile struct {
	UserID             string            `json:"user_id"`
	Preferences        []BehaviorPattern `json:"preferences"`
	Decisions          []BehaviorPattern `json:"decisions"`
	Exploration        []BehaviorPattern `json:"exploration"`
	Biases             []BehaviorPattern `json:"biases"`
	OverallReliability float64           `json:"overall_reliability"`
	PatternCount       int               `json:"pattern_count"`
	GeneratedAt        time.Time         `json:"generated_at"`
}

// Find returns the profile pattern for (t, category).
func (p *Profile) Find(t PatternType, category string) (BehaviorPattern, bool) {
	var group []BehaviorPattern
	switch t {
	case TypePreference:
		group = p.Preferences
	case TypeDecision:
		group = p.Decisions
	case TypeExploration:
		group = p.Exploration
	case TypeBias:
		group = p.Biases
	}
	for _, bp := range group {
		if bp.Category == category {
			return bp, true
		}
	}
	return BehaviorPattern{}, false
}

// AnalysisResult is the output of one analysis run.
type AnalysisResult struct {
	UserID          string            `json:"user_id"`
	Patterns        []BehaviorPattern `json:"patterns"`
	Skipped         []Skipped         `json:"skipped"`
	Profile         Profile           `json:"profile"`
	Recommendations []string          `json:"recommendations"`
	Persisted       bool              `json:"persisted"`
}

// Store persists patterns. Implementations upsert by Key and merge with
// MergePattern.
type Store interface {
	UpsertPattern(ctx context.Context, p *BehaviorPattern) (*BehaviorPattern, error)
	ListPatterns(ctx context.Context, userID string) ([]BehaviorPattern, error)
}

// MergePattern folds an incoming observation into an existing pattern: the
// first observation time is kept, frequency accumulates and every other
// field takes the incoming value.
func MergePattern(existing, incoming *BehaviorPattern) BehaviorPattern {
	merged := *incoming
	if existing == nil {
		return merged
	}
	if !existing.FirstObserved.IsZero() && (merged.FirstObserved.IsZero() || existing.FirstObserved.Before(merged.FirstObserved)) {
		merged.FirstObserved = existing.FirstObserved
	}
	if existing.LastObserved.After(merged.LastObserved) {
		merged.LastObserved = existing.LastObserved
	}
	merged.Frequency = existing.Frequency + incoming.Frequency
	return merged
}
