// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package patterns

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/wayfarer/internal/activity"
	"github.com/tomtom215/wayfarer/internal/detection"
	"github.com/tomtom215/wayfarer/internal/metrics"
)

// ErrNoStore is returned by Profile when the analyzer has no pattern store.
var ErrNoStore = errors.New("pattern store not configured")

// Config holds the acceptance policy.
type Config struct {
	MinDataPoints int     `koanf:"min_data_points"`
	MinConfidence float64 `koanf:"min_confidence"`
}

// DefaultConfig returns the standard acceptance policy.
func DefaultConfig() *Config {
	return &Config{
		MinDataPoints: MinDataPoints,
		MinConfidence: MinConfidence,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MinDataPoints < 1 {
		return fmt.Errorf("min_data_points must be positive, got %d", c.MinDataPoints)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be in [0,1], got %v", c.MinConfidence)
	}
	return nil
}

// BiasDetector produces bias findings for the bias pattern family.
type BiasDetector interface {
	DetectAll(ctx context.Context, history *activity.History) ([]*detection.Finding, error)
}

// Analyzer runs the pattern detectors over a user's history.
type Analyzer struct {
	cfg    *Config
	bias   BiasDetector
	store  Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewAnalyzer creates an analyzer. bias and store are optional; without a
// bias detector no bias patterns are produced and without a store nothing
// is persisted.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewAnalyzer(cfg *Config, bias BiasDetector, store Store, logger zerolog.Logger) (*Analyzer, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pattern config: %w", err)
	}
	return &Analyzer{
		cfg:    cfg,
		bias:   bias,
		store:  store,
		logger: logger.With().Str("component", "pattern_analyzer").Logger(),
		now:    time.Now,
	}, nil
}

// Analyze evaluates the history and upserts every accepted pattern through
// the store when one is configured.
func (a *Analyzer) Analyze(ctx context.Context, userID string, history *activity.History) (*AnalysisResult, error) {
	result, err := a.Evaluate(ctx, userID, history)
	if err != nil {
		return nil, err
	}
	if a.store == nil {
		return result, nil
	}

	merged := make([]BehaviorPattern, 0, len(result.Patterns))
	for i := range result.Patterns {
		stored, err := a.store.UpsertPattern(ctx, &result.Patterns[i])
		if err != nil {
			return nil, fmt.Errorf("failed to persist pattern %s: %w", result.Patterns[i].Key(), err)
		}
		merged = append(merged, *stored)
	}
	result.Patterns = merged
	result.Profile = BuildProfile(userID, merged, result.Profile.GeneratedAt)
	result.Recommendations = Recommend(&result.Profile)
	result.Persisted = true
	return result, nil
}

// Evaluate runs every detector without persisting anything.
func (a *Analyzer) Evaluate(ctx context.Context, userID string, history *activity.History) (*AnalysisResult, error) {
	if history == nil {
		return nil, errors.New("history is required")
	}
	now := a.now()
	result := &AnalysisResult{
		UserID:   userID,
		Patterns: []BehaviorPattern{},
		Skipped:  []Skipped{},
	}

	for _, d := range activityDetectors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := d.detect(history, a.cfg.MinDataPoints)
		a.accept(result, userID, d.patternType, d.category, res, now)
	}

	if a.bias != nil {
		findings, err := a.bias.DetectAll(ctx, history)
		if err != nil {
			return nil, fmt.Errorf("bias detection failed: %w", err)
		}
		for _, f := range findings {
			if f == nil || f.Insufficient || len(f.Evidence) == 0 {
				continue
			}
			if !biasDetected(f.Severity) {
				result.Skipped = append(result.Skipped, Skipped{
					PatternType: TypeBias,
					Category:    string(f.BiasType),
					DataPoints:  f.SampleSize,
					Confidence:  f.Confidence,
					Reason:      ReasonNotDetected,
				})
				continue
			}
			a.accept(result, userID, TypeBias, string(f.BiasType), biasResult(f), now)
		}
	}

	result.Profile = BuildProfile(userID, result.Patterns, now)
	result.Recommendations = Recommend(&result.Profile)

	counts := make(map[PatternType]int)
	for i := range result.Patterns {
		counts[result.Patterns[i].PatternType]++
	}
	for t, n := range counts {
		metrics.RecordPatternsDetected(string(t), n)
	}

	a.logger.Debug().
		Str("user_id", userID).
		Int("accepted", len(result.Patterns)).
		Int("skipped", len(result.Skipped)).
		Msg("Pattern analysis complete")
	return result, nil
}

// Profile builds the profile of a user from the stored patterns.
func (a *Analyzer) Profile(ctx context.Context, userID string) (*Profile, error) {
	if a.store == nil {
		return nil, ErrNoStore
	}
	stored, err := a.store.ListPatterns(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list patterns: %w", err)
	}
	active := stored[:0:0]
	for i := range stored {
		if stored[i].IsActive {
			active = append(active, stored[i])
		}
	}
	p := BuildProfile(userID, active, a.now())
	return &p, nil
}

func (a *Analyzer) accept(result *AnalysisResult, userID string, t PatternType, category string, res DetectorResult, now time.Time) {
	if res.Insufficient || res.DataPoints < a.cfg.MinDataPoints {
		result.Skipped = append(result.Skipped, Skipped{
			PatternType: t,
			Category:    category,
			DataPoints:  res.DataPoints,
			Confidence:  0,
			Reason:      ReasonInsufficientData,
		})
		return
	}
	if res.Confidence < a.cfg.MinConfidence {
		result.Skipped = append(result.Skipped, Skipped{
			PatternType: t,
			Category:    category,
			DataPoints:  res.DataPoints,
			Confidence:  res.Confidence,
			Reason:      ReasonLowConfidence,
		})
		return
	}

	payload, err := json.Marshal(res.Pattern)
	if err != nil {
		a.logger.Warn().Err(err).Str("category", category).Msg("Failed to encode pattern payload")
		return
	}
	first, last := res.FirstObserved, res.LastObserved
	if first.IsZero() {
		first = now
	}
	if last.IsZero() {
		last = now
	}
	result.Patterns = append(result.Patterns, BehaviorPattern{
		UserID:        userID,
		PatternType:   t,
		Category:      category,
		Payload:       payload,
		Frequency:     res.Frequency,
		Confidence:    res.Confidence,
		Significance:  res.Significance,
		Triggers:      nonNil(res.Triggers),
		Outcomes:      nonNil(res.Outcomes),
		FirstObserved: first,
		LastObserved:  last,
		DataPoints:    res.DataPoints,
		Reliability:   (res.Confidence + res.Significance) / 2,
		IsActive:      true,
		UpdatedAt:     now,
	})
}

// BiasPattern is the payload of bias patterns.
type BiasPattern struct {
	Severity detection.Severity `json:"severity"`
	Score    float64            `json:"score"`
	Evidence []string           `json:"evidence"`
	Metadata json.RawMessage    `json:"metadata,omitempty"`
}

// biasDetected reports whether a finding graded sev counts as a bias. Low
// findings are the detectors' baseline and are never accepted.
func biasDetected(sev detection.Severity) bool {
	return sev == detection.SeverityMedium || sev == detection.SeverityHigh
}

func biasResult(f *detection.Finding) DetectorResult {
	return DetectorResult{
		Pattern: BiasPattern{
			Severity: f.Severity,
			Score:    f.Score,
			Evidence: f.Evidence,
			Metadata: f.Metadata,
		},
		Frequency:     len(f.AffectedDecisions),
		Confidence:    f.Confidence,
		Significance:  f.Severity.Weight(),
		Triggers:      []string{string(f.BiasType)},
		Outcomes:      []string{"severity_" + string(f.Severity)},
		DataPoints:    f.SampleSize,
		FirstObserved: f.DetectedAt,
		LastObserved:  f.DetectedAt,
	}
}

// BuildProfile groups patterns by type. OverallReliability is the mean
// reliability of the patterns, or 0 when there are none.
func BuildProfile(userID string, patterns []BehaviorPattern, now time.Time) Profile {
	p := Profile{
		UserID:      userID,
		Preferences: []BehaviorPattern{},
		Decisions:   []BehaviorPattern{},
		Exploration: []BehaviorPattern{},
		Biases:      []BehaviorPattern{},
		GeneratedAt: now,
	}
	sum := 0.0
	for i := range patterns {
		bp := patterns[i]
		switch bp.PatternType {
		case TypePreference:
			p.Preferences = append(p.Preferences, bp)
		case TypeDecision:
			p.Decisions = append(p.Decisions, bp)
		case TypeExploration:
			p.Exploration = append(p.Exploration, bp)
		case TypeBias:
			p.Biases = append(p.Biases, bp)
		default:
			continue
		}
		sum += bp.Reliability
		p.PatternCount++
	}
	if p.PatternCount > 0 {
		p.OverallReliability = sum / float64(p.PatternCount)
	}
	return p
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
