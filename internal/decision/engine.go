// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package decision

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/wayfarer/internal/metrics"
	"github.com/tomtom215/wayfarer/internal/scoring"
)

// Engine evaluates decision matrices. It holds no per-matrix state and is
// safe for concurrent use.
type Engine struct {
	config *Config
	logger zerolog.Logger
	now    func() time.Time
}

// NewEngine creates a decision engine. A nil config uses DefaultConfig.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid decision config: %w", err)
	}
	return &Engine{
		config: cfg,
		logger: logger.With().Str("component", "decision").Logger(),
		now:    time.Now,
	}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return *e.config
}

// Validate checks a matrix against the engine's weight tolerance.
func (e *Engine) Validate(m *Matrix) error {
	return m.Validate(e.config.WeightTolerance)
}

// Create validates the matrix, scores and ranks the alternatives, runs the
// sensitivity analysis and derives a recommendation. Validation failures
// are returned as *scoring.ValidationError.
func (e *Engine) Create(ctx context.Context, m *Matrix) (*Result, error) {
	if err := e.Validate(m); err != nil {
		metrics.RecordDecisionMatrix("invalid")
		return nil, err
	}

	keys := m.criterionKeys()
	weights := make(map[string]float64, len(keys))
	for _, k := range keys {
		weights[k] = m.Criteria[k].Weight
	}

	scored, err := e.score(m, keys, weights)
	if err != nil {
		metrics.RecordDecisionMatrix("error")
		return nil, err
	}
	ranked := scoring.Rank(scored)

	result := &Result{
		Name:        m.Name,
		Scores:      make(map[string]AlternativeScore, len(scored)),
		Rankings:    make([]RankEntry, len(ranked)),
		Sensitivity: make(map[string]SensitivityResult, len(keys)),
		ComputedAt:  e.now().UTC(),
	}
	for _, s := range scored {
		result.Scores[s.ID] = AlternativeScore{Criteria: s.Weighted, Normalized: s.Normalized, Total: s.Total}
	}
	for i, s := range ranked {
		result.Rankings[i] = RankEntry{
			Rank:          i + 1,
			AlternativeID: s.ID,
			Name:          m.Alternatives[s.Order].DisplayName(),
			Total:         s.Total,
		}
	}

	if len(keys) < 2 {
		result.SensitivitySkipped = true
	} else {
		sens, err := e.sensitivity(ctx, m, keys, weights, ranked[0].ID)
		if err != nil {
			metrics.RecordDecisionMatrix("cancelled")
			return nil, err
		}
		result.Sensitivity = sens
	}

	result.Recommendation = e.recommend(m, keys, ranked, result.Sensitivity)

	metrics.RecordDecisionMatrix("ok")
	e.logger.Debug().
		Str("matrix", m.Name).
		Int("criteria", len(keys)).
		Int("alternatives", len(m.Alternatives)).
		Str("winner", result.Recommendation.Winner).
		Float64("confidence", result.Recommendation.Confidence).
		Msg("decision matrix evaluated")

	return result, nil
}

// Update applies patch to base and recomputes the whole matrix. The base
// matrix is not modified.
func (e *Engine) Update(ctx context.Context, base *Matrix, patch *MatrixPatch) (*Matrix, *Result, error) {
	merged := Merge(base, patch)
	result, err := e.Create(ctx, merged)
	if err != nil {
		return nil, nil, err
	}
	return merged, result, nil
}

// Merge returns a copy of base with patch applied.
func Merge(base *Matrix, patch *MatrixPatch) *Matrix {
	out := &Matrix{
		Name:         base.Name,
		Criteria:     make(map[string]Criterion, len(base.Criteria)),
		Alternatives: make([]Alternative, 0, len(base.Alternatives)),
	}
	for k, c := range base.Criteria {
		out.Criteria[k] = c
	}
	for _, a := range base.Alternatives {
		out.Alternatives = append(out.Alternatives, copyAlternative(a))
	}
	if patch == nil {
		return out
	}

	if patch.Name != nil {
		out.Name = *patch.Name
	}
	for k, c := range patch.Criteria {
		out.Criteria[k] = c
	}
	for _, k := range patch.RemoveCriteria {
		delete(out.Criteria, k)
	}

	index := make(map[string]int, len(out.Alternatives))
	for i, a := range out.Alternatives {
		index[a.ID] = i
	}
	for _, a := range patch.Alternatives {
		i, ok := index[a.ID]
		if !ok {
			index[a.ID] = len(out.Alternatives)
			out.Alternatives = append(out.Alternatives, copyAlternative(a))
			continue
		}
		existing := &out.Alternatives[i]
		if a.Name != "" {
			existing.Name = a.Name
		}
		for k, v := range a.Data {
			existing.Data[k] = v
		}
	}

	if len(patch.RemoveAlternatives) > 0 {
		drop := make(map[string]struct{}, len(patch.RemoveAlternatives))
		for _, id := range patch.RemoveAlternatives {
			drop[id] = struct{}{}
		}
		kept := out.Alternatives[:0]
		for _, a := range out.Alternatives {
			if _, ok := drop[a.ID]; !ok {
				kept = append(kept, a)
			}
		}
		out.Alternatives = kept
	}
	return out
}

func copyAlternative(a Alternative) Alternative {
	data := make(map[string]float64, len(a.Data))
	for k, v := range a.Data {
		data[k] = v
	}
	return Alternative{ID: a.ID, Name: a.Name, Data: data}
}

// score runs one aggregation pass with the given weights.
func (e *Engine) score(m *Matrix, keys []string, weights map[string]float64) ([]scoring.Scored, error) {
	criteria := make([]scoring.Weighted, len(keys))
	for i, k := range keys {
		criteria[i] = scoring.Weighted{Key: k, Weight: weights[k], Scale: m.Criteria[k].Scale}
	}
	rows := make([]scoring.Row, len(m.Alternatives))
	for i, a := range m.Alternatives {
		rows[i] = scoring.Row{ID: a.ID, Values: a.Data}
	}
	return scoring.Aggregate(criteria, rows)
}
