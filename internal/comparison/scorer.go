// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package comparison

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/tomtom215/wayfarer/internal/scoring"
)

const (
	strengthThreshold = 0.7
	weaknessThreshold = 0.3
	weightTolerance   = 0.01
)

// Scorer compares entities on the metric catalogue. It is stateless and
// safe for concurrent use.
type Scorer struct {
	logger zerolog.Logger
}

// NewScorer creates a comparison scorer.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewScorer(logger zerolog.Logger) *Scorer {
	return &Scorer{logger: logger.With().Str("component", "comparison").Logger()}
}

// Validate checks the request and returns a *scoring.ValidationError for the
// first violated rule.
func (s *Scorer) Validate(req *Request) error {
	if len(req.Entities) < 2 {
		return scoring.NewValidationError(scoring.RuleTooFewAlternative, "entities",
			"at least 2 entities are required, got %d", len(req.Entities))
	}
	seen := make(map[string]struct{}, len(req.Entities))
	for i, e := range req.Entities {
		if e.ID == "" {
			return scoring.NewValidationError(scoring.RuleDuplicateID, "entities", "entity at position %d has no id", i)
		}
		if _, dup := seen[e.ID]; dup {
			return scoring.NewValidationError(scoring.RuleDuplicateID, "entities."+e.ID, "entity id is used more than once")
		}
		seen[e.ID] = struct{}{}
	}
	if req.Weights == nil {
		return nil
	}

	keys := make([]string, 0, len(req.Weights))
	for k := range req.Weights {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	sum := 0.0
	for _, k := range keys {
		if _, ok := lookup(k); !ok {
			return scoring.NewValidationError(scoring.RuleUnknownCriterion, "weights."+k, "not a catalogue criterion")
		}
		w := req.Weights[k]
		if math.IsNaN(w) || w < 0 || w > 1 {
			return scoring.NewValidationError(scoring.RuleWeightRange, "weights."+k, "weight must be in [0,1], got %v", w)
		}
		sum += w
	}
	if math.Abs(sum-1) > weightTolerance+1e-9 {
		return scoring.NewValidationError(scoring.RuleWeightSum, "weights", "weights must sum to 1.0 (±%.2f), got %.4f", weightTolerance, sum)
	}
	return nil
}

// Compare scores, ranks and describes every entity in the request.
func (s *Scorer) Compare(ctx context.Context, req *Request) (*Result, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	weights := req.Weights
	if weights == nil {
		weights = DefaultWeights()
	}

	criteria := make([]scoring.Weighted, 0, len(catalogue))
	for _, c := range catalogue {
		w, ok := weights[c.key]
		if !ok || w == 0 {
			continue
		}
		criteria = append(criteria, scoring.Weighted{Key: c.key, Weight: w, Scale: c.scale})
	}

	rows := make([]scoring.Row, len(req.Entities))
	for i, e := range req.Entities {
		values := make(map[string]float64, len(criteria))
		for _, c := range catalogue {
			values[c.key] = c.value(e.Metrics)
		}
		rows[i] = scoring.Row{ID: e.ID, Values: values}
	}

	scored, err := scoring.Aggregate(criteria, rows)
	if err != nil {
		return nil, fmt.Errorf("aggregate scores: %w", err)
	}
	ranked := scoring.Rank(scored)

	res := &Result{
		Scores:          make(map[string]EntityScore, len(scored)),
		Rankings:        make([]RankEntry, len(ranked)),
		Strengths:       make(map[string][]string, len(scored)),
		Weaknesses:      make(map[string][]string, len(scored)),
		Recommendations: make(map[string]string, len(scored)),
		Weights:         weights,
	}

	for _, sc := range scored {
		res.Scores[sc.ID] = EntityScore{Criteria: sc.Weighted, Normalized: sc.Normalized, Total: sc.Total}
		strengths, weaknesses := make([]string, 0), make([]string, 0)
		for _, c := range criteria {
			n := sc.Normalized[c.Key]
			switch {
			case n > strengthThreshold:
				strengths = append(strengths, c.Key)
			case n < weaknessThreshold:
				weaknesses = append(weaknesses, c.Key)
			}
		}
		res.Strengths[sc.ID] = strengths
		res.Weaknesses[sc.ID] = weaknesses
	}

	for i, sc := range ranked {
		entity := req.Entities[sc.Order]
		verdict := VerdictFor(sc.Total)
		res.Rankings[i] = RankEntry{
			Rank:     i + 1,
			EntityID: sc.ID,
			Name:     entity.DisplayName(),
			Total:    sc.Total,
			Verdict:  verdict,
		}
		res.Recommendations[sc.ID] = describe(entity.DisplayName(), verdict, res.Strengths[sc.ID], res.Weaknesses[sc.ID])
	}

	s.logger.Debug().
		Int("entities", len(req.Entities)).
		Str("top", ranked[0].ID).
		Float64("top_total", ranked[0].Total).
		Msg("comparison scored")

	return res, nil
}

// VerdictFor buckets a total score.
func VerdictFor(total float64) Verdict {
	switch {
	case total > 0.8:
		return VerdictExcellent
	case total > 0.6:
		return VerdictGood
	case total >= 0.4:
		return VerdictFair
	default:
		return VerdictUnsuitable
	}
}
