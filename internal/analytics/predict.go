// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package analytics

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/tomtom215/wayfarer/internal/comparison"
	"github.com/tomtom215/wayfarer/internal/jobs"
	"github.com/tomtom215/wayfarer/internal/patterns"
)

// Weight shifts applied per unit of pattern confidence.
const (
	budgetShift    = 0.10
	sentimentShift = 0.05
	cultureShift   = 0.05
)

// Predict ranks the candidates with weights derived from the user's
// behavior profile. Nothing is persisted.
func (e *Engines) Predict(ctx context.Context, userID string, p *PredictionPayload) (*Prediction, error) {
	analysis, err := e.Patterns.Evaluate(ctx, userID, &p.History)
	if err != nil {
		return nil, err
	}
	jobs.Progress(ctx, 50)

	weights := WeightsFromProfile(&analysis.Profile)
	res, err := e.Comparison.Compare(ctx, &comparison.Request{Entities: p.Candidates, Weights: weights})
	if err != nil {
		return nil, err
	}

	satisfaction := make(map[string]float64, len(res.Scores))
	for id, s := range res.Scores {
		satisfaction[id] = s.Total
	}
	return &Prediction{
		Rankings:              res.Rankings,
		PredictedSatisfaction: satisfaction,
		Confidence:            analysis.Profile.OverallReliability,
		Weights:               weights,
		Profile:               analysis.Profile,
	}, nil
}

// WeightsFromProfile starts from the catalogue defaults and shifts weight
// toward cost for an established budget pattern, toward sentiment for a
// rating pattern and toward culture for explorers. The result sums to 1.
func WeightsFromProfile(profile *patterns.Profile) map[string]float64 {
	w := comparison.DefaultWeights()
	if profile == nil {
		return w
	}

	if bp, ok := profile.Find(patterns.TypePreference, patterns.CategoryBudget); ok {
		w[comparison.CriterionCost] += budgetShift * bp.Confidence
	}
	if bp, ok := profile.Find(patterns.TypePreference, patterns.CategoryRating); ok {
		w[comparison.CriterionSentiment] += sentimentShift * bp.Confidence
	}
	if bp, ok := profile.Find(patterns.TypeExploration, patterns.CategoryNovelty); ok {
		var novelty patterns.NoveltyPattern
		if json.Unmarshal(bp.Payload, &novelty) == nil && novelty.Style == patterns.StyleExplorer {
			w[comparison.CriterionCulture] += cultureShift * bp.Confidence
		}
	}

	sum := 0.0
	for _, v := range w {
		sum += v
	}
	for k, v := range w {
		w[k] = v / sum
	}
	return w
}
