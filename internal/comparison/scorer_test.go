// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package comparison

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/wayfarer/internal/scoring"
)

func sampleRequest() *Request {
	return &Request{
		Entities: []Entity{
			{ID: "kyoto", Name: "Kyoto", Metrics: LocationMetrics{
				AffordabilityScore: 0.4, WeatherRating: 0.7, CultureRating: 1.0, SafetyRating: 0.95,
				TransportRating: 0.9, AverageSentiment: 0.9, TotalVisits: 120, TotalTimeSpent: 300,
			}},
			{ID: "bali", Name: "Bali", Metrics: LocationMetrics{
				AffordabilityScore: 0.9, WeatherRating: 0.9, CultureRating: 0.7, SafetyRating: 0.6,
				TransportRating: 0.3, AverageSentiment: 0.8, TotalVisits: 200, TotalTimeSpent: 500,
			}},
			{ID: "zurich", Name: "Zurich", Metrics: LocationMetrics{
				AffordabilityScore: 0.1, WeatherRating: 0.5, CultureRating: 0.6, SafetyRating: 1.0,
				TransportRating: 1.0, AverageSentiment: 0.6, TotalVisits: 40, TotalTimeSpent: 80,
			}},
		},
	}
}

func TestDefaultWeightsSumToOne(t *testing.T) {
	sum := 0.0
	for _, w := range DefaultWeights() {
		sum += w
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("default weights sum = %v, want 1", sum)
	}
	if len(Keys()) != len(DefaultWeights()) {
		t.Errorf("Keys() = %d entries, want %d", len(Keys()), len(DefaultWeights()))
	}
}

func TestCompare(t *testing.T) {
	s := NewScorer(zerolog.Nop())

	res, err := s.Compare(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}

	if len(res.Rankings) != 3 {
		t.Fatalf("rankings = %d, want 3", len(res.Rankings))
	}
	for i := 1; i < len(res.Rankings); i++ {
		if res.Rankings[i].Total > res.Rankings[i-1].Total {
			t.Errorf("rank %d total %v > rank %d total %v", i+1, res.Rankings[i].Total, i, res.Rankings[i-1].Total)
		}
	}

	for id, score := range res.Scores {
		if score.Total < 0 || score.Total > 1+1e-9 {
			t.Errorf("%s total = %v, want within [0,1]", id, score.Total)
		}
		for _, k := range res.Strengths[id] {
			if score.Normalized[k] <= 0.7 {
				t.Errorf("%s strength %s normalized = %v, want > 0.7", id, k, score.Normalized[k])
			}
		}
		for _, k := range res.Weaknesses[id] {
			if score.Normalized[k] >= 0.3 {
				t.Errorf("%s weakness %s normalized = %v, want < 0.3", id, k, score.Normalized[k])
			}
		}
		if res.Recommendations[id] == "" {
			t.Errorf("%s has no recommendation", id)
		}
	}

	// Zurich is the most expensive and so scores 0 on cost.
	if !contains(res.Weaknesses["zurich"], CriterionCost) {
		t.Errorf("zurich weaknesses = %v, want cost", res.Weaknesses["zurich"])
	}
	if !contains(res.Strengths["kyoto"], CriterionCulture) {
		t.Errorf("kyoto strengths = %v, want culture", res.Strengths["kyoto"])
	}
	if !strings.Contains(res.Recommendations["zurich"], "falls behind on affordability") {
		t.Errorf("zurich recommendation = %q", res.Recommendations["zurich"])
	}
}

func TestCompareCustomWeights(t *testing.T) {
	s := NewScorer(zerolog.Nop())
	req := sampleRequest()
	req.Weights = map[string]float64{CriterionCost: 1}

	res, err := s.Compare(context.Background(), req)
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if res.Rankings[0].EntityID != "bali" {
		t.Errorf("winner = %s, want bali on cost alone", res.Rankings[0].EntityID)
	}
	if res.Rankings[0].Verdict != VerdictExcellent {
		t.Errorf("verdict = %s, want excellent", res.Rankings[0].Verdict)
	}
	if res.Rankings[2].Verdict != VerdictUnsuitable {
		t.Errorf("last verdict = %s, want unsuitable", res.Rankings[2].Verdict)
	}
	if _, ok := res.Scores["bali"].Criteria[CriterionSafety]; ok {
		t.Error("criteria with zero weight should not be scored")
	}
}

func TestCompareValidation(t *testing.T) {
	tests := []struct {
		name string
		req  *Request
		rule string
	}{
		{"one entity", &Request{Entities: sampleRequest().Entities[:1]}, scoring.RuleTooFewAlternative},
		{"duplicate id", &Request{Entities: []Entity{{ID: "a"}, {ID: "a"}}}, scoring.RuleDuplicateID},
		{"unknown weight", &Request{Entities: sampleRequest().Entities, Weights: map[string]float64{"nightlife": 1}}, scoring.RuleUnknownCriterion},
		{"weight sum", &Request{Entities: sampleRequest().Entities, Weights: map[string]float64{CriterionCost: 0.5}}, scoring.RuleWeightSum},
		{"NaN weight", &Request{Entities: sampleRequest().Entities, Weights: map[string]float64{CriterionCost: math.NaN()}}, scoring.RuleWeightRange},
	}

	s := NewScorer(zerolog.Nop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Compare(context.Background(), tt.req)
			var ve *scoring.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Compare() error = %v, want *ValidationError", err)
			}
			if ve.Rule != tt.rule {
				t.Errorf("rule = %s, want %s", ve.Rule, tt.rule)
			}
		})
	}
}

func TestVerdictFor(t *testing.T) {
	tests := []struct {
		total float64
		want  Verdict
	}{
		{0.95, VerdictExcellent},
		{0.8, VerdictGood},
		{0.61, VerdictGood},
		{0.6, VerdictFair},
		{0.4, VerdictFair},
		{0.39, VerdictUnsuitable},
		{0, VerdictUnsuitable},
	}
	for _, tt := range tests {
		if got := VerdictFor(tt.total); got != tt.want {
			t.Errorf("VerdictFor(%v) = %s, want %s", tt.total, got, tt.want)
		}
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
