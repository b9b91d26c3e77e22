// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package decision

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/wayfarer/internal/scoring"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(nil, zerolog.New(io.Discard))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}

func costQualityMatrix() *Matrix {
	return &Matrix{
		Name: "hotel",
		Criteria: map[string]Criterion{
			"cost":    {Weight: 0.5, Scale: scoring.LowerBetter},
			"quality": {Weight: 0.5, Scale: scoring.HigherBetter},
		},
		Alternatives: []Alternative{
			{ID: "A", Data: map[string]float64{"cost": 100, "quality": 0.9}},
			{ID: "B", Data: map[string]float64{"cost": 50, "quality": 0.5}},
		},
	}
}

func TestCreateTieKeepsSubmissionOrder(t *testing.T) {
	e := newTestEngine(t)

	res, err := e.Create(context.Background(), costQualityMatrix())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if got := res.Scores["A"].Total; math.Abs(got-0.5) > 1e-9 {
		t.Errorf("A total = %v, want 0.5", got)
	}
	if got := res.Scores["B"].Total; math.Abs(got-0.5) > 1e-9 {
		t.Errorf("B total = %v, want 0.5", got)
	}
	if res.Scores["A"].Normalized["cost"] != 0 || res.Scores["B"].Normalized["cost"] != 1 {
		t.Errorf("cost normalization = A:%v B:%v, want A:0 B:1",
			res.Scores["A"].Normalized["cost"], res.Scores["B"].Normalized["cost"])
	}
	if res.Rankings[0].AlternativeID != "A" || res.Rankings[1].AlternativeID != "B" {
		t.Errorf("rankings = %+v, want A then B", res.Rankings)
	}
	if res.Rankings[0].Rank != 1 || res.Rankings[1].Rank != 2 {
		t.Errorf("rank numbers = %d,%d, want 1,2", res.Rankings[0].Rank, res.Rankings[1].Rank)
	}
	if res.Recommendation.Winner != "A" {
		t.Errorf("winner = %s, want A", res.Recommendation.Winner)
	}
	if res.Recommendation.Confidence != 0.5 {
		t.Errorf("confidence = %v, want 0.5 for a tie", res.Recommendation.Confidence)
	}
	if !strings.Contains(strings.Join(res.Recommendation.Reasoning, "|"), "close margin") {
		t.Errorf("reasoning = %v, want a close margin entry", res.Recommendation.Reasoning)
	}

	// Any extra weight on cost makes B win, any extra weight on quality keeps A.
	if s := res.Sensitivity["cost"]; !s.RankingChange || s.NewWinner != "B" {
		t.Errorf("sensitivity[cost] = %+v, want ranking change to B", s)
	}
	if s := res.Sensitivity["quality"]; s.RankingChange {
		t.Errorf("sensitivity[quality] = %+v, want no ranking change", s)
	}
	if len(res.Recommendation.Considerations) != 1 || !strings.Contains(res.Recommendation.Considerations[0], "cost") {
		t.Errorf("considerations = %v, want one entry about cost", res.Recommendation.Considerations)
	}
}

func TestCreateClearWinner(t *testing.T) {
	e := newTestEngine(t)
	m := &Matrix{
		Name: "city break",
		Criteria: map[string]Criterion{
			"price":   {Weight: 0.4, Scale: scoring.LowerBetter},
			"weather": {Weight: 0.3, Scale: scoring.HigherBetter},
			"culture": {Weight: 0.3, Scale: scoring.HigherBetter},
		},
		Alternatives: []Alternative{
			{ID: "lisbon", Name: "Lisbon", Data: map[string]float64{"price": 80, "weather": 0.9, "culture": 0.8}},
			{ID: "oslo", Name: "Oslo", Data: map[string]float64{"price": 200, "weather": 0.3, "culture": 0.7}},
			{ID: "rome", Name: "Rome", Data: map[string]float64{"price": 120, "weather": 0.8, "culture": 0.85}},
		},
	}

	res, err := e.Create(context.Background(), m)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for i := 1; i < len(res.Rankings); i++ {
		if res.Rankings[i].Total > res.Rankings[i-1].Total {
			t.Errorf("ranking totals increase at %d: %v > %v", i+1, res.Rankings[i].Total, res.Rankings[i-1].Total)
		}
	}
	rec := res.Recommendation
	if rec.Winner != "lisbon" {
		t.Fatalf("winner = %s, want lisbon", rec.Winner)
	}
	margin := res.Rankings[0].Total - res.Rankings[1].Total
	if want := math.Min(0.95, 0.5+2*margin); math.Abs(rec.Confidence-want) > 1e-9 {
		t.Errorf("confidence = %v, want %v", rec.Confidence, want)
	}
	if len(rec.Alternatives) != 2 || rec.Alternatives[0] != res.Rankings[1].AlternativeID {
		t.Errorf("alternatives = %v, want the runners-up in rank order", rec.Alternatives)
	}
	joined := strings.Join(rec.Reasoning, "|")
	if !strings.Contains(joined, "Lisbon") || !strings.Contains(joined, "strong on price") {
		t.Errorf("reasoning = %v, want winner name and price strength", rec.Reasoning)
	}
	for key, s := range res.Sensitivity {
		if math.Abs(s.WeightChange-0.10) > 1e-9 {
			t.Errorf("sensitivity[%s].WeightChange = %v, want 0.10", key, s.WeightChange)
		}
	}
}

func TestCreateSingleCriterionSkipsSensitivity(t *testing.T) {
	e := newTestEngine(t)
	m := &Matrix{
		Name:     "price only",
		Criteria: map[string]Criterion{"price": {Weight: 1, Scale: scoring.LowerBetter}},
		Alternatives: []Alternative{
			{ID: "x", Data: map[string]float64{"price": 10}},
			{ID: "y", Data: map[string]float64{"price": 20}},
		},
	}

	res, err := e.Create(context.Background(), m)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !res.SensitivitySkipped {
		t.Error("SensitivitySkipped = false, want true")
	}
	if len(res.Sensitivity) != 0 {
		t.Errorf("sensitivity = %v, want empty", res.Sensitivity)
	}
	if res.Recommendation.Winner != "x" || res.Recommendation.Confidence != MaxConfidence {
		t.Errorf("recommendation = %+v, want x with capped confidence", res.Recommendation)
	}
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *Matrix)
		rule   string
	}{
		{"empty name", func(m *Matrix) { m.Name = " " }, scoring.RuleNameRequired},
		{"no criteria", func(m *Matrix) { m.Criteria = map[string]Criterion{} }, scoring.RuleTooFewCriteria},
		{"one alternative", func(m *Matrix) { m.Alternatives = m.Alternatives[:1] }, scoring.RuleTooFewAlternative},
		{"weights sum to 0.9", func(m *Matrix) {
			m.Criteria = map[string]Criterion{
				"cost":    {Weight: 0.3, Scale: scoring.LowerBetter},
				"quality": {Weight: 0.3, Scale: scoring.HigherBetter},
				"safety":  {Weight: 0.3, Scale: scoring.HigherBetter},
			}
		}, scoring.RuleWeightSum},
		{"zero weight", func(m *Matrix) {
			m.Criteria["cost"] = Criterion{Weight: 0, Scale: scoring.LowerBetter}
		}, scoring.RuleWeightRange},
		{"NaN weight", func(m *Matrix) {
			m.Criteria["cost"] = Criterion{Weight: math.NaN(), Scale: scoring.LowerBetter}
		}, scoring.RuleWeightRange},
		{"bad scale", func(m *Matrix) {
			m.Criteria["cost"] = Criterion{Weight: 0.5, Scale: "sideways"}
		}, scoring.RuleScale},
		{"missing value", func(m *Matrix) { delete(m.Alternatives[1].Data, "quality") }, scoring.RuleMissingValue},
		{"duplicate id", func(m *Matrix) { m.Alternatives[1].ID = "A" }, scoring.RuleDuplicateID},
	}

	e := newTestEngine(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := costQualityMatrix()
			tt.mutate(m)

			_, err := e.Create(context.Background(), m)
			var ve *scoring.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Create() error = %v, want *ValidationError", err)
			}
			if ve.Rule != tt.rule {
				t.Errorf("rule = %s, want %s", ve.Rule, tt.rule)
			}
		})
	}
}

func TestWeightSumWithinTolerance(t *testing.T) {
	e := newTestEngine(t)
	m := costQualityMatrix()
	m.Criteria["cost"] = Criterion{Weight: 0.505, Scale: scoring.LowerBetter}
	if err := e.Validate(m); err != nil {
		t.Errorf("Validate() error = %v, want nil for sum 1.005", err)
	}
}

func TestCreateCancelledContext(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.Create(ctx, costQualityMatrix()); !errors.Is(err, context.Canceled) {
		t.Errorf("Create() error = %v, want context.Canceled", err)
	}
}

func TestUpdateRecomputes(t *testing.T) {
	e := newTestEngine(t)
	base := costQualityMatrix()
	name := "hotel v2"

	merged, res, err := e.Update(context.Background(), base, &MatrixPatch{
		Name:         &name,
		Alternatives: []Alternative{{ID: "B", Data: map[string]float64{"quality": 0.95}}},
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if merged.Name != name || res.Name != name {
		t.Errorf("name = %s/%s, want %s", merged.Name, res.Name, name)
	}
	if res.Recommendation.Winner != "B" {
		t.Errorf("winner = %s, want B once B is both cheaper and better", res.Recommendation.Winner)
	}
	if base.Alternatives[1].Data["quality"] != 0.5 {
		t.Error("Update() modified the base matrix")
	}
}

func TestMergeRemovals(t *testing.T) {
	base := costQualityMatrix()
	base.Alternatives = append(base.Alternatives, Alternative{ID: "C", Data: map[string]float64{"cost": 70, "quality": 0.7}})

	merged := Merge(base, &MatrixPatch{
		Criteria:           map[string]Criterion{"cost": {Weight: 1, Scale: scoring.LowerBetter}},
		RemoveCriteria:     []string{"quality"},
		RemoveAlternatives: []string{"A"},
	})

	if len(merged.Criteria) != 1 || merged.Criteria["cost"].Weight != 1 {
		t.Errorf("criteria = %v, want only cost with weight 1", merged.Criteria)
	}
	if len(merged.Alternatives) != 2 || merged.Alternatives[0].ID != "B" || merged.Alternatives[1].ID != "C" {
		t.Errorf("alternatives = %+v, want B, C", merged.Alternatives)
	}
	if len(base.Alternatives) != 3 {
		t.Error("Merge() modified the base matrix")
	}
}

func TestNewEngineRejectsBadConfig(t *testing.T) {
	_, err := NewEngine(&Config{SensitivityDelta: 0, WeightTolerance: 0.01, ClearMargin: 0.1, StrengthThreshold: 0.7}, zerolog.Nop())
	if err == nil {
		t.Fatal("NewEngine() error = nil, want invalid config")
	}
}
