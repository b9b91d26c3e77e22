// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

// Package analytics binds the compute engines to the job scheduler. Each job
// type has its own payload struct, decoded and validated when the job is
// submitted so that malformed input never reaches the queue.
package analytics

import (
	"github.com/tomtom215/wayfarer/internal/activity"
	"github.com/tomtom215/wayfarer/internal/comparison"
	"github.com/tomtom215/wayfarer/internal/decision"
	"github.com/tomtom215/wayfarer/internal/detection"
	"github.com/tomtom215/wayfarer/internal/patterns"
)

// Job types.
const (
	JobPatternAnalysis    = "pattern_analysis"
	JobBiasDetection      = "bias_detection"
	JobDecisionMatrix     = "decision_matrix"
	JobLocationComparison = "location_comparison"
	JobPrediction         = "prediction"
)

// PatternAnalysisPayload requests pattern analysis of a history.
type PatternAnalysisPayload struct {
	History activity.History `json:"history"`
}

// BiasDetectionPayload requests bias detection. Types narrows the output to
// the listed biases; empty means all.
type BiasDetectionPayload struct {
	History activity.History     `json:"history"`
	Types   []detection.BiasType `json:"types,omitempty" validate:"omitempty,dive,oneof=anchoring recency confirmation availability"`
}

// DecisionMatrixPayload scores a decision matrix. With Patch set the patch
// is merged into Matrix first and the merged matrix is returned as well.
type DecisionMatrixPayload struct {
	Matrix decision.Matrix       `json:"matrix"`
	Patch  *decision.MatrixPatch `json:"patch,omitempty"`
}

// LocationComparisonPayload compares locations on the metric catalogue.
type LocationComparisonPayload struct {
	Entities []comparison.Entity `json:"entities" validate:"required,min=2,dive"`
	Weights  map[string]float64  `json:"weights,omitempty"`
}

func (p *LocationComparisonPayload) request() *comparison.Request {
	return &comparison.Request{Entities: p.Entities, Weights: p.Weights}
}

// PredictionPayload ranks candidate destinations using weights derived
// from the user's behavior profile.
type PredictionPayload struct {
	History    activity.History    `json:"history"`
	Candidates []comparison.Entity `json:"candidates" validate:"required,min=2,dive"`
}

// BiasReport is the result of a bias detection job.
type BiasReport struct {
	Findings []*detection.Finding `json:"findings"`
	Detected int                  `json:"detected"`
}

// DecisionOutcome is the result of a decision matrix job.
type DecisionOutcome struct {
	Matrix *decision.Matrix `json:"matrix,omitempty"`
	Result *decision.Result `json:"result"`
}

// Prediction is the result of a prediction job.
type Prediction struct {
	Rankings              []comparison.RankEntry `json:"rankings"`
	PredictedSatisfaction map[string]float64     `json:"predicted_satisfaction"`
	Confidence            float64                `json:"confidence"`
	Weights               map[string]float64     `json:"weights"`
	Profile               patterns.Profile       `json:"profile"`
}
