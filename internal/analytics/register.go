// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package analytics

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/wayfarer/internal/comparison"
	"github.com/tomtom215/wayfarer/internal/decision"
	"github.com/tomtom215/wayfarer/internal/detection"
	"github.com/tomtom215/wayfarer/internal/jobs"
	"github.com/tomtom215/wayfarer/internal/patterns"
	"github.com/tomtom215/wayfarer/internal/validation"
)

// Engines are the compute components the handlers call.
type Engines struct {
	Decision   *decision.Engine
	Comparison *comparison.Scorer
	Patterns   *patterns.Analyzer
	Bias       *detection.Engine
}

func (e *Engines) validate() error {
	switch {
	case e.Decision == nil:
		return errors.New("decision engine is required")
	case e.Comparison == nil:
		return errors.New("comparison scorer is required")
	case e.Patterns == nil:
		return errors.New("pattern analyzer is required")
	case e.Bias == nil:
		return errors.New("bias engine is required")
	}
	return nil
}

// Registrar is the part of the scheduler handlers are registered with.
type Registrar interface {
	RegisterHandler(jobType string, h jobs.Handler) error
}

// Register registers a handler for every job type.
func Register(r Registrar, e Engines) error {
	if err := e.validate(); err != nil {
		return err
	}
	handlers := map[string]jobs.Handler{
		JobPatternAnalysis:    e.patternAnalysisHandler(),
		JobBiasDetection:      e.biasDetectionHandler(),
		JobDecisionMatrix:     e.decisionMatrixHandler(),
		JobLocationComparison: e.locationComparisonHandler(),
		JobPrediction:         e.predictionHandler(),
	}
	for _, jobType := range []string{JobPatternAnalysis, JobBiasDetection, JobDecisionMatrix, JobLocationComparison, JobPrediction} {
		if err := r.RegisterHandler(jobType, handlers[jobType]); err != nil {
			return fmt.Errorf("failed to register %s: %w", jobType, err)
		}
	}
	return nil
}

// decoder unmarshals a payload into T, runs the struct tags and then the
// domain check. Every failure wraps jobs.ErrInvalidPayload.
func decoder[T any](check func(*T) error) func(json.RawMessage) (interface{}, error) {
	return func(raw json.RawMessage) (interface{}, error) {
		if len(raw) == 0 {
			return nil, fmt.Errorf("%w: payload is empty", jobs.ErrInvalidPayload)
		}
		p := new(T)
		if err := json.Unmarshal(raw, p); err != nil {
			return nil, fmt.Errorf("%w: %w", jobs.ErrInvalidPayload, err)
		}
		if err := validation.Validate(p); err != nil {
			return nil, fmt.Errorf("%w: %w", jobs.ErrInvalidPayload, err)
		}
		if check != nil {
			if err := check(p); err != nil {
				return nil, fmt.Errorf("%w: %w", jobs.ErrInvalidPayload, err)
			}
		}
		return p, nil
	}
}

func payloadAs[T any](payload interface{}) (*T, error) {
	p, ok := payload.(*T)
	if !ok {
		return nil, fmt.Errorf("unexpected payload type %T", payload)
	}
	return p, nil
}

func (e *Engines) patternAnalysisHandler() jobs.Handler {
	return jobs.Handler{
		Decode: decoder[PatternAnalysisPayload](nil),
		Run: func(ctx context.Context, job *jobs.Job, payload interface{}) (interface{}, error) {
			p, err := payloadAs[PatternAnalysisPayload](payload)
			if err != nil {
				return nil, err
			}
			jobs.Progress(ctx, 10)
			return e.Patterns.Analyze(ctx, job.UserID, &p.History)
		},
	}
}

func (e *Engines) biasDetectionHandler() jobs.Handler {
	return jobs.Handler{
		Decode: decoder[BiasDetectionPayload](nil),
		Run: func(ctx context.Context, _ *jobs.Job, payload interface{}) (interface{}, error) {
			p, err := payloadAs[BiasDetectionPayload](payload)
			if err != nil {
				return nil, err
			}
			findings, err := e.Bias.DetectAll(ctx, &p.History)
			if err != nil {
				return nil, err
			}
			report := &BiasReport{Findings: filterFindings(findings, p.Types)}
			for _, f := range report.Findings {
				if !f.Insufficient && f.Severity != detection.SeverityLow {
					report.Detected++
				}
			}
			return report, nil
		},
	}
}

func filterFindings(findings []*detection.Finding, types []detection.BiasType) []*detection.Finding {
	out := make([]*detection.Finding, 0, len(findings))
	if len(types) == 0 {
		return append(out, findings...)
	}
	want := make(map[detection.BiasType]struct{}, len(types))
	for _, t := range types {
		want[t] = struct{}{}
	}
	for _, f := range findings {
		if _, ok := want[f.BiasType]; ok {
			out = append(out, f)
		}
	}
	return out
}

func (e *Engines) decisionMatrixHandler() jobs.Handler {
	check := func(p *DecisionMatrixPayload) error {
		if p.Patch != nil {
			return e.Decision.Validate(decision.Merge(&p.Matrix, p.Patch))
		}
		return e.Decision.Validate(&p.Matrix)
	}
	return jobs.Handler{
		Decode: decoder[DecisionMatrixPayload](check),
		Run: func(ctx context.Context, _ *jobs.Job, payload interface{}) (interface{}, error) {
			p, err := payloadAs[DecisionMatrixPayload](payload)
			if err != nil {
				return nil, err
			}
			if p.Patch != nil {
				merged, res, err := e.Decision.Update(ctx, &p.Matrix, p.Patch)
				if err != nil {
					return nil, err
				}
				return &DecisionOutcome{Matrix: merged, Result: res}, nil
			}
			res, err := e.Decision.Create(ctx, &p.Matrix)
			if err != nil {
				return nil, err
			}
			return &DecisionOutcome{Result: res}, nil
		},
	}
}

func (e *Engines) locationComparisonHandler() jobs.Handler {
	check := func(p *LocationComparisonPayload) error {
		return e.Comparison.Validate(p.request())
	}
	return jobs.Handler{
		Decode: decoder[LocationComparisonPayload](check),
		Run: func(ctx context.Context, _ *jobs.Job, payload interface{}) (interface{}, error) {
			p, err := payloadAs[LocationComparisonPayload](payload)
			if err != nil {
				return nil, err
			}
			return e.Comparison.Compare(ctx, p.request())
		},
	}
}

func (e *Engines) predictionHandler() jobs.Handler {
	check := func(p *PredictionPayload) error {
		return e.Comparison.Validate(&comparison.Request{Entities: p.Candidates})
	}
	return jobs.Handler{
		Decode: decoder[PredictionPayload](check),
		Run: func(ctx context.Context, job *jobs.Job, payload interface{}) (interface{}, error) {
			p, err := payloadAs[PredictionPayload](payload)
			if err != nil {
				return nil, err
			}
			return e.Predict(ctx, job.UserID, p)
		},
	}
}
