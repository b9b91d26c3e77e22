// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package decision

import "fmt"

// MaxConfidence caps recommendation confidence.
const MaxConfidence = 0.95

// Config tunes the decision engine.
type Config struct {
	// SensitivityDelta is added to one criterion's weight during sensitivity analysis.
	SensitivityDelta float64 `json:"sensitivity_delta" koanf:"sensitivity_delta"`

	// WeightTolerance is the allowed deviation of the weight sum from 1.0.
	WeightTolerance float64 `json:"weight_tolerance" koanf:"weight_tolerance"`

	// ClearMargin separates a "clear" win from a "close" one.
	ClearMargin float64 `json:"clear_margin" koanf:"clear_margin"`

	// StrengthThreshold is the normalized score above which a criterion is a strength of the winner.
	StrengthThreshold float64 `json:"strength_threshold" koanf:"strength_threshold"`
}

// DefaultConfig returns the standard decision engine settings.
func DefaultConfig() *Config {
	return &Config{
		SensitivityDelta:  0.10,
		WeightTolerance:   0.01,
		ClearMargin:       0.1,
		StrengthThreshold: 0.7,
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.SensitivityDelta <= 0 || c.SensitivityDelta >= 1 {
		return fmt.Errorf("sensitivity_delta must be in (0,1), got %v", c.SensitivityDelta)
	}
	if c.WeightTolerance < 0 || c.WeightTolerance >= 0.5 {
		return fmt.Errorf("weight_tolerance must be in [0,0.5), got %v", c.WeightTolerance)
	}
	if c.ClearMargin < 0 || c.ClearMargin > 1 {
		return fmt.Errorf("clear_margin must be in [0,1], got %v", c.ClearMargin)
	}
	if c.StrengthThreshold < 0 || c.StrengthThreshold > 1 {
		return fmt.Errorf("strength_threshold must be in [0,1], got %v", c.StrengthThreshold)
	}
	return nil
}
