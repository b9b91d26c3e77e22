// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

// Package decision implements the weighted multi-criteria decision matrix:
// input validation, scoring through the scoring kernel, ranking,
// single-criterion sensitivity analysis and a derived recommendation.
package decision

import (
	"time"

	"github.com/tomtom215/wayfarer/internal/scoring"
)

// Criterion is a weighted, direction-tagged evaluation axis.
type Criterion struct {
	// Weight must lie in (0,1]; the weights of a matrix sum to 1.
	Weight      float64       `json:"weight"`
	Scale       scoring.Scale `json:"scale"`
	Description string        `json:"description,omitempty"`
}

// Alternative is one candidate with a raw value per criterion key.
type Alternative struct {
	ID   string             `json:"id"`
	Name string             `json:"name,omitempty"`
	Data map[string]float64 `json:"data"`
}

// DisplayName returns Name, falling back to ID.
func (a Alternative) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}

// Matrix is a complete decision input. Alternatives are an ordered list so
// that ties are broken by submission order.
type Matrix struct {
	Name         string               `json:"name"`
	Criteria     map[string]Criterion `json:"criteria"`
	Alternatives []Alternative        `json:"alternatives"`
}

// MatrixPatch describes a change to an existing matrix. Fields that are
// zero are left untouched.
type MatrixPatch struct {
	Name     *string              `json:"name,omitempty"`
	Criteria map[string]Criterion `json:"criteria,omitempty"`
	// Alternatives are upserted by ID; data keys are merged.
	Alternatives       []Alternative `json:"alternatives,omitempty"`
	RemoveCriteria     []string      `json:"remove_criteria,omitempty"`
	RemoveAlternatives []string      `json:"remove_alternatives,omitempty"`
}

// AlternativeScore is the score matrix row for one alternative.
type AlternativeScore struct {
	// Criteria holds the normalized weighted score per criterion, in [0, weight].
	Criteria map[string]float64 `json:"criteria"`
	// Normalized holds the direction-aware normalized value per criterion, in [0,1].
	Normalized map[string]float64 `json:"normalized"`
	Total      float64            `json:"total"`
}

// RankEntry is one ordinal position of the ranking.
type RankEntry struct {
	Rank          int     `json:"rank"`
	AlternativeID string  `json:"alternative_id"`
	Name          string  `json:"name"`
	Total         float64 `json:"total"`
}

// SensitivityResult reports whether raising one criterion's weight changes the winner.
type SensitivityResult struct {
	WeightChange  float64 `json:"weight_change"`
	RankingChange bool    `json:"ranking_change"`
	NewWinner     string  `json:"new_winner,omitempty"`
}

// Recommendation is the decision derived from the ranking and sensitivity analysis.
type Recommendation struct {
	Winner         string   `json:"winner"`
	Confidence     float64  `json:"confidence"`
	Reasoning      []string `json:"reasoning"`
	Alternatives   []string `json:"alternatives"`
	Considerations []string `json:"considerations"`
}

// Result is the output of Engine.Create.
type Result struct {
	Name        string                       `json:"name"`
	Scores      map[string]AlternativeScore  `json:"scores"`
	Rankings    []RankEntry                  `json:"rankings"`
	Sensitivity map[string]SensitivityResult `json:"sensitivity"`
	// SensitivitySkipped is set when the matrix has a single criterion and
	// there is no other weight to redistribute from.
	SensitivitySkipped bool           `json:"sensitivity_skipped"`
	Recommendation     Recommendation `json:"recommendation"`
	ComputedAt         time.Time      `json:"computed_at"`
}
