// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package scoring

import (
	"fmt"
	"sort"
)

// Scale is the preferred direction of a criterion.
type Scale string

const (
	// HigherBetter rewards larger raw values.
	HigherBetter Scale = "higher_better"
	// LowerBetter rewards smaller raw values (cost, distance).
	LowerBetter Scale = "lower_better"
)

// Valid reports whether s is a known scale.
func (s Scale) Valid() bool {
	return s == HigherBetter || s == LowerBetter
}

// Weighted is one criterion of an aggregation pass.
type Weighted struct {
	Key    string
	Weight float64
	Scale  Scale
}

// Row is one alternative's raw values keyed by criterion.
type Row struct {
	ID     string
	Values map[string]float64
}

// Scored is the aggregation result for one alternative.
type Scored struct {
	ID string `json:"id"`
	// Normalized holds the direction-aware normalized value per criterion in [0,1].
	Normalized map[string]float64 `json:"normalized"`
	// Weighted holds Normalized * weight per criterion, in [0, weight].
	Weighted map[string]float64 `json:"weighted"`
	Total    float64            `json:"total"`
	// Order is the submission index, used to break ties.
	Order int `json:"-"`
}

// Normalize maps values to [0,1] relative to their min and max.
// A degenerate range (max == min) maps every value to 1.0.
func Normalize(values []float64, scale Scale) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	span := hi - lo
	for i, v := range values {
		switch {
		case span == 0:
			out[i] = 1.0
		case scale == LowerBetter:
			out[i] = (hi - v) / span
		default:
			out[i] = (v - lo) / span
		}
	}
	return out
}

// WeightedScore returns normalized * weight.
func WeightedScore(normalized, weight float64) float64 {
	return normalized * weight
}

// Aggregate normalizes every criterion across rows and sums the weighted
// scores per row. Rows are returned in input order. A missing value is an
// error; callers validate completeness first and treat this as a bug guard.
func Aggregate(criteria []Weighted, rows []Row) ([]Scored, error) {
	out := make([]Scored, len(rows))
	for i, r := range rows {
		out[i] = Scored{
			ID:         r.ID,
			Normalized: make(map[string]float64, len(criteria)),
			Weighted:   make(map[string]float64, len(criteria)),
			Order:      i,
		}
	}

	raw := make([]float64, len(rows))
	for _, c := range criteria {
		for i, r := range rows {
			v, ok := r.Values[c.Key]
			if !ok {
				return nil, fmt.Errorf("alternative %q has no value for criterion %q", r.ID, c.Key)
			}
			raw[i] = v
		}
		for i, n := range Normalize(raw, c.Scale) {
			w := WeightedScore(n, c.Weight)
			out[i].Normalized[c.Key] = n
			out[i].Weighted[c.Key] = w
			out[i].Total += w
		}
	}
	return out, nil
}

// Rank sorts scored rows by total descending. Ties keep submission order.
// The input slice is not modified.
func Rank(scored []Scored) []Scored {
	ranked := make([]Scored, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Total != ranked[j].Total {
			return ranked[i].Total > ranked[j].Total
		}
		return ranked[i].Order < ranked[j].Order
	})
	return ranked
}
