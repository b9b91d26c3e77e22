// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package decision

import (
	"math"
	"sort"
	"strings"

	"github.com/tomtom215/wayfarer/internal/scoring"
)

// Validate checks the matrix and returns a *scoring.ValidationError for the
// first rule it violates. Rules are checked in a fixed order: name,
// criterion count, alternative count, per-criterion weight and scale,
// weight sum, alternative IDs, then value completeness.
func (m *Matrix) Validate(tolerance float64) error {
	if strings.TrimSpace(m.Name) == "" {
		return scoring.NewValidationError(scoring.RuleNameRequired, "name", "matrix name must not be empty")
	}
	if len(m.Criteria) < 1 {
		return scoring.NewValidationError(scoring.RuleTooFewCriteria, "criteria", "at least 1 criterion is required")
	}
	if len(m.Alternatives) < 2 {
		return scoring.NewValidationError(scoring.RuleTooFewAlternative, "alternatives",
			"at least 2 alternatives are required, got %d", len(m.Alternatives))
	}

	keys := m.criterionKeys()
	sum := 0.0
	for _, key := range keys {
		c := m.Criteria[key]
		if math.IsNaN(c.Weight) || c.Weight <= 0 || c.Weight > 1 {
			return scoring.NewValidationError(scoring.RuleWeightRange, "criteria."+key,
				"weight must be in (0,1], got %v", c.Weight)
		}
		if !c.Scale.Valid() {
			return scoring.NewValidationError(scoring.RuleScale, "criteria."+key,
				"scale must be %q or %q, got %q", scoring.HigherBetter, scoring.LowerBetter, c.Scale)
		}
		sum += c.Weight
	}
	if math.Abs(sum-1.0) > tolerance+1e-9 {
		return scoring.NewValidationError(scoring.RuleWeightSum, "criteria",
			"weights must sum to 1.0 (±%.2f), got %.4f", tolerance, sum)
	}

	seen := make(map[string]struct{}, len(m.Alternatives))
	for i, alt := range m.Alternatives {
		if strings.TrimSpace(alt.ID) == "" {
			return scoring.NewValidationError(scoring.RuleDuplicateID, "alternatives",
				"alternative at position %d has no id", i)
		}
		if _, dup := seen[alt.ID]; dup {
			return scoring.NewValidationError(scoring.RuleDuplicateID, "alternatives."+alt.ID,
				"alternative id is used more than once")
		}
		seen[alt.ID] = struct{}{}
	}

	for _, alt := range m.Alternatives {
		for _, key := range keys {
			v, ok := alt.Data[key]
			if !ok {
				return scoring.NewValidationError(scoring.RuleMissingValue, "alternatives."+alt.ID,
					"missing value for criterion %q", key)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return scoring.NewValidationError(scoring.RuleMissingValue, "alternatives."+alt.ID,
					"value for criterion %q is not a finite number", key)
			}
		}
	}
	return nil
}

// criterionKeys returns the criterion keys in lexical order so that every
// pass over the criteria is deterministic.
func (m *Matrix) criterionKeys() []string {
	keys := make([]string, 0, len(m.Criteria))
	for k := range m.Criteria {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
