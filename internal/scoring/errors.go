// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package scoring

import (
	"errors"
	"fmt"
)

// Validation rules reported by ValidationError.Rule.
const (
	RuleNameRequired      = "name_required"
	RuleTooFewCriteria    = "too_few_criteria"
	RuleTooFewAlternative = "too_few_alternatives"
	RuleWeightRange       = "weight_range"
	RuleWeightSum         = "weight_sum"
	RuleScale             = "scale"
	RuleMissingValue      = "missing_value"
	RuleDuplicateID       = "duplicate_id"
	RuleUnknownCriterion  = "unknown_criterion"
)

// ValidationError describes the first rule a scoring input violates.
// It is returned synchronously and never corrected silently.
type ValidationError struct {
	Rule    string `json:"rule"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed (%s) on %s: %s", e.Rule, e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed (%s): %s", e.Rule, e.Message)
}

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(rule, field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Rule: rule, Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
