// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package patterns

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/wayfarer/internal/activity"
)

// Categories produced by the activity detectors.
const (
	CategoryBudget              = "budget"
	CategoryRating              = "rating"
	CategoryDestinationCategory = "destination_category"
	CategoryPlanningHorizon     = "planning_horizon"
	CategoryTripDuration        = "trip_duration"
	CategoryNovelty             = "novelty"
	CategoryDiversity           = "diversity"
)

// detectorFunc inspects a history and returns its result. It must return
// the insufficient sentinel when fewer than minPoints records qualify.
type detectorFunc func(h *activity.History, minPoints int) DetectorResult

type detectorSpec struct {
	patternType PatternType
	category    string
	detect      detectorFunc
}

// activityDetectors run in this order on every analysis.
var activityDetectors = []detectorSpec{
	{TypePreference, CategoryBudget, detectBudget},
	{TypePreference, CategoryRating, detectRating},
	{TypePreference, CategoryDestinationCategory, detectDestinationCategory},
	{TypeDecision, CategoryPlanningHorizon, detectPlanningHorizon},
	{TypeDecision, CategoryTripDuration, detectTripDuration},
	{TypeExploration, CategoryNovelty, detectNovelty},
	{TypeExploration, CategoryDiversity, detectDiversity},
}

func insufficientResult(n int) DetectorResult {
	return DetectorResult{Insufficient: true, DataPoints: n, Confidence: 0}
}

// span tracks the first and last observation times.
type span struct {
	first, last time.Time
}

func (s *span) observe(t time.Time) {
	if t.IsZero() {
		return
	}
	if s.first.IsZero() || t.Before(s.first) {
		s.first = t
	}
	if t.After(s.last) {
		s.last = t
	}
}

// BudgetPattern is the payload of preference/budget.
type BudgetPattern struct {
	AverageCost float64 `json:"average_cost"`
	MinCost     float64 `json:"min_cost"`
	MaxCost     float64 `json:"max_cost"`
	Tier        string  `json:"tier"`
	Consistency float64 `json:"consistency"`
}

// Budget tiers by average trip cost.
const (
	TierBudget   = "budget"
	TierModerate = "moderate"
	TierLuxury   = "luxury"
)

func budgetTier(avg float64) string {
	switch {
	case avg < 500:
		return TierBudget
	case avg < 2000:
		return TierModerate
	default:
		return TierLuxury
	}
}

func detectBudget(h *activity.History, minPoints int) DetectorResult {
	var costs []float64
	var s span
	for _, t := range h.Trips {
		if t.Cost > 0 {
			costs = append(costs, t.Cost)
			s.observe(t.StartDate)
		}
	}
	if len(costs) < minPoints {
		return insufficientResult(len(costs))
	}

	avg := mean(costs)
	cons := consistency(costs)
	sorted := append([]float64(nil), costs...)
	sort.Float64s(sorted)
	tier := budgetTier(avg)

	return DetectorResult{
		Pattern: BudgetPattern{
			AverageCost: avg,
			MinCost:     sorted[0],
			MaxCost:     sorted[len(sorted)-1],
			Tier:        tier,
			Consistency: cons,
		},
		Frequency:     len(costs),
		Confidence:    confidenceFor(len(costs), 0.9, 10),
		Significance:  cons,
		Triggers:      []string{"trip_cost"},
		Outcomes:      []string{"prefers_" + tier},
		DataPoints:    len(costs),
		FirstObserved: s.first,
		LastObserved:  s.last,
	}
}

// RatingPattern is the payload of preference/rating.
type RatingPattern struct {
	AverageRating float64 `json:"average_rating"`
	Tendency      string  `json:"tendency"`
}

// Rating tendencies.
const (
	TendencyPositive = "positive"
	TendencyNeutral  = "neutral"
	TendencyNegative = "negative"
)

func detectRating(h *activity.History, minPoints int) DetectorResult {
	var ratings []float64
	var s span
	for _, j := range h.JournalEntries {
		if j.Rating > 0 {
			ratings = append(ratings, j.Rating)
			s.observe(j.CreatedAt)
		}
	}
	if len(ratings) < minPoints {
		return insufficientResult(len(ratings))
	}

	avg := mean(ratings)
	tendency := TendencyNeutral
	switch {
	case avg >= 3.5:
		tendency = TendencyPositive
	case avg <= 2.5:
		tendency = TendencyNegative
	}

	return DetectorResult{
		Pattern:       RatingPattern{AverageRating: avg, Tendency: tendency},
		Frequency:     len(ratings),
		Confidence:    confidenceFor(len(ratings), 0.85, 8),
		Significance:  clamp01(math.Abs(avg-3) / 2),
		Triggers:      []string{"rating"},
		Outcomes:      []string{"rates_" + tendency},
		DataPoints:    len(ratings),
		FirstObserved: s.first,
		LastObserved:  s.last,
	}
}

// CategoryPattern is the payload of preference/destination_category.
type CategoryPattern struct {
	Dominant string         `json:"dominant"`
	Share    float64        `json:"share"`
	Counts   map[string]int `json:"counts"`
}

func detectDestinationCategory(h *activity.History, minPoints int) DetectorResult {
	counts := make(map[string]int)
	var s span
	n := 0
	for _, t := range h.Trips {
		if c := normalizeLabel(t.Category); c != "" {
			counts[c]++
			n++
			s.observe(t.StartDate)
		}
	}
	for _, sl := range h.SavedLocations {
		if c := normalizeLabel(sl.Category); c != "" {
			counts[c]++
			n++
			s.observe(sl.SavedAt)
		}
	}
	if n < minPoints {
		return insufficientResult(n)
	}

	dominant := dominant(counts)
	share := float64(counts[dominant]) / float64(n)

	return DetectorResult{
		Pattern:       CategoryPattern{Dominant: dominant, Share: share, Counts: counts},
		Frequency:     counts[dominant],
		Confidence:    confidenceFor(n, 0.9, 10),
		Significance:  share,
		Triggers:      []string{"destination_category"},
		Outcomes:      []string{"favours_" + dominant},
		DataPoints:    n,
		FirstObserved: s.first,
		LastObserved:  s.last,
	}
}

// PlanningPattern is the payload of decision/planning_horizon.
type PlanningPattern struct {
	AverageLeadDays float64 `json:"average_lead_days"`
	Style           string  `json:"style"`
	Consistency     float64 `json:"consistency"`
}

// Planning styles.
const (
	StyleSpontaneous = "spontaneous"
	StylePlanner     = "planner"
	StyleLongRange   = "long_range"
)

func detectPlanningHorizon(h *activity.History, minPoints int) DetectorResult {
	var leads []float64
	var s span
	for _, t := range h.Trips {
		if t.PlannedAt.IsZero() || t.StartDate.IsZero() || t.StartDate.Before(t.PlannedAt) {
			continue
		}
		leads = append(leads, t.StartDate.Sub(t.PlannedAt).Hours()/24)
		s.observe(t.PlannedAt)
	}
	if len(leads) < minPoints {
		return insufficientResult(len(leads))
	}

	avg := mean(leads)
	style := StylePlanner
	switch {
	case avg < 14:
		style = StyleSpontaneous
	case avg >= 60:
		style = StyleLongRange
	}
	cons := consistency(leads)

	return DetectorResult{
		Pattern:       PlanningPattern{AverageLeadDays: avg, Style: style, Consistency: cons},
		Frequency:     len(leads),
		Confidence:    confidenceFor(len(leads), 0.8, 5),
		Significance:  cons,
		Triggers:      []string{"trip_planned"},
		Outcomes:      []string{"books_" + style},
		DataPoints:    len(leads),
		FirstObserved: s.first,
		LastObserved:  s.last,
	}
}

// DurationPattern is the payload of decision/trip_duration.
type DurationPattern struct {
	AverageDays float64 `json:"average_days"`
	Consistency float64 `json:"consistency"`
}

func detectTripDuration(h *activity.History, minPoints int) DetectorResult {
	var days []float64
	var s span
	for _, t := range h.Trips {
		if t.DurationDays > 0 {
			days = append(days, t.DurationDays)
			s.observe(t.StartDate)
		}
	}
	if len(days) < minPoints {
		return insufficientResult(len(days))
	}

	cons := consistency(days)
	return DetectorResult{
		Pattern:       DurationPattern{AverageDays: mean(days), Consistency: cons},
		Frequency:     len(days),
		Confidence:    confidenceFor(len(days), 0.85, 6),
		Significance:  cons,
		Triggers:      []string{"trip_length"},
		Outcomes:      []string{"typical_trip_length"},
		DataPoints:    len(days),
		FirstObserved: s.first,
		LastObserved:  s.last,
	}
}

// NoveltyPattern is the payload of exploration/novelty.
type NoveltyPattern struct {
	NovelRatio float64 `json:"novel_ratio"`
	Style      string  `json:"style"`
}

// Exploration styles.
const (
	StyleExplorer = "explorer"
	StyleReturner = "returner"
)

func detectNovelty(h *activity.History, minPoints int) DetectorResult {
	trips := h.OrderedTrips()
	seen := make(map[string]struct{}, len(trips))
	novel, n := 0, 0
	var s span
	for _, t := range trips {
		key := normalizeLabel(t.Destination)
		if key == "" {
			continue
		}
		n++
		s.observe(t.StartDate)
		if _, ok := seen[key]; !ok {
			novel++
			seen[key] = struct{}{}
		}
	}
	if n < minPoints {
		return insufficientResult(n)
	}
	ratio := float64(novel) / float64(n)
	style := StyleReturner
	if ratio > 0.5 {
		style = StyleExplorer
	}

	return DetectorResult{
		Pattern:       NoveltyPattern{NovelRatio: ratio, Style: style},
		Frequency:     novel,
		Confidence:    confidenceFor(n, 0.85, 10),
		Significance:  clamp01(math.Abs(ratio-0.5) * 2),
		Triggers:      []string{"new_destination"},
		Outcomes:      []string{style},
		DataPoints:    n,
		FirstObserved: s.first,
		LastObserved:  s.last,
	}
}

// DiversityPattern is the payload of exploration/diversity.
type DiversityPattern struct {
	DistinctCountries int     `json:"distinct_countries"`
	Total             int     `json:"total"`
	Ratio             float64 `json:"ratio"`
}

func detectDiversity(h *activity.History, minPoints int) DetectorResult {
	countries := make(map[string]struct{})
	var s span
	n := 0
	for _, t := range h.Trips {
		c := normalizeLabel(t.Country)
		if c == "" {
			continue
		}
		countries[c] = struct{}{}
		n++
		s.observe(t.StartDate)
	}
	if n < minPoints {
		return insufficientResult(n)
	}

	ratio := float64(len(countries)) / float64(n)
	return DetectorResult{
		Pattern:       DiversityPattern{DistinctCountries: len(countries), Total: n, Ratio: ratio},
		Frequency:     len(countries),
		Confidence:    confidenceFor(n, 0.8, 8),
		Significance:  ratio,
		Triggers:      []string{"country_visited"},
		Outcomes:      []string{"country_diversity"},
		DataPoints:    n,
		FirstObserved: s.first,
		LastObserved:  s.last,
	}
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// dominant returns the most frequent key, breaking ties lexically.
func dominant(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best := ""
	for i, k := range keys {
		if i == 0 || counts[k] > counts[best] {
			best = k
		}
	}
	return best
}
