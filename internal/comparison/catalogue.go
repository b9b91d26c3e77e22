// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package comparison

import "github.com/tomtom215/wayfarer/internal/scoring"

// Catalogue keys.
const (
	CriterionCost       = "cost"
	CriterionClimate    = "climate"
	CriterionCulture    = "culture"
	CriterionSafety     = "safety"
	CriterionTransport  = "transport"
	CriterionSentiment  = "sentiment"
	CriterionPopularity = "popularity"
	CriterionEngagement = "engagement"
)

// catalogue is ordered; every pass over criteria follows this order.
var catalogue = []criterion{
	{CriterionCost, "affordability", scoring.HigherBetter, 0.20, func(m LocationMetrics) float64 { return m.AffordabilityScore }},
	{CriterionClimate, "climate", scoring.HigherBetter, 0.15, func(m LocationMetrics) float64 { return m.WeatherRating }},
	{CriterionCulture, "culture", scoring.HigherBetter, 0.15, func(m LocationMetrics) float64 { return m.CultureRating }},
	{CriterionSafety, "safety", scoring.HigherBetter, 0.20, func(m LocationMetrics) float64 { return m.SafetyRating }},
	{CriterionTransport, "transport", scoring.HigherBetter, 0.10, func(m LocationMetrics) float64 { return m.TransportRating }},
	{CriterionSentiment, "traveller sentiment", scoring.HigherBetter, 0.10, func(m LocationMetrics) float64 { return m.AverageSentiment }},
	{CriterionPopularity, "popularity", scoring.HigherBetter, 0.05, func(m LocationMetrics) float64 { return m.TotalVisits }},
	{CriterionEngagement, "time spent", scoring.HigherBetter, 0.05, func(m LocationMetrics) float64 { return m.TotalTimeSpent }},
}

// Keys returns the catalogue keys in evaluation order.
func Keys() []string {
	keys := make([]string, len(catalogue))
	for i, c := range catalogue {
		keys[i] = c.key
	}
	return keys
}

// DefaultWeights returns a fresh copy of the catalogue's default weights.
func DefaultWeights() map[string]float64 {
	w := make(map[string]float64, len(catalogue))
	for _, c := range catalogue {
		w[c.key] = c.weight
	}
	return w
}

func lookup(key string) (criterion, bool) {
	for _, c := range catalogue {
		if c.key == key {
			return c, true
		}
	}
	return criterion{}, false
}
