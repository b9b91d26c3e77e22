// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

// Package comparison ranks locations or properties head to head on a fixed
// catalogue of criteria derived from precomputed LocationMetrics.
package comparison

import (
	"github.com/tomtom215/wayfarer/internal/scoring"
)

// LocationMetrics are the precomputed numeric features of a location.
// Ratings are expected in [0,1]; visit and time counters are raw counts.
type LocationMetrics struct {
	AffordabilityScore float64 `json:"affordability_score" validate:"gte=0,lte=1"`
	WeatherRating      float64 `json:"weather_rating" validate:"gte=0,lte=1"`
	CultureRating      float64 `json:"culture_rating" validate:"gte=0,lte=1"`
	SafetyRating       float64 `json:"safety_rating" validate:"gte=0,lte=1"`
	TransportRating    float64 `json:"transport_rating" validate:"gte=0,lte=1"`
	AverageSentiment   float64 `json:"average_sentiment" validate:"gte=0,lte=1"`
	TotalVisits        float64 `json:"total_visits" validate:"gte=0"`
	TotalTimeSpent     float64 `json:"total_time_spent" validate:"gte=0"`
}

// Entity is one location or property being compared.
type Entity struct {
	ID      string          `json:"id" validate:"required"`
	Name    string          `json:"name"`
	Metrics LocationMetrics `json:"metrics"`
}

// DisplayName returns Name, falling back to ID.
func (e Entity) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.ID
}

// Request is a comparison input. Weights is optional; when set it replaces
// the catalogue's default weights and must cover only catalogue keys and
// sum to 1.
type Request struct {
	Entities []Entity          `json:"entities" validate:"required,min=2,dive"`
	Weights  map[string]float64 `json:"weights,omitempty"`
}

// Verdict buckets a total score into a textual recommendation level.
type Verdict string

const (
	VerdictExcellent  Verdict = "excellent"
	VerdictGood       Verdict = "good"
	VerdictFair       Verdict = "fair"
	VerdictUnsuitable Verdict = "unsuitable"
)

// EntityScore holds one entity's per-criterion and total scores.
type EntityScore struct {
	Criteria   map[string]float64 `json:"criteria"`
	Normalized map[string]float64 `json:"normalized"`
	Total      float64            `json:"total"`
}

// RankEntry is one ordinal position of the comparison ranking.
type RankEntry struct {
	Rank     int     `json:"rank"`
	EntityID string  `json:"entity_id"`
	Name     string  `json:"name"`
	Total    float64 `json:"total"`
	Verdict  Verdict `json:"verdict"`
}

// Result is the output of Scorer.Compare.
type Result struct {
	Scores          map[string]EntityScore `json:"scores"`
	Rankings        []RankEntry            `json:"rankings"`
	Strengths       map[string][]string    `json:"strengths"`
	Weaknesses      map[string][]string    `json:"weaknesses"`
	Recommendations map[string]string      `json:"recommendations"`
	Weights         map[string]float64     `json:"weights"`
}

// criterion maps a catalogue key onto a LocationMetrics field.
type criterion struct {
	key    string
	label  string
	scale  scoring.Scale
	weight float64
	value  func(LocationMetrics) float64
}
