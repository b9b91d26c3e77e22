// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package decision

import (
	"fmt"
	"math"

	"github.com/tomtom215/wayfarer/internal/scoring"
)

// Confidence converts the winning margin into a confidence value:
// min(0.95, 0.5 + 2*margin).
func Confidence(margin float64) float64 {
	return math.Min(MaxConfidence, 0.5+2*margin)
}

func (e *Engine) recommend(m *Matrix, keys []string, ranked []scoring.Scored, sens map[string]SensitivityResult) Recommendation {
	winner := ranked[0]
	runnerUp := ranked[1]
	margin := winner.Total - runnerUp.Total
	winnerName := m.Alternatives[winner.Order].DisplayName()
	runnerUpName := m.Alternatives[runnerUp.Order].DisplayName()

	rec := Recommendation{
		Winner:         winner.ID,
		Confidence:     Confidence(margin),
		Reasoning:      make([]string, 0, 2+len(keys)),
		Alternatives:   make([]string, 0, len(ranked)-1),
		Considerations: make([]string, 0),
	}

	rec.Reasoning = append(rec.Reasoning, fmt.Sprintf("%s has the highest weighted score (%.2f)", winnerName, winner.Total))
	if margin > e.config.ClearMargin {
		rec.Reasoning = append(rec.Reasoning, fmt.Sprintf("clear margin of %.2f over %s", margin, runnerUpName))
	} else {
		rec.Reasoning = append(rec.Reasoning, fmt.Sprintf("close margin of %.2f over %s", margin, runnerUpName))
	}
	for _, k := range keys {
		if n := winner.Normalized[k]; n > e.config.StrengthThreshold {
			rec.Reasoning = append(rec.Reasoning, fmt.Sprintf("strong on %s (%.2f)", k, n))
		}
	}

	for _, s := range ranked[1:] {
		rec.Alternatives = append(rec.Alternatives, s.ID)
	}

	for _, k := range keys {
		if r, ok := sens[k]; ok && r.RankingChange {
			rec.Considerations = append(rec.Considerations, fmt.Sprintf(
				"raising the weight of %s by %.2f makes %s the winner", k, r.WeightChange, r.NewWinner))
		}
	}
	return rec
}
