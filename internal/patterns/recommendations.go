// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package patterns

import (
	"fmt"

	"github.com/goccy/go-json"
)

// establishedConfidence marks a preference as well-established.
const establishedConfidence = 0.8

// Recommend turns a profile into plain-language suggestions. The output is
// derived on demand and never stored.
func Recommend(p *Profile) []string {
	recs := []string{}
	if p == nil {
		return recs
	}

	for i := range p.Preferences {
		bp := &p.Preferences[i]
		switch bp.Category {
		case CategoryBudget:
			var v BudgetPattern
			if decode(bp, &v) {
				recs = append(recs, fmt.Sprintf("Your trips average %.0f; look for %s options first", v.AverageCost, v.Tier))
			}
		case CategoryRating:
			var v RatingPattern
			if decode(bp, &v) && v.Tendency == TendencyNegative {
				recs = append(recs, "Recent trips rated low; revisit the criteria you weigh most")
			}
		case CategoryDestinationCategory:
			var v CategoryPattern
			if decode(bp, &v) {
				recs = append(recs, fmt.Sprintf("You favour %s destinations (%.0f%% of activity)", v.Dominant, v.Share*100))
			}
		}
		if bp.Confidence > establishedConfidence {
			recs = append(recs, fmt.Sprintf("Your %s preferences are well-established", bp.Category))
		}
	}

	for i := range p.Decisions {
		bp := &p.Decisions[i]
		if bp.Category != CategoryPlanningHorizon {
			continue
		}
		var v PlanningPattern
		if !decode(bp, &v) {
			continue
		}
		switch v.Style {
		case StyleSpontaneous:
			recs = append(recs, "You book close to departure; set fare alerts for favourite routes")
		case StyleLongRange:
			recs = append(recs, "You plan far ahead; early-booking offers suit you")
		}
	}

	for i := range p.Exploration {
		bp := &p.Exploration[i]
		if bp.Category != CategoryNovelty {
			continue
		}
		var v NoveltyPattern
		if !decode(bp, &v) {
			continue
		}
		if v.Style == StyleExplorer {
			recs = append(recs, "You enjoy new places; try a destination outside your usual categories")
		} else {
			recs = append(recs, "You return to places you know; consider a nearby alternative to a favourite")
		}
	}

	for i := range p.Biases {
		bp := &p.Biases[i]
		var v BiasPattern
		if !decode(bp, &v) || !biasDetected(v.Severity) {
			continue
		}
		recs = append(recs, fmt.Sprintf("Watch for %s bias in upcoming decisions", bp.Category))
	}
	return recs
}

func decode(bp *BehaviorPattern, v interface{}) bool {
	return len(bp.Payload) > 0 && json.Unmarshal(bp.Payload, v) == nil
}
