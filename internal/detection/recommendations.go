// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package detection

var recommendationTemplates = map[BiasType]map[Severity][]string{
	BiasAnchoring: {
		SeverityHigh: {
			"Most of your choices stay close to your first option; shortlist at least one alternative from a different category before deciding",
			"Re-rank your options without looking at the first one you considered",
		},
		SeverityMedium: {
			"Your first option tends to shape later choices; compare it against a deliberately different alternative",
		},
	},
	BiasRecency: {
		SeverityHigh: {
			"You mostly act on what you saw last; revisit older saved places before booking",
			"Sort your saved locations by date saved, oldest first, when planning",
		},
		SeverityMedium: {
			"Recent discoveries get extra weight; check your earlier saves for forgotten favourites",
		},
	},
	BiasConfirmation: {
		SeverityHigh: {
			"Your choices rarely leave one category; try a destination type you have not picked before",
			"Look for reviews that disagree with your first impression",
		},
		SeverityMedium: {
			"Your choices cluster in a few categories; add one unfamiliar option to each comparison",
		},
	},
	BiasAvailability: {
		SeverityHigh: {
			"Recent notes are dominated by vivid experiences; check safety and cost data before letting one story decide",
			"Balance memorable anecdotes with averaged ratings",
		},
		SeverityMedium: {
			"Strong recent impressions may be colouring your judgement; compare them with long-term ratings",
		},
	},
}

// recommendationsFor returns a copy of the templates for the bias and
// severity. Low severity yields an empty list.
func recommendationsFor(bias BiasType, sev Severity) []string {
	src := recommendationTemplates[bias][sev]
	out := make([]string, len(src))
	copy(out, src)
	return out
}
