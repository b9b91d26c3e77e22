// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package decision

import (
	"context"

	"github.com/tomtom215/wayfarer/internal/scoring"
)

// RedistributeWeights raises key's weight by delta and deducts delta/(k-1)
// from each of the other k-1 criteria, so the sum is unchanged. If a
// deduction would drive a weight below zero it is clamped at zero and the
// set is renormalized to the original sum. It returns false, and a nil
// map, when there are fewer than two criteria.
func RedistributeWeights(weights map[string]float64, key string, delta float64) (map[string]float64, bool) {
	k := len(weights)
	if k < 2 {
		return nil, false
	}
	if _, ok := weights[key]; !ok {
		return nil, false
	}

	share := delta / float64(k-1)
	out := make(map[string]float64, k)
	var total, clampedTotal float64
	clamped := false
	for name, w := range weights {
		total += w
		nw := w - share
		if name == key {
			nw = w + delta
		}
		if nw < 0 {
			nw = 0
			clamped = true
		}
		out[name] = nw
		clampedTotal += nw
	}

	if clamped && clampedTotal > 0 {
		for name := range out {
			out[name] = out[name] * total / clampedTotal
		}
	}
	return out, true
}

// sensitivity perturbs each criterion in turn and reports winner changes.
// The loop checks ctx between passes so a cancelled job stops early.
func (e *Engine) sensitivity(ctx context.Context, m *Matrix, keys []string, weights map[string]float64, winner string) (map[string]SensitivityResult, error) {
	out := make(map[string]SensitivityResult, len(keys))
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		adjusted, ok := RedistributeWeights(weights, key, e.config.SensitivityDelta)
		if !ok {
			continue
		}
		scored, err := e.score(m, keys, adjusted)
		if err != nil {
			return nil, err
		}
		top := scoring.Rank(scored)[0].ID

		res := SensitivityResult{WeightChange: adjusted[key] - weights[key]}
		if top != winner {
			res.RankingChange = true
			res.NewWinner = top
		}
		out[key] = res
	}
	return out, nil
}
