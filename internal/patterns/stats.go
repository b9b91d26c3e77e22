// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package patterns

import "math"

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev is the population standard deviation.
func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// consistency is max(0, 1 - stddev/mean). A zero mean is perfectly
// consistent only when every value is zero.
func consistency(values []float64) float64 {
	m := mean(values)
	sd := stddev(values)
	if m == 0 {
		if sd == 0 {
			return 1
		}
		return 0
	}
	return math.Max(0, 1-sd/math.Abs(m))
}

// confidenceFor is min(cap, n/normalizer).
func confidenceFor(n int, limit, normalizer float64) float64 {
	return math.Min(limit, float64(n)/normalizer)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
