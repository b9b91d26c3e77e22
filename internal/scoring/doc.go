// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

/*
Package scoring is the shared scoring kernel used by the decision matrix
engine and the location comparison scorer.

It provides four pure operations:

  - Normalize: direction-aware min-max normalization of one criterion's raw
    values into [0,1]. When every value is identical the range is degenerate
    and every value maps to 1.0.
  - WeightedScore: normalized * weight.
  - Aggregate: per-alternative weighted totals for a whole criterion set.
  - Rank: stable descending sort by total; ties keep submission order.

The package has no state and no logging. Input validation errors shared by
its callers are expressed as *ValidationError.
*/
package scoring
