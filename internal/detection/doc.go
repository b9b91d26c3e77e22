// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

/*
Package detection grades cognitive biases in a traveller's decision history.

Four independent detectors inspect an activity.History and each returns a
severity-graded Finding:

  - anchoring: share of choices that stay in the category of the first choice.
  - recency: share of acted-on records that fall inside the most recent window.
  - confirmation: 1 - distinct categories / total choices.
  - availability: share of recent free-text records using emotionally charged vocabulary.

Scores are compared with strict "greater than" against a high and a medium
threshold, so a score sitting exactly on a threshold takes the lower grade.

Detectors never fail on small samples. Below their minimum sample size they
return a low-severity finding with confidence 0.3, empty evidence and
Insufficient set; callers check the finding instead of an error.

The Engine runs every enabled detector in a fixed order. Detectors are
configured at runtime with JSON, mirroring how rules are stored:

	engine := detection.NewEngine(logger)
	_ = engine.Configure(detection.BiasRecency, json.RawMessage(`{"min_samples":8,"recent_window":4}`))
	findings, err := engine.DetectAll(ctx, history)
*/
package detection
