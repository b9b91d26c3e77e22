// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package detection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/wayfarer/internal/activity"
)

// AnchoringConfig configures the anchoring detector.
type AnchoringConfig struct {
	MinSamples int        `json:"min_samples"`
	Thresholds Thresholds `json:"thresholds"`
}

// DefaultAnchoringConfig returns the default anchoring settings.
func DefaultAnchoringConfig() AnchoringConfig {
	return AnchoringConfig{
		MinSamples: 3,
		Thresholds: Thresholds{High: 0.7, Medium: 0.3},
	}
}

// AnchoringMetadata is attached to anchoring findings.
type AnchoringMetadata struct {
	AnchorCategory string  `json:"anchor_category"`
	Matches        int     `json:"matches"`
	Total          int     `json:"total"`
	Score          float64 `json:"score"`
}

// AnchoringDetector measures how strongly later choices stay in the
// category of the first one.
type AnchoringDetector struct {
	config  AnchoringConfig
	enabled bool
	now     func() time.Time
	mu      sync.RWMutex
}

// NewAnchoringDetector creates an anchoring detector with default settings.
func NewAnchoringDetector() *AnchoringDetector {
	return &AnchoringDetector{config: DefaultAnchoringConfig(), enabled: true, now: time.Now}
}

// Type returns the bias type.
func (d *AnchoringDetector) Type() BiasType {
	return BiasAnchoring
}

// Detect scores count(choices in the first-seen category) / total choices.
func (d *AnchoringDetector) Detect(ctx context.Context, history *activity.History) (*Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.RLock()
	config := d.config
	d.mu.RUnlock()

	choices := history.OrderedChoices()
	n := len(choices)
	if n < config.MinSamples {
		return insufficient(BiasAnchoring, n, d.now()), nil
	}

	anchor := choices[0].Category
	affected := make([]string, 0, n)
	for _, c := range choices {
		if c.Category == anchor {
			affected = append(affected, c.ID)
		}
	}
	score := float64(len(affected)) / float64(n)

	evidence := []string{
		fmt.Sprintf("first choice was in category %q", anchor),
		fmt.Sprintf("%d of %d choices (%.0f%%) stayed in %q", len(affected), n, score*100, anchor),
	}
	meta := AnchoringMetadata{AnchorCategory: anchor, Matches: len(affected), Total: n, Score: score}
	return finding(BiasAnchoring, config.Thresholds, score, n, evidence, affected, meta, d.now())
}

// Configure replaces the detector configuration. Omitted fields take
// their defaults.
func (d *AnchoringDetector) Configure(config json.RawMessage) error {
	newConfig := DefaultAnchoringConfig()
	if err := json.Unmarshal(config, &newConfig); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := validateMinSamples(newConfig.MinSamples); err != nil {
		return err
	}
	if err := newConfig.Thresholds.validate(); err != nil {
		return err
	}

	d.mu.Lock()
	d.config = newConfig
	d.mu.Unlock()
	return nil
}

// Config returns the current configuration.
func (d *AnchoringDetector) Config() AnchoringConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}

// Enabled returns whether the detector is enabled.
func (d *AnchoringDetector) Enabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.enabled
}

// SetEnabled enables or disables the detector.
func (d *AnchoringDetector) SetEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
}
