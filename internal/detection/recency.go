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

// RecencyConfig configures the recency detector.
type RecencyConfig struct {
	MinSamples int `json:"min_samples"`
	// RecentWindow is the number of most recent records treated as "recent".
	RecentWindow int        `json:"recent_window"`
	Thresholds   Thresholds `json:"thresholds"`
}

// DefaultRecencyConfig returns the default recency settings.
func DefaultRecencyConfig() RecencyConfig {
	return RecencyConfig{
		MinSamples:   5,
		RecentWindow: 3,
		Thresholds:   Thresholds{High: 0.6, Medium: 0.4},
	}
}

// RecencyMetadata is attached to recency findings.
type RecencyMetadata struct {
	Records     int     `json:"records"`
	Window      int     `json:"window"`
	ActedTotal  int     `json:"acted_total"`
	ActedRecent int     `json:"acted_recent"`
	Score       float64 `json:"score"`
}

// RecencyDetector measures how much of what the user acts on comes from
// the most recent records.
type RecencyDetector struct {
	config  RecencyConfig
	enabled bool
	now     func() time.Time
	mu      sync.RWMutex
}

// NewRecencyDetector creates a recency detector with default settings.
func NewRecencyDetector() *RecencyDetector {
	return &RecencyDetector{config: DefaultRecencyConfig(), enabled: true, now: time.Now}
}

// Type returns the bias type.
func (d *RecencyDetector) Type() BiasType {
	return BiasRecency
}

// Detect scores acted records inside the recent window / acted records overall.
func (d *RecencyDetector) Detect(ctx context.Context, history *activity.History) (*Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.RLock()
	config := d.config
	d.mu.RUnlock()

	records := history.Records()
	n := len(records)
	if n < config.MinSamples {
		return insufficient(BiasRecency, n, d.now()), nil
	}

	window := config.RecentWindow
	if window > n {
		window = n
	}
	cutoff := n - window

	var actedTotal int
	affected := make([]string, 0, window)
	for i, r := range records {
		if !r.Acted {
			continue
		}
		actedTotal++
		if i >= cutoff {
			affected = append(affected, r.ID)
		}
	}

	score := 0.0
	if actedTotal > 0 {
		score = float64(len(affected)) / float64(actedTotal)
	}

	evidence := []string{
		fmt.Sprintf("%d of %d acted-on records come from the %d most recent records", len(affected), actedTotal, window),
	}
	if actedTotal == 0 {
		evidence = []string{fmt.Sprintf("none of %d records were acted on", n)}
	}
	meta := RecencyMetadata{Records: n, Window: window, ActedTotal: actedTotal, ActedRecent: len(affected), Score: score}
	return finding(BiasRecency, config.Thresholds, score, n, evidence, affected, meta, d.now())
}

// Configure replaces the detector configuration. Omitted fields take
// their defaults.
func (d *RecencyDetector) Configure(config json.RawMessage) error {
	newConfig := DefaultRecencyConfig()
	if err := json.Unmarshal(config, &newConfig); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := validateMinSamples(newConfig.MinSamples); err != nil {
		return err
	}
	if newConfig.RecentWindow <= 0 {
		return fmt.Errorf("recent_window must be positive")
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
func (d *RecencyDetector) Config() RecencyConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}

// Enabled returns whether the detector is enabled.
func (d *RecencyDetector) Enabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.enabled
}

// SetEnabled enables or disables the detector.
func (d *RecencyDetector) SetEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
}
