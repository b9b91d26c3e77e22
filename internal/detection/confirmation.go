// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package detection

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/wayfarer/internal/activity"
)

// ConfirmationConfig configures the confirmation detector.
type ConfirmationConfig struct {
	MinSamples int        `json:"min_samples"`
	Thresholds Thresholds `json:"thresholds"`
}

// DefaultConfirmationConfig returns the default confirmation settings.
func DefaultConfirmationConfig() ConfirmationConfig {
	return ConfirmationConfig{
		MinSamples: 3,
		Thresholds: Thresholds{High: 0.7, Medium: 0.3},
	}
}

// ConfirmationMetadata is attached to confirmation findings.
type ConfirmationMetadata struct {
	DiversityScore     float64 `json:"diversity_score"`
	BiasScore          float64 `json:"bias_score"`
	DistinctCategories int     `json:"distinct_categories"`
	Total              int     `json:"total"`
	DominantCategory   string  `json:"dominant_category"`
}

// ConfirmationDetector measures how narrow the set of chosen categories is.
type ConfirmationDetector struct {
	config  ConfirmationConfig
	enabled bool
	now     func() time.Time
	mu      sync.RWMutex
}

// NewConfirmationDetector creates a confirmation detector with default settings.
func NewConfirmationDetector() *ConfirmationDetector {
	return &ConfirmationDetector{config: DefaultConfirmationConfig(), enabled: true, now: time.Now}
}

// Type returns the bias type.
func (d *ConfirmationDetector) Type() BiasType {
	return BiasConfirmation
}

// Detect scores 1 - |distinct categories| / |choices|.
func (d *ConfirmationDetector) Detect(ctx context.Context, history *activity.History) (*Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.RLock()
	config := d.config
	d.mu.RUnlock()

	choices := history.OrderedChoices()
	n := len(choices)
	if n < config.MinSamples {
		return insufficient(BiasConfirmation, n, d.now()), nil
	}

	counts := make(map[string]int)
	for _, c := range choices {
		counts[c.Category]++
	}
	dominant := dominantCategory(counts)

	diversity := float64(len(counts)) / float64(n)
	bias := 1 - diversity

	affected := make([]string, 0, counts[dominant])
	for _, c := range choices {
		if c.Category == dominant {
			affected = append(affected, c.ID)
		}
	}

	evidence := []string{
		fmt.Sprintf("%d distinct categories across %d choices (diversity %.2f)", len(counts), n, diversity),
		fmt.Sprintf("%d choices in %q", counts[dominant], dominant),
	}
	meta := ConfirmationMetadata{
		DiversityScore:     diversity,
		BiasScore:          bias,
		DistinctCategories: len(counts),
		Total:              n,
		DominantCategory:   dominant,
	}
	return finding(BiasConfirmation, config.Thresholds, bias, n, evidence, affected, meta, d.now())
}

// dominantCategory returns the most frequent category, breaking ties lexically.
func dominantCategory(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best := ""
	for i, k := range keys {
		if i == 0 || counts[k] > counts[best] {
			best = k
		}
	}
	return best
}

// Configure replaces the detector configuration. Omitted fields take
// their defaults.
func (d *ConfirmationDetector) Configure(config json.RawMessage) error {
	newConfig := DefaultConfirmationConfig()
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

// Enabled returns whether the detector is enabled.
func (d *ConfirmationDetector) Enabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.enabled
}

// SetEnabled enables or disables the detector.
func (d *ConfirmationDetector) SetEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
}
