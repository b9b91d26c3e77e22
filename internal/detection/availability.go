// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package detection

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/goccy/go-json"

	"github.com/tomtom215/wayfarer/internal/activity"
)

// defaultVocabulary lists emotionally charged words that mark vivid,
// memorable experiences.
var defaultVocabulary = []string{
	"amazing", "awful", "breathtaking", "dangerous", "disaster", "disgusting",
	"dreadful", "exhilarating", "fantastic", "frightening", "horrible", "horrific",
	"incredible", "magical", "nightmare", "robbed", "scam", "scary", "shocking",
	"stunning", "terrible", "terrifying", "unforgettable", "wonderful", "worst",
}

// AvailabilityConfig configures the availability detector.
type AvailabilityConfig struct {
	MinSamples int `json:"min_samples"`
	// RecentWindow is the number of most recent text records examined.
	RecentWindow int        `json:"recent_window"`
	Vocabulary   []string   `json:"vocabulary"`
	Thresholds   Thresholds `json:"thresholds"`
}

// DefaultAvailabilityConfig returns the default availability settings.
func DefaultAvailabilityConfig() AvailabilityConfig {
	vocab := make([]string, len(defaultVocabulary))
	copy(vocab, defaultVocabulary)
	return AvailabilityConfig{
		MinSamples:   5,
		RecentWindow: 10,
		Vocabulary:   vocab,
		Thresholds:   Thresholds{High: 0.6, Medium: 0.4},
	}
}

// AvailabilityMetadata is attached to availability findings.
type AvailabilityMetadata struct {
	Examined     int      `json:"examined"`
	Charged      int      `json:"charged"`
	MatchedWords []string `json:"matched_words"`
	Score        float64  `json:"score"`
}

// AvailabilityDetector measures how much recent free text is dominated by
// emotionally charged vocabulary.
type AvailabilityDetector struct {
	config  AvailabilityConfig
	vocab   map[string]struct{}
	enabled bool
	now     func() time.Time
	mu      sync.RWMutex
}

// NewAvailabilityDetector creates an availability detector with default settings.
func NewAvailabilityDetector() *AvailabilityDetector {
	cfg := DefaultAvailabilityConfig()
	return &AvailabilityDetector{config: cfg, vocab: vocabularySet(cfg.Vocabulary), enabled: true, now: time.Now}
}

// Type returns the bias type.
func (d *AvailabilityDetector) Type() BiasType {
	return BiasAvailability
}

// Detect scores charged records / examined records over the recent window
// of records that carry text.
func (d *AvailabilityDetector) Detect(ctx context.Context, history *activity.History) (*Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.RLock()
	config := d.config
	vocab := d.vocab
	d.mu.RUnlock()

	var texts []activity.Record
	for _, r := range history.Records() {
		if strings.TrimSpace(r.Text) != "" {
			texts = append(texts, r)
		}
	}
	n := len(texts)
	if n < config.MinSamples {
		return insufficient(BiasAvailability, n, d.now()), nil
	}

	recent := texts
	if len(recent) > config.RecentWindow {
		recent = recent[len(recent)-config.RecentWindow:]
	}

	matched := make(map[string]struct{})
	affected := make([]string, 0, len(recent))
	for _, r := range recent {
		words := chargedWords(r.Text, vocab)
		if len(words) == 0 {
			continue
		}
		affected = append(affected, r.ID)
		for _, w := range words {
			matched[w] = struct{}{}
		}
	}
	score := float64(len(affected)) / float64(len(recent))

	words := make([]string, 0, len(matched))
	for w := range matched {
		words = append(words, w)
	}
	sort.Strings(words)

	evidence := []string{
		fmt.Sprintf("%d of %d recent notes use emotionally charged language", len(affected), len(recent)),
	}
	if len(words) > 0 {
		evidence = append(evidence, "charged words: "+strings.Join(words, ", "))
	}
	meta := AvailabilityMetadata{Examined: len(recent), Charged: len(affected), MatchedWords: words, Score: score}
	return finding(BiasAvailability, config.Thresholds, score, n, evidence, affected, meta, d.now())
}

// chargedWords returns the vocabulary words present in text, in order of appearance.
func chargedWords(text string, vocab map[string]struct{}) []string {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	var out []string
	seen := make(map[string]struct{})
	for _, tok := range tokens {
		if _, ok := vocab[tok]; !ok {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

func vocabularySet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}

// Configure replaces the detector configuration. Omitted fields, the
// vocabulary included, take their defaults.
func (d *AvailabilityDetector) Configure(config json.RawMessage) error {
	newConfig := DefaultAvailabilityConfig()
	if err := json.Unmarshal(config, &newConfig); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := validateMinSamples(newConfig.MinSamples); err != nil {
		return err
	}
	if newConfig.RecentWindow <= 0 {
		return fmt.Errorf("recent_window must be positive")
	}
	if len(newConfig.Vocabulary) == 0 {
		return fmt.Errorf("vocabulary must not be empty")
	}
	if err := newConfig.Thresholds.validate(); err != nil {
		return err
	}

	d.mu.Lock()
	d.config = newConfig
	d.vocab = vocabularySet(newConfig.Vocabulary)
	d.mu.Unlock()
	return nil
}

// Enabled returns whether the detector is enabled.
func (d *AvailabilityDetector) Enabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.enabled
}

// SetEnabled enables or disables the detector.
func (d *AvailabilityDetector) SetEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
}
