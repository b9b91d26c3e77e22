// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package detection

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/wayfarer/internal/activity"
)

var baseTime = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func choiceHistory(categories ...string) *activity.History {
	h := &activity.History{UserID: "u1"}
	for i, c := range categories {
		h.Choices = append(h.Choices, activity.Choice{
			ID:       fmt.Sprintf("c%d", i+1),
			Category: c,
			ChosenAt: baseTime.Add(time.Duration(i) * time.Hour),
		})
	}
	return h
}

// savedHistory builds saves in time order; acted lists the 1-based positions that were acted on.
func savedHistory(n int, acted ...int) *activity.History {
	h := &activity.History{UserID: "u1"}
	actedSet := make(map[int]bool)
	for _, a := range acted {
		actedSet[a] = true
	}
	for i := 1; i <= n; i++ {
		h.SavedLocations = append(h.SavedLocations, activity.SavedLocation{
			ID:      fmt.Sprintf("s%d", i),
			SavedAt: baseTime.Add(time.Duration(i) * time.Hour),
			Acted:   actedSet[i],
		})
	}
	return h
}

func noteHistory(notes ...string) *activity.History {
	h := &activity.History{UserID: "u1"}
	for i, n := range notes {
		h.JournalEntries = append(h.JournalEntries, activity.JournalEntry{
			ID:        fmt.Sprintf("j%d", i+1),
			Text:      n,
			CreatedAt: baseTime.Add(time.Duration(i) * time.Hour),
		})
	}
	return h
}

func assertInsufficient(t *testing.T, f *Finding) {
	t.Helper()
	if !f.Insufficient {
		t.Error("Insufficient = false, want true")
	}
	if f.Severity != SeverityLow {
		t.Errorf("Severity = %s, want low", f.Severity)
	}
	if f.Confidence != InsufficientConfidence {
		t.Errorf("Confidence = %v, want %v", f.Confidence, InsufficientConfidence)
	}
	if f.Evidence == nil || len(f.Evidence) != 0 {
		t.Errorf("Evidence = %#v, want empty non-nil slice", f.Evidence)
	}
}

func TestConfirmationSingleCategory(t *testing.T) {
	d := NewConfirmationDetector()

	f, err := d.Detect(context.Background(), choiceHistory("A", "A", "A", "A"))
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}

	var meta ConfirmationMetadata
	if err := json.Unmarshal(f.Metadata, &meta); err != nil {
		t.Fatalf("unmarshal metadata: %v", err)
	}
	if meta.DiversityScore != 0.25 {
		t.Errorf("DiversityScore = %v, want 0.25", meta.DiversityScore)
	}
	if meta.BiasScore != 0.75 || f.Score != 0.75 {
		t.Errorf("BiasScore = %v (score %v), want 0.75", meta.BiasScore, f.Score)
	}
	if f.Severity != SeverityHigh {
		t.Errorf("Severity = %s, want high", f.Severity)
	}
	if len(f.AffectedDecisions) != 4 {
		t.Errorf("AffectedDecisions = %v, want all 4 choices", f.AffectedDecisions)
	}
	if len(f.Recommendations) == 0 {
		t.Error("high severity finding has no recommendations")
	}
}

func TestConfirmationThresholdBoundary(t *testing.T) {
	// 3 distinct categories over 10 choices: bias score exactly 0.7.
	h := choiceHistory("A", "A", "A", "A", "A", "A", "A", "A", "B", "C")
	f, err := NewConfirmationDetector().Detect(context.Background(), h)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if math.Abs(f.Score-0.7) > 1e-9 {
		t.Fatalf("Score = %v, want 0.7", f.Score)
	}
	if f.Severity != SeverityMedium {
		t.Errorf("Severity at exactly 0.7 = %s, want medium", f.Severity)
	}
}

func TestConfirmationInsufficient(t *testing.T) {
	f, err := NewConfirmationDetector().Detect(context.Background(), choiceHistory("A", "B"))
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	assertInsufficient(t, f)
	if f.SampleSize != 2 {
		t.Errorf("SampleSize = %d, want 2", f.SampleSize)
	}
}

func TestAnchoring(t *testing.T) {
	tests := []struct {
		name       string
		categories []string
		wantScore  float64
		want       Severity
	}{
		{"strong anchor", []string{"beach", "beach", "city", "beach", "beach"}, 0.8, SeverityHigh},
		{"boundary 0.7", []string{"beach", "beach", "beach", "beach", "beach", "beach", "beach", "city", "city", "alpine"}, 0.7, SeverityMedium},
		{"spread", []string{"beach", "city", "alpine", "desert", "city"}, 0.2, SeverityLow},
		{"boundary 0.3", []string{"beach", "beach", "beach", "x", "x", "x", "y", "y", "y", "z"}, 0.3, SeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewAnchoringDetector().Detect(context.Background(), choiceHistory(tt.categories...))
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if math.Abs(f.Score-tt.wantScore) > 1e-9 {
				t.Errorf("Score = %v, want %v", f.Score, tt.wantScore)
			}
			if f.Severity != tt.want {
				t.Errorf("Severity = %s, want %s", f.Severity, tt.want)
			}
			if f.AffectedDecisions[0] != "c1" {
				t.Errorf("AffectedDecisions[0] = %s, want c1", f.AffectedDecisions[0])
			}
		})
	}
}

func TestAnchoringUsesChronologicalOrder(t *testing.T) {
	h := choiceHistory("city", "beach", "beach", "beach")
	// The last submitted choice happened first, so it is the anchor.
	h.Choices[3].ChosenAt = baseTime.Add(-time.Hour)

	f, err := NewAnchoringDetector().Detect(context.Background(), h)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if f.Score != 0.75 {
		t.Errorf("Score = %v, want 0.75 anchored on beach", f.Score)
	}
	if f.AffectedDecisions[0] != "c4" {
		t.Errorf("AffectedDecisions[0] = %s, want c4", f.AffectedDecisions[0])
	}
}

func TestRecency(t *testing.T) {
	tests := []struct {
		name      string
		history   *activity.History
		wantScore float64
		want      Severity
	}{
		{"recent heavy", savedHistory(10, 2, 8, 9, 10), 0.75, SeverityHigh},
		{"balanced", savedHistory(10, 1, 2, 9, 10), 0.5, SeverityMedium},
		{"old heavy", savedHistory(10, 1, 2, 3, 10), 0.25, SeverityLow},
		{"nothing acted", savedHistory(6), 0, SeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewRecencyDetector().Detect(context.Background(), tt.history)
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if f.Insufficient {
				t.Fatal("Insufficient = true, want false")
			}
			if math.Abs(f.Score-tt.wantScore) > 1e-9 {
				t.Errorf("Score = %v, want %v", f.Score, tt.wantScore)
			}
			if f.Severity != tt.want {
				t.Errorf("Severity = %s, want %s", f.Severity, tt.want)
			}
		})
	}
}

func TestRecencyInsufficient(t *testing.T) {
	f, err := NewRecencyDetector().Detect(context.Background(), savedHistory(4, 4))
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	assertInsufficient(t, f)
}

func TestAvailability(t *testing.T) {
	h := noteHistory(
		"Quiet museum morning",
		"An AMAZING sunset, truly unforgettable",
		"Got robbed near the station, terrible",
		"Nice cafe",
		"Wonderful hike",
		"Horrible traffic jam",
	)

	f, err := NewAvailabilityDetector().Detect(context.Background(), h)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if math.Abs(f.Score-4.0/6.0) > 1e-9 {
		t.Errorf("Score = %v, want %v", f.Score, 4.0/6.0)
	}
	if f.Severity != SeverityHigh {
		t.Errorf("Severity = %s, want high", f.Severity)
	}
	want := []string{"j2", "j3", "j5", "j6"}
	if strings.Join(f.AffectedDecisions, ",") != strings.Join(want, ",") {
		t.Errorf("AffectedDecisions = %v, want %v", f.AffectedDecisions, want)
	}

	var meta AvailabilityMetadata
	if err := json.Unmarshal(f.Metadata, &meta); err != nil {
		t.Fatalf("unmarshal metadata: %v", err)
	}
	if strings.Join(meta.MatchedWords, ",") != "amazing,horrible,robbed,terrible,unforgettable,wonderful" {
		t.Errorf("MatchedWords = %v", meta.MatchedWords)
	}
}

func TestAvailabilityRecentWindow(t *testing.T) {
	d := NewAvailabilityDetector()
	if err := d.Configure(json.RawMessage(`{"recent_window":2,"min_samples":3}`)); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	h := noteHistory("terrible", "awful", "scary", "calm day", "pleasant walk")
	f, err := d.Detect(context.Background(), h)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if f.Score != 0 || f.Severity != SeverityLow {
		t.Errorf("Score = %v severity %s, want 0 low for a calm recent window", f.Score, f.Severity)
	}
}

func TestAvailabilityIgnoresEmptyText(t *testing.T) {
	h := noteHistory("terrible", "", " ", "awful")
	f, err := NewAvailabilityDetector().Detect(context.Background(), h)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	assertInsufficient(t, f)
	if f.SampleSize != 2 {
		t.Errorf("SampleSize = %d, want 2", f.SampleSize)
	}
}

func TestConfigureValidation(t *testing.T) {
	tests := []struct {
		name     string
		detector Detector
		config   string
	}{
		{"invalid json", NewAnchoringDetector(), `{`},
		{"zero min samples", NewAnchoringDetector(), `{"min_samples":0}`},
		{"inverted thresholds", NewConfirmationDetector(), `{"thresholds":{"high":0.2,"medium":0.5}}`},
		{"zero window", NewRecencyDetector(), `{"recent_window":0}`},
		{"empty vocabulary", NewAvailabilityDetector(), `{"vocabulary":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.detector.Configure(json.RawMessage(tt.config)); err == nil {
				t.Error("Configure() error = nil, want error")
			}
		})
	}
}

func TestConfigurePartialKeepsDefaults(t *testing.T) {
	d := NewRecencyDetector()
	if err := d.Configure(json.RawMessage(`{"recent_window":4}`)); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	cfg := d.Config()
	if cfg.RecentWindow != 4 || cfg.MinSamples != 5 || cfg.Thresholds.High != 0.6 {
		t.Errorf("config = %+v, want window 4 with defaults kept", cfg)
	}
}

func TestConfigureReplacesPreviousConfig(t *testing.T) {
	d := NewRecencyDetector()
	if err := d.Configure(json.RawMessage(`{"recent_window":4,"min_samples":8}`)); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if err := d.Configure(json.RawMessage(`{"recent_window":2}`)); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	cfg := d.Config()
	if cfg.RecentWindow != 2 || cfg.MinSamples != 5 {
		t.Errorf("config = %+v, want window 2 and default min_samples 5", cfg)
	}
}

func TestThresholdsGrade(t *testing.T) {
	th := Thresholds{High: 0.6, Medium: 0.4}
	tests := []struct {
		score float64
		want  Severity
	}{
		{0.61, SeverityHigh},
		{0.6, SeverityMedium},
		{0.41, SeverityMedium},
		{0.4, SeverityLow},
		{0, SeverityLow},
	}
	for _, tt := range tests {
		if got := th.Grade(tt.score); got != tt.want {
			t.Errorf("Grade(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestSampleConfidence(t *testing.T) {
	if got := sampleConfidence(4); math.Abs(got-0.7) > 1e-9 {
		t.Errorf("sampleConfidence(4) = %v, want 0.7", got)
	}
	if got := sampleConfidence(100); got != 0.9 {
		t.Errorf("sampleConfidence(100) = %v, want 0.9", got)
	}
}
