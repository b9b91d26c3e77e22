// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("no log output")
	}
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(line), &out); err != nil {
		t.Fatalf("unmarshal %q: %v", line, err)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInitWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(Config{Level: "info", Output: &bytes.Buffer{}})

	Info().Str("job_id", "j1").Msg("hello")

	out := decodeLine(t, &buf)
	if out["message"] != "hello" {
		t.Errorf("message = %v, want hello", out["message"])
	}
	if out["job_id"] != "j1" {
		t.Errorf("job_id = %v, want j1", out["job_id"])
	}
}

func TestCtxAddsIdentifiers(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), NewTestLogger(&buf))
	ctx = ContextWithCorrelationID(ctx, "corr1234")
	ctx = ContextWithUserID(ctx, "u1")
	ctx = ContextWithJobID(ctx, "job-9")

	Ctx(ctx).Info().Msg("scoped")

	out := decodeLine(t, &buf)
	for key, want := range map[string]string{"correlation_id": "corr1234", "user_id": "u1", "job_id": "job-9"} {
		if out[key] != want {
			t.Errorf("%s = %v, want %s", key, out[key], want)
		}
	}
	if _, ok := out["request_id"]; ok {
		t.Error("request_id should be absent when not set")
	}
}

func TestGeneratedIDs(t *testing.T) {
	if got := len(GenerateCorrelationID()); got != 8 {
		t.Errorf("correlation id length = %d, want 8", got)
	}
	if GenerateRequestID() == GenerateRequestID() {
		t.Error("request ids should be unique")
	}
}

func TestSlogHandlerGroupsAndErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewSlogHandlerWithLogger(NewTestLogger(&buf)))

	logger.WithGroup("supervisor").With("service", "scheduler").
		Error("service failed", "restarts", 2, "err", errors.New("boom"))

	out := decodeLine(t, &buf)
	if out["level"] != "error" {
		t.Errorf("level = %v, want error", out["level"])
	}
	if out["supervisor.service"] != "scheduler" {
		t.Errorf("supervisor.service = %v, want scheduler", out["supervisor.service"])
	}
	if out["supervisor.restarts"] != float64(2) {
		t.Errorf("supervisor.restarts = %v, want 2", out["supervisor.restarts"])
	}
	if out["supervisor.err"] != "boom" {
		t.Errorf("supervisor.err = %v, want boom", out["supervisor.err"])
	}
}

func TestSlogHandlerEnabled(t *testing.T) {
	h := NewSlogHandlerWithLogger(zerolog.New(&bytes.Buffer{}).Level(zerolog.WarnLevel))
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled for a warn logger")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled for a warn logger")
	}
}
