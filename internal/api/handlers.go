// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package api

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/wayfarer/internal/jobs"
	"github.com/tomtom215/wayfarer/internal/patterns"
)

const maxRequestBody = 1 << 20

// JobService is the scheduler surface used by the HTTP handlers.
type JobService interface {
	Submit(ctx context.Context, userID, jobType string, payload json.RawMessage, priority jobs.Priority) (string, error)
	GetStatus(ctx context.Context, jobID string) (*jobs.Job, error)
	List(userID string) []jobs.Job
	Discard(ctx context.Context, jobID string) error
	Cancel(jobID string) error
	Stats() jobs.Stats
	JobTypes() []string
}

// ProfileSource returns the stored behavioral profile of a user.
type ProfileSource interface {
	Profile(ctx context.Context, userID string) (*patterns.Profile, error)
}

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler serves the HTTP API.
type Handler struct {
	jobs      JobService
	profiles  ProfileSource
	checks    []ReadinessCheck
	startTime time.Time
	version   string
}

// NewHandler creates a handler. profiles may be nil.
func NewHandler(js JobService, profiles ProfileSource, version string, checks ...ReadinessCheck) *Handler {
	return &Handler{
		jobs:      js,
		profiles:  profiles,
		checks:    checks,
		startTime: time.Now(),
		version:   version,
	}
}
