// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/wayfarer/internal/jobs"
	"github.com/tomtom215/wayfarer/internal/patterns"
	"github.com/tomtom215/wayfarer/internal/scoring"
)

type fakeJobs struct {
	mu        sync.Mutex
	jobs      map[string]*jobs.Job
	submitErr error
	submitted []jobs.Job
	cancelled []string
	discarded []string
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: make(map[string]*jobs.Job)}
}

func (f *fakeJobs) add(job jobs.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.ID] = &job
}

func (f *fakeJobs) Submit(_ context.Context, userID, jobType string, payload json.RawMessage, priority jobs.Priority) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	id := fmt.Sprintf("job-%d", len(f.submitted)+1)
	job := jobs.Job{ID: id, UserID: userID, JobType: jobType, Priority: priority, Payload: payload, Status: jobs.StatusPending}
	f.submitted = append(f.submitted, job)
	f.jobs[id] = &job
	return id, nil
}

func (f *fakeJobs) GetStatus(_ context.Context, jobID string) (*jobs.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", jobs.ErrJobNotFound, jobID)
	}
	cp := *job
	return &cp, nil
}

func (f *fakeJobs) List(userID string) []jobs.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []jobs.Job{}
	for _, j := range f.jobs {
		if j.UserID == userID {
			out = append(out, *j)
		}
	}
	return out
}

func (f *fakeJobs) Discard(_ context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := f.jobs[jobID]
	if !job.Status.Terminal() {
		return jobs.ErrJobNotTerminal
	}
	delete(f.jobs, jobID)
	f.discarded = append(f.discarded, jobID)
	return nil
}

func (f *fakeJobs) Cancel(jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.jobs[jobID].Status.Terminal() {
		return jobs.ErrJobFinished
	}
	f.cancelled = append(f.cancelled, jobID)
	return nil
}

func (f *fakeJobs) Stats() jobs.Stats {
	return jobs.Stats{Processed: 3, Failed: 1, ErrorRate: 0.25}
}

func (f *fakeJobs) JobTypes() []string {
	return []string{"decision_matrix", "pattern_analysis"}
}

type fakeProfiles struct {
	err error
}

func (f *fakeProfiles) Profile(_ context.Context, userID string) (*patterns.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := patterns.BuildProfile(userID, nil, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	return &p, nil
}

type apiFixture struct {
	jobs    *fakeJobs
	handler http.Handler
}

func newFixture(t *testing.T, profiles ProfileSource, checks ...ReadinessCheck) *apiFixture {
	t.Helper()
	fj := newFakeJobs()
	h := NewHandler(fj, profiles, "test", checks...)
	mw := DefaultChiMiddlewareConfig()
	mw.RateLimitDisabled = true
	router := NewRouter(RouterConfig{MetricsEnabled: true, Middleware: mw}, h, nil)
	return &apiFixture{jobs: fj, handler: router.Setup()}
}

func (f *apiFixture) do(t *testing.T, method, path, userID, body string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var resp APIResponse
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("response is not an APIResponse: %v\n%s", err, rec.Body.String())
		}
	}
	return rec, resp
}

func TestHealthLive(t *testing.T) {
	f := newFixture(t, nil)
	rec, resp := f.do(t, http.MethodGet, "/health/live", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp.Status != "success" {
		t.Errorf("Status = %q, want success", resp.Status)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestHealthReady(t *testing.T) {
	ok := ReadinessCheck{Name: "scheduler", Check: func(context.Context) error { return nil }}
	bad := ReadinessCheck{Name: "eventbus", Check: func(context.Context) error { return errors.New("breaker open") }}

	f := newFixture(t, nil, ok)
	if rec, _ := f.do(t, http.MethodGet, "/health/ready", "", ""); rec.Code != http.StatusOK {
		t.Errorf("ready status = %d, want 200", rec.Code)
	}

	f = newFixture(t, nil, ok, bad)
	rec, resp := f.do(t, http.MethodGet, "/health/ready", "", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("not ready status = %d, want 503", rec.Code)
	}
	if resp.Status != "not_ready" {
		t.Errorf("Status = %q, want not_ready", resp.Status)
	}
}

func TestAPIRequiresUser(t *testing.T) {
	f := newFixture(t, nil)
	rec, resp := f.do(t, http.MethodGet, "/api/v1/jobs", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if resp.Error == nil || resp.Error.Code != "UNAUTHORIZED" {
		t.Errorf("Error = %+v, want UNAUTHORIZED", resp.Error)
	}
}

func TestSubmitJob(t *testing.T) {
	f := newFixture(t, nil)
	body := `{"type":"decision_matrix","priority":"high","payload":{"matrix":{}}}`

	rec, resp := f.do(t, http.MethodPost, "/api/v1/jobs", "u1", body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != "/api/v1/jobs/job-1" {
		t.Errorf("Location = %q, want /api/v1/jobs/job-1", got)
	}
	data, _ := resp.Data.(map[string]interface{})
	if data["job_id"] != "job-1" || data["status"] != "pending" {
		t.Errorf("Data = %v", resp.Data)
	}

	sub := f.jobs.submitted[0]
	if sub.UserID != "u1" || sub.JobType != "decision_matrix" || sub.Priority != jobs.PriorityHigh {
		t.Errorf("submitted = %+v", sub)
	}
}

func TestSubmitJobDefaultsToMedium(t *testing.T) {
	f := newFixture(t, nil)
	rec, _ := f.do(t, http.MethodPost, "/api/v1/jobs", "u1", `{"type":"pattern_analysis","payload":{}}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if got := f.jobs.submitted[0].Priority; got != jobs.PriorityMedium {
		t.Errorf("Priority = %q, want medium", got)
	}
}

func TestSubmitJobRejections(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		submitErr error
		wantCode  int
		wantError string
	}{
		{"invalid json", `{"type":`, nil, http.StatusBadRequest, "INVALID_JSON"},
		{"missing type", `{"payload":{}}`, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad priority", `{"type":"x","priority":"urgent","payload":{}}`, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown type", `{"type":"x","payload":{}}`, fmt.Errorf("%w: x", jobs.ErrUnknownJobType), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"invalid payload", `{"type":"x","payload":{}}`, fmt.Errorf("%w: %w", jobs.ErrInvalidPayload, &scoring.ValidationError{Rule: "weights_sum", Message: "weights must sum to 1"}), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"queue full", `{"type":"x","payload":{}}`, jobs.ErrQueueFull, http.StatusTooManyRequests, "QUEUE_FULL"},
		{"rate limited", `{"type":"x","payload":{}}`, jobs.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"stopped", `{"type":"x","payload":{}}`, jobs.ErrSchedulerStopped, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{"unexpected", `{"type":"x","payload":{}}`, errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.jobs.submitErr = tt.submitErr

			rec, resp := f.do(t, http.MethodPost, "/api/v1/jobs", "u1", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if resp.Error == nil || resp.Error.Code != tt.wantError {
				t.Errorf("Error = %+v, want code %s", resp.Error, tt.wantError)
			}
		})
	}
}

func TestSubmitJobRuleDetails(t *testing.T) {
	f := newFixture(t, nil)
	f.jobs.submitErr = fmt.Errorf("%w: %w", jobs.ErrInvalidPayload,
		&scoring.ValidationError{Rule: "weights_sum", Field: "criteria", Message: "weights must sum to 1"})

	_, resp := f.do(t, http.MethodPost, "/api/v1/jobs", "u1", `{"type":"decision_matrix","payload":{}}`)
	if resp.Error == nil {
		t.Fatal("Error missing")
	}
	if resp.Error.Details["rule"] != "weights_sum" {
		t.Errorf("rule = %v, want weights_sum", resp.Error.Details["rule"])
	}
	if resp.Error.Message != "weights must sum to 1" {
		t.Errorf("Message = %q", resp.Error.Message)
	}
}

func TestGetJobOwnership(t *testing.T) {
	f := newFixture(t, nil)
	f.jobs.add(jobs.Job{ID: "j1", UserID: "u1", JobType: "decision_matrix", Status: jobs.StatusCompleted})

	if rec, _ := f.do(t, http.MethodGet, "/api/v1/jobs/j1", "u1", ""); rec.Code != http.StatusOK {
		t.Errorf("owner status = %d, want 200", rec.Code)
	}
	if rec, _ := f.do(t, http.MethodGet, "/api/v1/jobs/j1", "u2", ""); rec.Code != http.StatusNotFound {
		t.Errorf("other user status = %d, want 404", rec.Code)
	}
	if rec, _ := f.do(t, http.MethodGet, "/api/v1/jobs/missing", "u1", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", rec.Code)
	}
}

func TestListJobs(t *testing.T) {
	f := newFixture(t, nil)
	f.jobs.add(jobs.Job{ID: "j1", UserID: "u1", Status: jobs.StatusPending})
	f.jobs.add(jobs.Job{ID: "j2", UserID: "u1", Status: jobs.StatusCompleted})
	f.jobs.add(jobs.Job{ID: "j3", UserID: "u2", Status: jobs.StatusPending})

	rec, resp := f.do(t, http.MethodGet, "/api/v1/jobs", "u1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp.Metadata.Count == nil || *resp.Metadata.Count != 2 {
		t.Errorf("Count = %v, want 2", resp.Metadata.Count)
	}
}

func TestDiscardJob(t *testing.T) {
	f := newFixture(t, nil)
	f.jobs.add(jobs.Job{ID: "done", UserID: "u1", Status: jobs.StatusCompleted})
	f.jobs.add(jobs.Job{ID: "busy", UserID: "u1", Status: jobs.StatusProcessing})

	if rec, _ := f.do(t, http.MethodDelete, "/api/v1/jobs/done", "u1", ""); rec.Code != http.StatusNoContent {
		t.Errorf("discard finished status = %d, want 204", rec.Code)
	}
	if rec, _ := f.do(t, http.MethodDelete, "/api/v1/jobs/busy", "u1", ""); rec.Code != http.StatusConflict {
		t.Errorf("discard running status = %d, want 409", rec.Code)
	}
	if len(f.jobs.discarded) != 1 || f.jobs.discarded[0] != "done" {
		t.Errorf("discarded = %v, want [done]", f.jobs.discarded)
	}
}

func TestCancelJob(t *testing.T) {
	f := newFixture(t, nil)
	f.jobs.add(jobs.Job{ID: "p", UserID: "u1", Status: jobs.StatusPending})
	f.jobs.add(jobs.Job{ID: "c", UserID: "u1", Status: jobs.StatusCompleted})

	if rec, _ := f.do(t, http.MethodPost, "/api/v1/jobs/p/cancel", "u1", ""); rec.Code != http.StatusAccepted {
		t.Errorf("cancel pending status = %d, want 202", rec.Code)
	}
	if rec, _ := f.do(t, http.MethodPost, "/api/v1/jobs/c/cancel", "u1", ""); rec.Code != http.StatusConflict {
		t.Errorf("cancel completed status = %d, want 409", rec.Code)
	}
	if rec, _ := f.do(t, http.MethodPost, "/api/v1/jobs/p/cancel", "u2", ""); rec.Code != http.StatusNotFound {
		t.Errorf("cancel foreign status = %d, want 404", rec.Code)
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t, nil)
	rec, resp := f.do(t, http.MethodGet, "/api/v1/stats", "u1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	data, _ := resp.Data.(map[string]interface{})
	sched, _ := data["scheduler"].(map[string]interface{})
	if sched["processed"] != float64(3) {
		t.Errorf("processed = %v, want 3", sched["processed"])
	}
}

func TestUserPatterns(t *testing.T) {
	f := newFixture(t, &fakeProfiles{})

	rec, resp := f.do(t, http.MethodGet, "/api/v1/users/u1/patterns", "u1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	data, _ := resp.Data.(map[string]interface{})
	if _, ok := data["profile"]; !ok {
		t.Error("profile missing")
	}
	if _, ok := data["recommendations"]; !ok {
		t.Error("recommendations missing")
	}

	if rec, _ := f.do(t, http.MethodGet, "/api/v1/users/u2/patterns", "u1", ""); rec.Code != http.StatusForbidden {
		t.Errorf("foreign status = %d, want 403", rec.Code)
	}
}

func TestUserPatternsWithoutStore(t *testing.T) {
	f := newFixture(t, nil)
	if rec, _ := f.do(t, http.MethodGet, "/api/v1/users/u1/patterns", "u1", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}

	f = newFixture(t, &fakeProfiles{err: patterns.ErrNoStore})
	if rec, _ := f.do(t, http.MethodGet, "/api/v1/users/u1/patterns", "u1", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestMetricsAndNotFound(t *testing.T) {
	f := newFixture(t, nil)
	if rec, _ := f.do(t, http.MethodGet, "/metrics", "", ""); rec.Code != http.StatusOK {
		t.Errorf("/metrics status = %d, want 200", rec.Code)
	}
	rec, resp := f.do(t, http.MethodGet, "/nope", "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if resp.Error == nil || resp.Error.Code != "NOT_FOUND" {
		t.Errorf("Error = %+v, want NOT_FOUND", resp.Error)
	}
}

func TestRateLimitByUser(t *testing.T) {
	fj := newFakeJobs()
	mw := DefaultChiMiddlewareConfig()
	mw.RateLimitRequests = 2
	mw.RateLimitWindow = time.Minute
	handler := NewRouter(RouterConfig{Middleware: mw}, NewHandler(fj, nil, "test"), nil).Setup()

	status := func(user string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		req.Header.Set("X-User-ID", user)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if got := status("u1"); got != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, got)
		}
	}
	if got := status("u1"); got != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", got)
	}
	if got := status("u2"); got != http.StatusOK {
		t.Errorf("other user status = %d, want 200", got)
	}
}
