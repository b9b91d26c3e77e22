// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/wayfarer/internal/jobs"
	"github.com/tomtom215/wayfarer/internal/logging"
	"github.com/tomtom215/wayfarer/internal/middleware"
	"github.com/tomtom215/wayfarer/internal/validation"
)

// SubmitJobRequest is the body of POST /api/v1/jobs.
type SubmitJobRequest struct {
	Type     string          `json:"type" validate:"required"`
	Priority string          `json:"priority" validate:"omitempty,priority"`
	Payload  json.RawMessage `json:"payload" validate:"required"`
}

// SubmitJobResponse acknowledges an accepted job.
type SubmitJobResponse struct {
	JobID  string      `json:"job_id"`
	Status jobs.Status `json:"status"`
}

// SubmitJob enqueues a job for the caller.
func (h *Handler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	var req SubmitJobRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "INVALID_JSON", "Request body is not valid JSON", nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondErr(w, r, verr)
		return
	}

	priority, err := jobs.ParsePriority(req.Priority)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	jobID, err := h.jobs.Submit(r.Context(), userID, req.Type, req.Payload, priority)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("job_id", jobID).
		Str("job_type", req.Type).
		Str("priority", string(priority)).
		Msg("Job submitted")

	w.Header().Set("Location", "/api/v1/jobs/"+jobID)
	respondData(w, r, http.StatusAccepted, SubmitJobResponse{JobID: jobID, Status: jobs.StatusPending})
}

// ListJobs returns the caller's tracked jobs.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	list := h.jobs.List(middleware.UserID(r))
	n := len(list)
	respondJSON(w, r, http.StatusOK, &APIResponse{
		Status:   "success",
		Data:     list,
		Metadata: Metadata{Count: &n},
	})
}

// GetJob returns one job owned by the caller.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.ownedJob(w, r)
	if !ok {
		return
	}
	respondData(w, r, http.StatusOK, job)
}

// DiscardJob archives and forgets a finished job.
func (h *Handler) DiscardJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.ownedJob(w, r)
	if !ok {
		return
	}
	if err := h.jobs.Discard(r.Context(), job.ID); err != nil {
		respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CancelJob cancels a pending or running job.
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.ownedJob(w, r)
	if !ok {
		return
	}
	if err := h.jobs.Cancel(job.ID); err != nil {
		respondErr(w, r, err)
		return
	}
	respondData(w, r, http.StatusAccepted, map[string]string{"job_id": job.ID, "status": "cancelling"})
}

// Stats returns scheduler statistics and registered job types.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	respondData(w, r, http.StatusOK, map[string]interface{}{
		"scheduler": h.jobs.Stats(),
		"job_types": h.jobs.JobTypes(),
	})
}

// ownedJob loads the job in the URL. Jobs of other users are reported as
// not found.
func (h *Handler) ownedJob(w http.ResponseWriter, r *http.Request) (*jobs.Job, bool) {
	jobID := chi.URLParam(r, "id")
	job, err := h.jobs.GetStatus(r.Context(), jobID)
	if err == nil && job.UserID != middleware.UserID(r) {
		err = fmt.Errorf("%w: %s", jobs.ErrJobNotFound, jobID)
	}
	if err != nil {
		respondErr(w, r, err)
		return nil, false
	}
	return job, true
}
