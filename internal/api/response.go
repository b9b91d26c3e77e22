// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/wayfarer/internal/jobs"
	"github.com/tomtom215/wayfarer/internal/logging"
	"github.com/tomtom215/wayfarer/internal/patterns"
	"github.com/tomtom215/wayfarer/internal/scoring"
	"github.com/tomtom215/wayfarer/internal/validation"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Status   string               `json:"status"`
	Data     interface{}          `json:"data"`
	Metadata Metadata             `json:"metadata"`
	Error    *validation.APIError `json:"error,omitempty"`
}

// Metadata accompanies every response.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
	Count     *int      `json:"count,omitempty"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, resp *APIResponse) {
	resp.Metadata.Timestamp = time.Now().UTC()
	resp.Metadata.RequestID = logging.RequestIDFromContext(r.Context())

	data, err := json.Marshal(resp)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Failed to write JSON response")
	}
}

func respondData(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	respondJSON(w, r, status, &APIResponse{Status: "success", Data: data})
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]interface{}) {
	respondJSON(w, r, status, &APIResponse{
		Status: "error",
		Error:  &validation.APIError{Code: code, Message: message, Details: details},
	})
}

// respondErr maps domain errors to HTTP status codes.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	var reqErr *validation.RequestValidationError
	if errors.As(err, &reqErr) {
		apiErr := reqErr.ToAPIError()
		respondJSON(w, r, http.StatusBadRequest, &APIResponse{Status: "error", Error: apiErr})
		return
	}

	var ruleErr *scoring.ValidationError
	if errors.As(err, &ruleErr) {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", ruleErr.Message, map[string]interface{}{
			"rule":  ruleErr.Rule,
			"field": ruleErr.Field,
		})
		return
	}

	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Request failed")
	}
	respondError(w, r, status, code, err.Error(), nil)
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, jobs.ErrInvalidPayload),
		errors.Is(err, jobs.ErrInvalidPriority),
		errors.Is(err, jobs.ErrUnknownJobType):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, jobs.ErrJobNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, jobs.ErrRateLimited):
		return http.StatusTooManyRequests, "RATE_LIMITED"
	case errors.Is(err, jobs.ErrQueueFull):
		return http.StatusTooManyRequests, "QUEUE_FULL"
	case errors.Is(err, jobs.ErrJobNotTerminal), errors.Is(err, jobs.ErrJobFinished):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, jobs.ErrSchedulerStopped), errors.Is(err, patterns.ErrNoStore):
		return http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}
