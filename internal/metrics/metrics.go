// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

// Package metrics holds the Prometheus collectors for Wayfarer and the
// RecordXxx helpers the rest of the code calls. Collectors are registered
// with the default registry through promauto and exposed by the HTTP
// server on the configured metrics path.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Job scheduler
	JobsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfarer_jobs_submitted_total",
			Help: "Total number of processing jobs accepted",
		},
		[]string{"job_type", "priority"},
	)

	JobsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfarer_jobs_rejected_total",
			Help: "Total number of job submissions rejected",
		},
		[]string{"reason"}, // "queue_full", "rate_limited", "invalid_payload", "unknown_type", "stopped"
	)

	JobsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfarer_jobs_completed_total",
			Help: "Total number of jobs that reached a terminal state",
		},
		[]string{"job_type", "status"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wayfarer_job_duration_seconds",
			Help:    "Duration of job execution in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60},
		},
		[]string{"job_type"},
	)

	JobQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wayfarer_job_queue_depth",
			Help: "Number of jobs waiting in the priority queue",
		},
	)

	JobsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wayfarer_jobs_running",
			Help: "Number of jobs currently being processed",
		},
	)

	WorkerPanics = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wayfarer_worker_panics_total",
			Help: "Total number of panics recovered while executing jobs",
		},
	)

	// Broadcaster
	BroadcastPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wayfarer_broadcast_published_total",
			Help: "Total number of events delivered to subscribers",
		},
	)

	BroadcastDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfarer_broadcast_dropped_total",
			Help: "Total number of events dropped",
		},
		[]string{"reason"}, // "subscriber_full", "hub_full"
	)

	BroadcastSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wayfarer_broadcast_subscribers",
			Help: "Current number of active topic subscriptions",
		},
	)

	EventForwards = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfarer_event_forward_total",
			Help: "Total number of broadcast events forwarded to the event bus",
		},
		[]string{"status"}, // "success", "error"
	)

	// Analytics
	DecisionMatrices = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfarer_decision_matrices_total",
			Help: "Total number of decision matrix evaluations",
		},
		[]string{"outcome"}, // "ok", "invalid", "cancelled", "error"
	)

	PatternsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfarer_patterns_detected_total",
			Help: "Total number of behavior patterns accepted",
		},
		[]string{"pattern_type"},
	)

	BiasFindings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfarer_bias_findings_total",
			Help: "Total number of bias findings produced",
		},
		[]string{"bias_type", "severity"},
	)

	// Cache
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfarer_cache_lookups_total",
			Help: "Total number of cache lookups",
		},
		[]string{"cache", "result"}, // "hit", "miss"
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfarer_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wayfarer_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wayfarer_websocket_connections",
			Help: "Current number of WebSocket connections",
		},
	)
)

// RecordJobSubmitted counts an accepted job.
func RecordJobSubmitted(jobType, priority string) {
	JobsSubmitted.WithLabelValues(jobType, priority).Inc()
}

// RecordJobRejected counts a rejected submission.
func RecordJobRejected(reason string) {
	JobsRejected.WithLabelValues(reason).Inc()
}

// RecordJobFinished records a terminal job with its execution duration.
func RecordJobFinished(jobType, status string, duration time.Duration) {
	JobsFinished.WithLabelValues(jobType, status).Inc()
	JobDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

// SetQueueDepth publishes the current queue length.
func SetQueueDepth(depth int) {
	JobQueueDepth.Set(float64(depth))
}

// TrackRunningJob increments or decrements the running jobs gauge.
func TrackRunningJob(inc bool) {
	if inc {
		JobsRunning.Inc()
	} else {
		JobsRunning.Dec()
	}
}

// RecordWorkerPanic counts a recovered panic.
func RecordWorkerPanic() {
	WorkerPanics.Inc()
}

// RecordBroadcastDelivered counts an event delivered to one subscriber.
func RecordBroadcastDelivered() {
	BroadcastPublished.Inc()
}

// RecordBroadcastDropped counts a dropped event.
func RecordBroadcastDropped(reason string) {
	BroadcastDropped.WithLabelValues(reason).Inc()
}

// SetBroadcastSubscriptions publishes the current subscription count.
func SetBroadcastSubscriptions(n int) {
	BroadcastSubscriptions.Set(float64(n))
}

// RecordEventForward counts an event bus forward attempt.
func RecordEventForward(err error) {
	if err != nil {
		EventForwards.WithLabelValues("error").Inc()
		return
	}
	EventForwards.WithLabelValues("success").Inc()
}

// RecordDecisionMatrix counts a decision matrix evaluation by outcome.
func RecordDecisionMatrix(outcome string) {
	DecisionMatrices.WithLabelValues(outcome).Inc()
}

// RecordPatternsDetected adds n accepted patterns of the given type.
func RecordPatternsDetected(patternType string, n int) {
	if n <= 0 {
		return
	}
	PatternsDetected.WithLabelValues(patternType).Add(float64(n))
}

// RecordBiasFinding counts a bias finding.
func RecordBiasFinding(biasType, severity string) {
	BiasFindings.WithLabelValues(biasType, severity).Inc()
}

// RecordCacheLookup counts a cache hit or miss.
func RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(cache, result).Inc()
}

// RecordAPIRequest counts an API request and records its duration.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// TrackWebSocketConnection increments or decrements the connection gauge.
func TrackWebSocketConnection(inc bool) {
	if inc {
		WebSocketConnections.Inc()
	} else {
		WebSocketConnections.Dec()
	}
}
