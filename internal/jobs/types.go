// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

// Package jobs provides the asynchronous job scheduler.
//
// Jobs move through pending -> processing -> completed | failed. Terminal
// states are final and failed jobs are never retried. The queue is bounded
// and ordered by priority with FIFO order inside a priority band; a waiting
// job is overtaken by later higher-priority submissions but a running job
// is never preempted.
//
// Every lifecycle event is published to the "{userID}:jobs" topic. Terminal
// events are also published to "{userID}:{jobType}".
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Sentinel errors.
var (
	ErrQueueFull        = errors.New("job queue is full")
	ErrRateLimited      = errors.New("submission rate limit exceeded")
	ErrUnknownJobType   = errors.New("unknown job type")
	ErrInvalidPriority  = errors.New("invalid priority")
	ErrInvalidPayload   = errors.New("invalid job payload")
	ErrJobNotFound      = errors.New("job not found")
	ErrSchedulerStopped = errors.New("scheduler stopped")
	ErrJobNotTerminal   = errors.New("job has not finished")
	ErrJobFinished      = errors.New("job already finished")

	errCancelled = errors.New("cancelled")
)

// Priority orders the queue.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// ParsePriority parses a priority. The empty string means medium.
func ParsePriority(s string) (Priority, error) {
	if s == "" {
		return PriorityMedium, nil
	}
	p := Priority(s)
	if p.rank() == 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, s)
	}
	return p, nil
}

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether s is completed or failed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Event types published by the scheduler.
const (
	EventPending    = "job_pending"
	EventProcessing = "job_processing"
	EventProgress   = "job_progress"
	EventCompleted  = "job_completed"
	EventFailed     = "job_failed"
)

// JobsTopic is the per-user topic that receives every lifecycle event.
const JobsTopic = "jobs"

// Job is a unit of asynchronous work.
type Job struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	JobType     string          `json:"job_type"`
	Priority    Priority        `json:"priority"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Status      Status          `json:"status"`
	Progress    int             `json:"progress"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Result      interface{}     `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`

	decoded         interface{}
	cancelRequested bool
}

// JobEvent is the payload of every published lifecycle event.
type JobEvent struct {
	JobID    string      `json:"job_id"`
	UserID   string      `json:"user_id"`
	JobType  string      `json:"job_type"`
	Status   Status      `json:"status"`
	Progress int         `json:"progress"`
	Result   interface{} `json:"result,omitempty"`
	Error    string      `json:"error,omitempty"`
	At       time.Time   `json:"at"`
}

// Handler executes one job type.
type Handler struct {
	// Decode parses and validates a raw payload. An error rejects the
	// submission; the job never enters the queue.
	Decode func(raw json.RawMessage) (interface{}, error)

	// Run computes the job result from the decoded payload. It should honour
	// ctx; a handler that outlives the job timeout is abandoned.
	Run func(ctx context.Context, job *Job, payload interface{}) (interface{}, error)
}

// Publisher receives lifecycle events.
type Publisher interface {
	Publish(topic, eventType string, data interface{}) bool
}

// JobArchive stores terminal jobs that left the in-memory table, either
// discarded by the user or evicted after the retention period.
type JobArchive interface {
	ArchiveJob(ctx context.Context, job *Job) error
	// ArchivedJob returns an archived job. A missing job yields an error
	// wrapping ErrJobNotFound.
	ArchivedJob(ctx context.Context, id string) (*Job, error)
}

// ExecutionError wraps a failure raised while running a job.
type ExecutionError struct {
	JobID   string
	JobType string
	Err     error
	Panic   bool
}

func (e *ExecutionError) Error() string {
	if e.Panic {
		return fmt.Sprintf("job %s (%s) panicked: %v", e.JobID, e.JobType, e.Err)
	}
	return fmt.Sprintf("job %s (%s) failed: %v", e.JobID, e.JobType, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Stats summarises scheduler activity.
type Stats struct {
	Processed     int64   `json:"processed"`
	Failed        int64   `json:"failed"`
	QueueDepth    int     `json:"queue_depth"`
	Running       int     `json:"running"`
	Tracked       int     `json:"tracked"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
	ErrorRate     float64 `json:"error_rate"`
}
