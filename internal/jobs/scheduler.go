// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/wayfarer/internal/broadcast"
	"github.com/tomtom215/wayfarer/internal/metrics"
)

// Scheduler owns the job queue and the job-state table. Both are guarded
// by mu; handlers run outside the lock.
type Scheduler struct {
	cfg       *Config
	publisher Publisher
	archive   JobArchive
	logger    zerolog.Logger
	now       func() time.Time

	wake chan struct{}

	mu       sync.Mutex
	handlers map[string]Handler
	queue    []*Job
	jobs     map[string]*Job
	running  map[string]context.CancelFunc
	limiters map[string]*rate.Limiter
	stopped  bool

	processed     int64
	failed        int64
	executed      int64
	avgDurationMs float64
}

// NewScheduler creates a scheduler. publisher may be nil.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewScheduler(cfg *Config, publisher Publisher, logger zerolog.Logger) (*Scheduler, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scheduler config: %w", err)
	}
	return &Scheduler{
		cfg:       cfg,
		publisher: publisher,
		logger:    logger.With().Str("component", "job_scheduler").Logger(),
		now:       time.Now,
		wake:      make(chan struct{}, 1),
		handlers:  make(map[string]Handler),
		jobs:      make(map[string]*Job),
		running:   make(map[string]context.CancelFunc),
		limiters:  make(map[string]*rate.Limiter),
	}, nil
}

// SetArchive sets the archive that receives discarded and evicted jobs
// and backs GetStatus for jobs no longer held in memory.
func (s *Scheduler) SetArchive(a JobArchive) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archive = a
}

// RegisterHandler registers the handler for jobType, replacing any
// previous registration.
func (s *Scheduler) RegisterHandler(jobType string, h Handler) error {
	if jobType == "" {
		return fmt.Errorf("job type is required")
	}
	if h.Decode == nil || h.Run == nil {
		return fmt.Errorf("handler for %s must define Decode and Run", jobType)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[jobType] = h
	return nil
}

// JobTypes returns the registered job types in lexical order.
func (s *Scheduler) JobTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.handlers))
	for t := range s.handlers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Submit validates the payload and enqueues a job. Payload validation
// errors are returned unchanged so callers can classify them.
func (s *Scheduler) Submit(ctx context.Context, userID, jobType string, payload json.RawMessage, priority Priority) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if userID == "" {
		return "", fmt.Errorf("user id is required")
	}
	if priority == "" {
		priority = PriorityMedium
	}
	if priority.rank() == 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}

	s.mu.Lock()
	stopped := s.stopped
	h, ok := s.handlers[jobType]
	allowed := true
	if !stopped && ok {
		if limiter := s.limiterLocked(userID); limiter != nil {
			allowed = limiter.Allow()
		}
	}
	s.mu.Unlock()

	if stopped {
		metrics.RecordJobRejected("stopped")
		return "", ErrSchedulerStopped
	}
	if !ok {
		metrics.RecordJobRejected("unknown_type")
		return "", fmt.Errorf("%w: %s", ErrUnknownJobType, jobType)
	}
	if !allowed {
		metrics.RecordJobRejected("rate_limited")
		return "", ErrRateLimited
	}

	decoded, err := h.Decode(payload)
	if err != nil {
		metrics.RecordJobRejected("invalid_payload")
		return "", err
	}

	job := &Job{
		ID:        uuid.New().String(),
		UserID:    userID,
		JobType:   jobType,
		Priority:  priority,
		Payload:   payload,
		Status:    StatusPending,
		CreatedAt: s.now().UTC(),
		decoded:   decoded,
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		metrics.RecordJobRejected("stopped")
		return "", ErrSchedulerStopped
	}
	if len(s.queue) >= s.cfg.MaxQueueSize {
		s.mu.Unlock()
		metrics.RecordJobRejected("queue_full")
		return "", ErrQueueFull
	}
	s.insertLocked(job)
	s.jobs[job.ID] = job
	depth := len(s.queue)
	ev := eventFor(job, s.now())
	s.mu.Unlock()

	metrics.RecordJobSubmitted(jobType, string(priority))
	metrics.SetQueueDepth(depth)
	s.publish(ev, EventPending, false)

	select {
	case s.wake <- struct{}{}:
	default:
	}

	s.logger.Debug().
		Str("job_id", job.ID).
		Str("user_id", userID).
		Str("job_type", jobType).
		Str("priority", string(priority)).
		Int("queue_depth", depth).
		Msg("Job submitted")
	return job.ID, nil
}

// insertLocked places job before the first waiting job of lower priority.
func (s *Scheduler) insertLocked(job *Job) {
	r := job.Priority.rank()
	i := sort.Search(len(s.queue), func(i int) bool { return s.queue[i].Priority.rank() < r })
	s.queue = append(s.queue, nil)
	copy(s.queue[i+1:], s.queue[i:])
	s.queue[i] = job
}

func (s *Scheduler) limiterLocked(userID string) *rate.Limiter {
	if s.cfg.SubmitRatePerUser <= 0 {
		return nil
	}
	l, ok := s.limiters[userID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(s.cfg.SubmitRatePerUser), s.cfg.SubmitBurst)
		s.limiters[userID] = l
	}
	return l
}

// GetStatus returns a copy of the job. Jobs that were discarded or evicted
// are looked up in the archive.
func (s *Scheduler) GetStatus(ctx context.Context, jobID string) (*Job, error) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if ok {
		c := *job
		s.mu.Unlock()
		return &c, nil
	}
	archive := s.archive
	s.mu.Unlock()

	if archive == nil {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	archived, err := archive.ArchivedJob(ctx, jobID)
	if errors.Is(err, ErrJobNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load archived job %s: %w", jobID, err)
	}
	return archived, nil
}

// List returns copies of every tracked job of userID, oldest first.
func (s *Scheduler) List(userID string) []Job {
	s.mu.Lock()
	out := make([]Job, 0)
	for _, job := range s.jobs {
		if job.UserID == userID {
			out = append(out, *job)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Discard removes a terminal job, archiving it first when an archive is set.
func (s *Scheduler) Discard(ctx context.Context, jobID string) error {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		return ErrJobNotFound
	}
	if !job.Status.Terminal() {
		s.mu.Unlock()
		return ErrJobNotTerminal
	}
	snapshot := *job
	archive := s.archive
	s.mu.Unlock()

	if archive != nil {
		if err := archive.ArchiveJob(ctx, &snapshot); err != nil {
			return fmt.Errorf("failed to archive job %s: %w", jobID, err)
		}
	}

	s.mu.Lock()
	delete(s.jobs, jobID)
	s.mu.Unlock()
	return nil
}

// Cancel fails a pending job immediately or signals a running one.
func (s *Scheduler) Cancel(jobID string) error {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		return ErrJobNotFound
	}
	switch job.Status {
	case StatusPending:
		for i, q := range s.queue {
			if q.ID == jobID {
				s.queue = append(s.queue[:i], s.queue[i+1:]...)
				break
			}
		}
		now := s.now().UTC()
		job.Status = StatusFailed
		job.Error = errCancelled.Error()
		job.CompletedAt = &now
		job.decoded = nil
		s.failed++
		depth := len(s.queue)
		ev := eventFor(job, now)
		s.mu.Unlock()

		metrics.SetQueueDepth(depth)
		metrics.RecordJobFinished(ev.JobType, string(StatusFailed), 0)
		s.publish(ev, EventFailed, true)
		return nil
	case StatusProcessing:
		job.cancelRequested = true
		cancel := s.running[jobID]
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return nil
	default:
		s.mu.Unlock()
		return ErrJobFinished
	}
}

// Stats returns running counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{
		Processed:     s.processed,
		Failed:        s.failed,
		QueueDepth:    len(s.queue),
		Running:       len(s.running),
		Tracked:       len(s.jobs),
		AvgDurationMs: s.avgDurationMs,
	}
	if total := s.processed + s.failed; total > 0 {
		st.ErrorRate = float64(s.failed) / float64(total)
	}
	return st
}

// Stop rejects further submissions. Queued jobs stay queryable.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

// dispatch is a dequeued job together with the context it runs under.
type dispatch struct {
	job     *Job
	handler Handler
	payload interface{}
	ctx     context.Context
	cancel  context.CancelFunc
}

// next pops the front of the queue, marks it processing and registers its
// cancel func in the same critical section, so Cancel always finds it.
func (s *Scheduler) next(ctx context.Context) (*dispatch, bool) {
	s.mu.Lock()
	if len(s.queue) == 0 {
		s.mu.Unlock()
		return nil, false
	}
	job := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]

	jobCtx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	s.running[job.ID] = cancel

	now := s.now().UTC()
	job.Status = StatusProcessing
	job.StartedAt = &now
	snapshot := *job
	d := &dispatch{
		job:     &snapshot,
		handler: s.handlers[job.JobType],
		payload: job.decoded,
		ctx:     jobCtx,
		cancel:  cancel,
	}
	depth := len(s.queue)
	ev := eventFor(job, now)
	s.mu.Unlock()

	metrics.SetQueueDepth(depth)
	s.publish(ev, EventProcessing, false)
	return d, true
}

// finish records the outcome of a job and publishes the terminal event.
func (s *Scheduler) finish(jobID string, result interface{}, execErr error, duration time.Duration) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		return
	}
	now := s.now().UTC()
	job.CompletedAt = &now
	job.decoded = nil
	delete(s.running, jobID)

	if execErr == nil && job.cancelRequested {
		execErr = &ExecutionError{JobID: jobID, JobType: job.JobType, Err: errCancelled}
	}
	if execErr != nil {
		job.Status = StatusFailed
		job.Error = execErr.Error()
		s.failed++
	} else {
		job.Status = StatusCompleted
		job.Result = result
		job.Progress = 100
		s.processed++
	}
	s.executed++
	ms := float64(duration) / float64(time.Millisecond)
	s.avgDurationMs += (ms - s.avgDurationMs) / float64(s.executed)
	status := job.Status
	ev := eventFor(job, now)
	s.mu.Unlock()

	metrics.RecordJobFinished(ev.JobType, string(status), duration)
	if status == StatusFailed {
		s.publish(ev, EventFailed, true)
		return
	}
	s.publish(ev, EventCompleted, true)
}

// evictExpired drops terminal jobs older than the retention period,
// archiving them first when an archive is set, and prunes idle rate
// limiters. A job whose archive write fails stays tracked until the next
// tick.
func (s *Scheduler) evictExpired(ctx context.Context) int {
	cutoff := s.now().Add(-s.cfg.Retention)
	s.mu.Lock()
	var expired []Job
	for _, job := range s.jobs {
		if job.Status.Terminal() && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			expired = append(expired, *job)
		}
	}
	archive := s.archive
	s.pruneLimitersLocked(time.Now())
	s.mu.Unlock()

	evict := make([]string, 0, len(expired))
	for i := range expired {
		if archive != nil {
			if err := archive.ArchiveJob(ctx, &expired[i]); err != nil {
				s.logger.Warn().Err(err).Str("job_id", expired[i].ID).Msg("Failed to archive expired job")
				continue
			}
		}
		evict = append(evict, expired[i].ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range evict {
		delete(s.jobs, id)
	}
	return len(evict)
}

// pruneLimitersLocked drops limiters whose bucket has refilled. A full
// bucket is indistinguishable from a fresh limiter.
func (s *Scheduler) pruneLimitersLocked(now time.Time) {
	for userID, l := range s.limiters {
		if l.TokensAt(now) >= float64(l.Burst()) {
			delete(s.limiters, userID)
		}
	}
}

func eventFor(job *Job, at time.Time) JobEvent {
	return JobEvent{
		JobID:    job.ID,
		UserID:   job.UserID,
		JobType:  job.JobType,
		Status:   job.Status,
		Progress: job.Progress,
		Result:   job.Result,
		Error:    job.Error,
		At:       at.UTC(),
	}
}

// publish sends ev to the user's jobs topic and, for terminal events, to
// the topic named after the job type.
func (s *Scheduler) publish(ev JobEvent, eventType string, terminal bool) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(broadcast.Topic(ev.UserID, JobsTopic), eventType, ev)
	if terminal {
		s.publisher.Publish(broadcast.Topic(ev.UserID, ev.JobType), eventType, ev)
	}
}
