// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package jobs

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/wayfarer/internal/metrics"
)

// Serve runs the worker pool until ctx is cancelled. A panic that escapes
// a worker is returned as an error so a supervisor can restart the pool.
// It implements suture.Service.
func (s *Scheduler) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.logger.Info().
		Int("workers", s.cfg.Workers).
		Dur("tick_interval", s.cfg.TickInterval).
		Dur("job_timeout", s.cfg.JobTimeout).
		Msg("Starting job workers")

	errCh := make(chan error, s.cfg.Workers)
	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			errCh <- s.runWorker(ctx, id)
		}(i)
	}

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case err = <-errCh:
	}
	cancel()
	wg.Wait()

	s.logger.Info().Msg("Job workers stopped")
	return err
}

func (s *Scheduler) String() string {
	return "job-scheduler"
}

func (s *Scheduler) runWorker(ctx context.Context, id int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordWorkerPanic()
			s.logger.Error().
				Int("worker", id).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Worker loop panicked")
			err = fmt.Errorf("worker %d panicked: %v", id, r)
		}
	}()

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if id == 0 {
				if n := s.evictExpired(ctx); n > 0 {
					s.logger.Debug().Int("evicted", n).Msg("Evicted expired jobs")
				}
			}
		case <-s.wake:
		}
		s.drain(ctx)
	}
}

// drain executes queued jobs until the queue is empty or ctx is done.
func (s *Scheduler) drain(ctx context.Context) {
	for ctx.Err() == nil {
		d, ok := s.next(ctx)
		if !ok {
			return
		}
		s.execute(ctx, d)
	}
}

type outcome struct {
	result interface{}
	err    error
}

// execute runs one job under the job timeout. A handler that does not
// return before the deadline is abandoned and the job fails. A job
// cancelled between dequeue and start never reaches its handler.
func (s *Scheduler) execute(ctx context.Context, d *dispatch) {
	start := time.Now()
	job := d.job
	defer d.cancel()
	metrics.TrackRunningJob(true)
	defer metrics.TrackRunningJob(false)

	jobCtx := withReporter(d.ctx, &reporter{s: s, jobID: job.ID})
	logger := s.logger.With().Str("job_id", job.ID).Str("job_type", job.JobType).Logger()

	var o outcome
	if err := jobCtx.Err(); err != nil {
		o = outcome{err: err}
	} else {
		o = s.run(jobCtx, logger, d)
	}

	if o.err != nil {
		o.err = s.classify(ctx, jobCtx, job, o.err)
		logger.Warn().Err(o.err).Dur("duration", time.Since(start)).Msg("Job failed")
	} else {
		logger.Debug().Dur("duration", time.Since(start)).Msg("Job completed")
	}
	s.finish(job.ID, o.result, o.err, time.Since(start))
}

// run invokes the handler on its own goroutine and waits for it or for
// the job context, whichever ends first.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func (s *Scheduler) run(jobCtx context.Context, logger zerolog.Logger, d *dispatch) outcome {
	job := d.job
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				metrics.RecordWorkerPanic()
				logger.Error().Interface("panic", r).Str("stack", string(debug.Stack())).Msg("Job handler panicked")
				done <- outcome{err: &ExecutionError{JobID: job.ID, JobType: job.JobType, Err: fmt.Errorf("%v", r), Panic: true}}
			}
		}()
		res, err := d.handler.Run(jobCtx, job, d.payload)
		done <- outcome{result: res, err: err}
	}()

	select {
	case o := <-done:
		return o
	case <-jobCtx.Done():
		return outcome{err: jobCtx.Err()}
	}
}

// classify wraps a handler failure in an ExecutionError with a reason that
// distinguishes timeouts, cancellations and shutdown.
func (s *Scheduler) classify(parent, jobCtx context.Context, job *Job, err error) error {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr
	}

	s.mu.Lock()
	cancelled := false
	if j, ok := s.jobs[job.ID]; ok {
		cancelled = j.cancelRequested
	}
	s.mu.Unlock()

	switch {
	case cancelled:
		err = errCancelled
	case parent.Err() != nil:
		err = ErrSchedulerStopped
	case errors.Is(jobCtx.Err(), context.DeadlineExceeded):
		err = fmt.Errorf("timed out after %s: %w", s.cfg.JobTimeout, context.DeadlineExceeded)
	}
	return &ExecutionError{JobID: job.ID, JobType: job.JobType, Err: err}
}
