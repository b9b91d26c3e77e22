// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package jobs

import (
	"context"
)

type reporterKey struct{}

type reporter struct {
	s     *Scheduler
	jobID string
}

func withReporter(ctx context.Context, r *reporter) context.Context {
	return context.WithValue(ctx, reporterKey{}, r)
}

// Progress reports the completion percentage of the job running under ctx.
// Values are clamped to 0..100 and only increases are recorded. Outside a
// job it does nothing.
func Progress(ctx context.Context, pct int) {
	r, ok := ctx.Value(reporterKey{}).(*reporter)
	if !ok || r == nil {
		return
	}
	r.s.setProgress(r.jobID, pct)
}

func (s *Scheduler) setProgress(jobID string, pct int) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok || job.Status != StatusProcessing || pct <= job.Progress {
		s.mu.Unlock()
		return
	}
	job.Progress = pct
	ev := eventFor(job, s.now())
	s.mu.Unlock()

	s.publish(ev, EventProgress, false)
}
