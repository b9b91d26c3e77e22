// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package store

import (
	"context"
	"sort"
	"sync"

	"github.com/tomtom215/wayfarer/internal/jobs"
	"github.com/tomtom215/wayfarer/internal/patterns"
)

// Memory keeps patterns and archived jobs in maps. Contents are lost on
// restart.
type Memory struct {
	mu       sync.RWMutex
	patterns map[string]patterns.BehaviorPattern
	jobs     map[string]jobs.Job
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		patterns: make(map[string]patterns.BehaviorPattern),
		jobs:     make(map[string]jobs.Job),
	}
}

// UpsertPattern merges p into the stored pattern with the same key.
func (m *Memory) UpsertPattern(ctx context.Context, p *patterns.BehaviorPattern) (*patterns.BehaviorPattern, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var existing *patterns.BehaviorPattern
	if cur, ok := m.patterns[p.Key()]; ok {
		existing = &cur
	}
	merged := patterns.MergePattern(existing, p)
	m.patterns[p.Key()] = merged
	return &merged, nil
}

// ListPatterns returns the patterns of userID ordered by key.
func (m *Memory) ListPatterns(ctx context.Context, userID string) ([]patterns.BehaviorPattern, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]patterns.BehaviorPattern, 0)
	for _, p := range m.patterns {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

// ArchiveJob stores a copy of job.
func (m *Memory) ArchiveJob(ctx context.Context, job *jobs.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = *job
	return nil
}

// ArchivedJob returns an archived job.
func (m *Memory) ArchivedJob(_ context.Context, id string) (*jobs.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, jobNotFound(id)
	}
	return &job, nil
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}
