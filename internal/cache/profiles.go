// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/wayfarer/internal/broadcast"
	"github.com/tomtom215/wayfarer/internal/jobs"
	"github.com/tomtom215/wayfarer/internal/metrics"
	"github.com/tomtom215/wayfarer/internal/patterns"
)

// Config sizes the profile cache.
type Config struct {
	Enabled         bool          `koanf:"enabled"`
	ProfileCapacity int           `koanf:"profile_capacity"`
	ProfileTTL      time.Duration `koanf:"profile_ttl"`
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		ProfileCapacity: 1000,
		ProfileTTL:      time.Minute,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.ProfileCapacity < 1 {
		return fmt.Errorf("profile_capacity must be at least 1, got %d", c.ProfileCapacity)
	}
	if c.ProfileTTL <= 0 {
		return errors.New("profile_ttl must be positive")
	}
	return nil
}

// ProfileSource loads a user's stored profile.
type ProfileSource interface {
	Profile(ctx context.Context, userID string) (*patterns.Profile, error)
}

// ProfileCache serves profiles from an LRU in front of a ProfileSource.
// It is also a broadcast.Sink: a completed job of one of the invalidating
// types drops the owner's entry so the next read sees the new patterns.
type ProfileCache struct {
	src          ProfileSource
	lru          *LRU[*patterns.Profile]
	invalidateOn map[string]struct{}

	// gen counts invalidations. A load that started before the latest
	// invalidation is returned to its caller but not cached.
	mu  sync.Mutex
	gen uint64
}

var _ broadcast.Sink = (*ProfileCache)(nil)

// NewProfileCache wraps src. invalidateOn lists the job types whose
// completion changes stored patterns.
func NewProfileCache(src ProfileSource, cfg *Config, invalidateOn ...string) *ProfileCache {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	set := make(map[string]struct{}, len(invalidateOn))
	for _, t := range invalidateOn {
		set[t] = struct{}{}
	}
	return &ProfileCache{
		src:          src,
		lru:          NewLRU[*patterns.Profile](cfg.ProfileCapacity, cfg.ProfileTTL),
		invalidateOn: set,
	}
}

// Profile returns the cached profile or loads it. Errors are not cached.
func (c *ProfileCache) Profile(ctx context.Context, userID string) (*patterns.Profile, error) {
	if p, ok := c.lru.Get(userID); ok {
		metrics.RecordCacheLookup("profile", true)
		return p, nil
	}
	metrics.RecordCacheLookup("profile", false)

	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	p, err := c.src.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.gen == gen {
		c.lru.Add(userID, p)
	}
	c.mu.Unlock()
	return p, nil
}

// Invalidate drops the cached profile of userID and keeps loads already in
// flight from storing what they read.
func (c *ProfileCache) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.lru.Remove(userID)
}

// Forward implements broadcast.Sink.
func (c *ProfileCache) Forward(_ context.Context, ev broadcast.Event) error {
	if ev.Type != jobs.EventCompleted {
		return nil
	}
	userID, name := broadcast.SplitTopic(ev.Topic)
	if _, ok := c.invalidateOn[name]; ok && userID != "" {
		c.Invalidate(userID)
	}
	return nil
}

// Len returns the number of cached profiles.
func (c *ProfileCache) Len() int {
	return c.lru.Len()
}
