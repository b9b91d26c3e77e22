// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

// Package store provides the persistence collaborators: accepted behavior
// patterns (upserted by user, type and category) and archived jobs. The
// memory backend keeps everything in process; the badger backend persists
// to disk.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/wayfarer/internal/jobs"
	"github.com/tomtom215/wayfarer/internal/patterns"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// jobNotFound reports a missing archived job. It matches both ErrNotFound
// and jobs.ErrJobNotFound so the scheduler can tell a miss from a failure.
func jobNotFound(id string) error {
	return fmt.Errorf("%w: %w: %s", ErrNotFound, jobs.ErrJobNotFound, id)
}

// Backend selects the storage implementation.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendBadger Backend = "badger"
)

// Config selects and configures the backend.
type Config struct {
	Backend    Backend       `koanf:"backend"`
	BadgerPath string        `koanf:"badger_path"`
	GCInterval time.Duration `koanf:"gc_interval"`
}

// DefaultConfig returns the in-memory configuration.
func DefaultConfig() *Config {
	return &Config{
		Backend:    BackendMemory,
		BadgerPath: "/data/wayfarer",
		GCInterval: 10 * time.Minute,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
		return nil
	case BackendBadger:
		if c.BadgerPath == "" {
			return errors.New("badger_path is required for the badger backend")
		}
		if c.GCInterval <= 0 {
			return errors.New("gc_interval must be positive")
		}
		return nil
	default:
		return fmt.Errorf("unknown store backend %q", c.Backend)
	}
}

// Store is implemented by every backend.
type Store interface {
	patterns.Store
	jobs.JobArchive

	// Close releases the backend.
	Close() error
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*Badger)(nil)
)

// Open creates the configured backend.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func Open(cfg *Config, logger zerolog.Logger) (Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid store config: %w", err)
	}
	if cfg.Backend == BackendBadger {
		return OpenBadger(cfg.BadgerPath, cfg.GCInterval, logger)
	}
	return NewMemory(), nil
}
