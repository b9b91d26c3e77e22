// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package jobs

import (
	"fmt"
	"time"
)

// Config holds scheduler settings.
type Config struct {
	// Workers is the number of concurrent workers. One worker gives strictly
	// sequential execution.
	Workers int `koanf:"workers"`

	// TickInterval is how often idle workers poll the queue.
	TickInterval time.Duration `koanf:"tick_interval"`

	// JobTimeout bounds a single job execution.
	JobTimeout time.Duration `koanf:"job_timeout"`

	// MaxQueueSize is the number of pending jobs accepted before Submit
	// returns ErrQueueFull.
	MaxQueueSize int `koanf:"max_queue_size"`

	// SubmitRatePerUser is the sustained submissions per second allowed for
	// one user. Zero disables rate limiting.
	SubmitRatePerUser float64 `koanf:"submit_rate_per_user"`
	SubmitBurst       int     `koanf:"submit_burst"`

	// Retention is how long terminal jobs stay queryable before eviction.
	Retention time.Duration `koanf:"retention"`
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() *Config {
	return &Config{
		Workers:           1,
		TickInterval:      100 * time.Millisecond,
		JobTimeout:        30 * time.Second,
		MaxQueueSize:      1000,
		SubmitRatePerUser: 10,
		SubmitBurst:       20,
		Retention:         15 * time.Minute,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive")
	}
	if c.JobTimeout <= 0 {
		return fmt.Errorf("job_timeout must be positive")
	}
	if c.MaxQueueSize < 1 {
		return fmt.Errorf("max_queue_size must be at least 1, got %d", c.MaxQueueSize)
	}
	if c.SubmitRatePerUser < 0 {
		return fmt.Errorf("submit_rate_per_user must not be negative")
	}
	if c.SubmitRatePerUser > 0 && c.SubmitBurst < 1 {
		return fmt.Errorf("submit_burst must be at least 1 when rate limiting is enabled")
	}
	if c.Retention <= 0 {
		return fmt.Errorf("retention must be positive")
	}
	return nil
}
