// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks every section and returns all failures joined.
func (c *Config) Validate() error {
	return errors.Join(
		c.validateServer(),
		c.validateLogging(),
		section("scheduler", c.Scheduler.Validate()),
		section("broadcast", c.Broadcast.Validate()),
		section("decision", c.Decision.Validate()),
		section("patterns", c.Patterns.Validate()),
		c.validateBias(),
		section("store", c.Store.Validate()),
		section("cache", c.Cache.Validate()),
		section("events", c.Events.Validate()),
		c.validateMetrics(),
	)
}

func section(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func (c *Config) validateServer() error {
	s := c.Server
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("server: port must be between 1 and 65535, got %d", s.Port)
	}
	if s.ReadTimeout <= 0 || s.WriteTimeout <= 0 {
		return errors.New("server: read_timeout and write_timeout must be positive")
	}
	if !s.RateLimitDisabled && (s.RateLimitRequests < 1 || s.RateLimitWindow <= 0) {
		return errors.New("server: rate_limit_requests and rate_limit_window must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("logging: invalid level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging: format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateBias() error {
	detectors := map[string]DetectorConfig{
		"anchoring":    c.Bias.Anchoring,
		"recency":      c.Bias.Recency,
		"confirmation": c.Bias.Confirmation,
		"availability": c.Bias.Availability,
	}
	var errs []error
	for name, d := range detectors {
		if d.MinSamples < 0 {
			errs = append(errs, fmt.Errorf("bias.%s: min_samples must not be negative", name))
		}
		if d.RecentWindow < 0 {
			errs = append(errs, fmt.Errorf("bias.%s: recent_window must not be negative", name))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) validateMetrics() error {
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics: path must start with /, got %q", c.Metrics.Path)
	}
	return nil
}
