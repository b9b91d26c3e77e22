// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

// Package config loads layered configuration with koanf.
//
// Loading order, later layers overriding earlier ones:
//  1. Defaults: each component's DefaultConfig
//  2. Config file: optional YAML (CONFIG_PATH, ./config.yaml, /etc/wayfarer/config.yaml)
//  3. Environment variables: an explicit mapping table, see envMappings
//
// Config is immutable after Load and safe for concurrent reads.
package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/wayfarer/internal/broadcast"
	"github.com/tomtom215/wayfarer/internal/cache"
	"github.com/tomtom215/wayfarer/internal/decision"
	"github.com/tomtom215/wayfarer/internal/eventbus"
	"github.com/tomtom215/wayfarer/internal/jobs"
	"github.com/tomtom215/wayfarer/internal/patterns"
	"github.com/tomtom215/wayfarer/internal/store"
	"github.com/tomtom215/wayfarer/internal/supervisor"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig          `koanf:"server"`
	Logging    LoggingConfig         `koanf:"logging"`
	Scheduler  jobs.Config           `koanf:"scheduler"`
	Broadcast  broadcast.Config      `koanf:"broadcast"`
	Decision   decision.Config       `koanf:"decision"`
	Patterns   patterns.Config       `koanf:"patterns"`
	Bias       BiasConfig            `koanf:"bias"`
	Store      store.Config          `koanf:"store"`
	Cache      cache.Config          `koanf:"cache"`
	Events     eventbus.Config       `koanf:"events"`
	Metrics    MetricsConfig         `koanf:"metrics"`
	Supervisor supervisor.TreeConfig `koanf:"supervisor"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level     string `koanf:"level"`
	Format    string `koanf:"format"`
	Caller    bool   `koanf:"caller"`
	Timestamp bool   `koanf:"timestamp"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// DetectorConfig tunes one bias detector. Zero values keep the detector's
// own default.
type DetectorConfig struct {
	Enabled      bool `koanf:"enabled" json:"-"`
	MinSamples   int  `koanf:"min_samples" json:"min_samples,omitempty"`
	RecentWindow int  `koanf:"recent_window" json:"recent_window,omitempty"`
}

// BiasConfig configures the four bias detectors.
type BiasConfig struct {
	Anchoring    DetectorConfig `koanf:"anchoring"`
	Recency      DetectorConfig `koanf:"recency"`
	Confirmation DetectorConfig `koanf:"confirmation"`
	Availability DetectorConfig `koanf:"availability"`
}

// defaultConfig returns the built-in defaults.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              3857,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "json",
			Timestamp: true,
		},
		Scheduler: *jobs.DefaultConfig(),
		Broadcast: *broadcast.DefaultConfig(),
		Decision:  *decision.DefaultConfig(),
		Patterns:  *patterns.DefaultConfig(),
		Bias: BiasConfig{
			Anchoring:    DetectorConfig{Enabled: true},
			Recency:      DetectorConfig{Enabled: true},
			Confirmation: DetectorConfig{Enabled: true},
			Availability: DetectorConfig{Enabled: true},
		},
		Store:      *store.DefaultConfig(),
		Cache:      *cache.DefaultConfig(),
		Events:     *eventbus.DefaultConfig(),
		Metrics:    MetricsConfig{Enabled: true, Path: "/metrics"},
		Supervisor: supervisor.DefaultTreeConfig(),
	}
}
