// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/wayfarer/config.yaml",
	"/etc/wayfarer/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// envMappings maps environment variables (lower-cased) to config keys.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_idle_timeout":     "server.idle_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"rate_limit_requests":   "server.rate_limit_requests",
	"rate_limit_window":     "server.rate_limit_window",
	"disable_rate_limit":    "server.rate_limit_disabled",
	"cors_origins":          "server.cors_origins",

	"log_level":     "logging.level",
	"log_format":    "logging.format",
	"log_caller":    "logging.caller",
	"log_timestamp": "logging.timestamp",

	"scheduler_workers":              "scheduler.workers",
	"scheduler_tick_interval":        "scheduler.tick_interval",
	"scheduler_job_timeout":          "scheduler.job_timeout",
	"scheduler_max_queue_size":       "scheduler.max_queue_size",
	"scheduler_submit_rate_per_user": "scheduler.submit_rate_per_user",
	"scheduler_submit_burst":         "scheduler.submit_burst",
	"scheduler_retention":            "scheduler.retention",

	"broadcast_buffer_size":       "broadcast.buffer_size",
	"broadcast_subscriber_buffer": "broadcast.subscriber_buffer",

	"decision_sensitivity_delta":  "decision.sensitivity_delta",
	"decision_weight_tolerance":   "decision.weight_tolerance",
	"decision_clear_margin":       "decision.clear_margin",
	"decision_strength_threshold": "decision.strength_threshold",

	"patterns_min_data_points": "patterns.min_data_points",
	"patterns_min_confidence":  "patterns.min_confidence",

	"bias_anchoring_enabled":        "bias.anchoring.enabled",
	"bias_anchoring_min_samples":    "bias.anchoring.min_samples",
	"bias_recency_enabled":          "bias.recency.enabled",
	"bias_recency_min_samples":      "bias.recency.min_samples",
	"bias_recency_window":           "bias.recency.recent_window",
	"bias_confirmation_enabled":     "bias.confirmation.enabled",
	"bias_confirmation_min_samples": "bias.confirmation.min_samples",
	"bias_availability_enabled":     "bias.availability.enabled",
	"bias_availability_min_samples": "bias.availability.min_samples",
	"bias_availability_window":      "bias.availability.recent_window",

	"store_backend":     "store.backend",
	"badger_path":       "store.badger_path",
	"store_gc_interval": "store.gc_interval",

	"cache_enabled":          "cache.enabled",
	"cache_profile_capacity": "cache.profile_capacity",
	"cache_profile_ttl":      "cache.profile_ttl",

	"events_backend":              "events.backend",
	"events_subject_prefix":       "events.subject_prefix",
	"events_stream_name":          "events.stream_name",
	"nats_url":                    "events.nats_url",
	"nats_embedded_host":          "events.embedded_host",
	"nats_embedded_port":          "events.embedded_port",
	"nats_store_dir":              "events.embedded_store_dir",
	"events_breaker_max_failures": "events.circuit_breaker.max_failures",
	"events_breaker_timeout":      "events.circuit_breaker.timeout",

	"metrics_enabled": "metrics.enabled",
	"metrics_path":    "metrics.path",

	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// Load builds the configuration from defaults, the optional config file and
// the environment, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
