// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package eventbus

import (
	"fmt"
	"strings"
	"time"
)

// Backend selects where broadcast events are forwarded.
type Backend string

const (
	BackendNone      Backend = "none"
	BackendGoChannel Backend = "gochannel"
	BackendNATS      Backend = "nats"
	BackendEmbedded  Backend = "embedded"
)

// BreakerConfig configures the circuit breaker around the publisher.
type BreakerConfig struct {
	MaxFailures uint32        `koanf:"max_failures"`
	Timeout     time.Duration `koanf:"timeout"`
}

// Config holds event bus settings.
type Config struct {
	Backend          Backend       `koanf:"backend"`
	NATSURL          string        `koanf:"nats_url"`
	SubjectPrefix    string        `koanf:"subject_prefix"`
	StreamName       string        `koanf:"stream_name"`
	StreamMaxAge     time.Duration `koanf:"stream_max_age"`
	EmbeddedHost     string        `koanf:"embedded_host"`
	EmbeddedPort     int           `koanf:"embedded_port"`
	EmbeddedStoreDir string        `koanf:"embedded_store_dir"`
	MaxReconnects    int           `koanf:"max_reconnects"`
	ReconnectWait    time.Duration `koanf:"reconnect_wait"`
	ChannelBuffer    int64         `koanf:"channel_buffer"`
	CircuitBreaker   BreakerConfig `koanf:"circuit_breaker"`
}

// DefaultConfig returns a configuration with forwarding disabled.
func DefaultConfig() *Config {
	return &Config{
		Backend:          BackendNone,
		NATSURL:          "nats://127.0.0.1:4222",
		SubjectPrefix:    "wayfarer.events",
		StreamName:       "WAYFARER_EVENTS",
		StreamMaxAge:     24 * time.Hour,
		EmbeddedHost:     "127.0.0.1",
		EmbeddedPort:     4222,
		EmbeddedStoreDir: "/data/wayfarer/nats",
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
		ChannelBuffer:    64,
		CircuitBreaker: BreakerConfig{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
	}
}

// Enabled reports whether events leave the process broadcaster.
func (c *Config) Enabled() bool {
	return c.Backend != "" && c.Backend != BackendNone
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Backend {
	case "", BackendNone:
		return nil
	case BackendGoChannel:
	case BackendNATS:
		if c.NATSURL == "" {
			return fmt.Errorf("nats_url is required for backend %q", c.Backend)
		}
	case BackendEmbedded:
		if c.EmbeddedPort < -1 || c.EmbeddedPort > 65535 {
			return fmt.Errorf("embedded_port out of range: %d", c.EmbeddedPort)
		}
		if c.EmbeddedStoreDir == "" {
			return fmt.Errorf("embedded_store_dir is required for backend %q", c.Backend)
		}
	default:
		return fmt.Errorf("unknown events backend %q", c.Backend)
	}

	if c.SubjectPrefix == "" || strings.ContainsAny(c.SubjectPrefix, " *>") {
		return fmt.Errorf("invalid subject_prefix %q", c.SubjectPrefix)
	}
	if c.Backend != BackendGoChannel && (c.StreamName == "" || strings.ContainsAny(c.StreamName, " .*>")) {
		return fmt.Errorf("invalid stream_name %q", c.StreamName)
	}
	if c.CircuitBreaker.MaxFailures == 0 {
		return fmt.Errorf("circuit_breaker.max_failures must be positive")
	}
	if c.CircuitBreaker.Timeout <= 0 {
		return fmt.Errorf("circuit_breaker.timeout must be positive")
	}
	return nil
}
