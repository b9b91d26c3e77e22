// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

// Package main is the entry point for the Wayfarer analytics server.
//
// Wayfarer scores travel decisions, compares locations, mines behavioral
// patterns and cognitive biases from a user's travel history, and runs that
// work as prioritized background jobs whose progress is pushed to clients
// over WebSocket.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: defaults, optional YAML file, environment (Koanf v2)
//  2. Store: in-memory or BadgerDB pattern and job archive, LRU profile cache
//  3. Engines: decision matrix, comparison scorer, bias detectors, pattern analyzer
//  4. Broadcaster and job scheduler, with the analytics job handlers registered
//  5. Event bus (optional): Watermill over GoChannel, NATS or embedded NATS JetStream
//  6. HTTP Server: REST API, WebSocket endpoint and Prometheus metrics
//
// All long-running components run under a three-layer suture supervisor tree.
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. The supervisor stops the API
// layer, then the scheduler and broadcaster, then the data layer.
//
// # Example Usage
//
//	export SCHEDULER_WORKERS=4
//	export STORE_BACKEND=badger
//	export BADGER_PATH=/data/wayfarer
//	export EVENTS_BACKEND=embedded
//	./wayfarer
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/wayfarer/internal/analytics"
	"github.com/tomtom215/wayfarer/internal/api"
	"github.com/tomtom215/wayfarer/internal/broadcast"
	"github.com/tomtom215/wayfarer/internal/cache"
	"github.com/tomtom215/wayfarer/internal/comparison"
	"github.com/tomtom215/wayfarer/internal/config"
	"github.com/tomtom215/wayfarer/internal/decision"
	"github.com/tomtom215/wayfarer/internal/detection"
	"github.com/tomtom215/wayfarer/internal/jobs"
	"github.com/tomtom215/wayfarer/internal/logging"
	"github.com/tomtom215/wayfarer/internal/middleware"
	"github.com/tomtom215/wayfarer/internal/patterns"
	"github.com/tomtom215/wayfarer/internal/store"
	"github.com/tomtom215/wayfarer/internal/supervisor"
	"github.com/tomtom215/wayfarer/internal/supervisor/services"
	ws "github.com/tomtom215/wayfarer/internal/websocket"
)

// version is set at build time via -ldflags.
var version = "dev"

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: cfg.Logging.Timestamp,
	})
	logger := logging.Logger()

	logging.Info().
		Str("version", version).
		Str("store", string(cfg.Store.Backend)).
		Str("events", string(cfg.Events.Backend)).
		Int("workers", cfg.Scheduler.Workers).
		Msg("Starting Wayfarer with supervisor tree")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(&cfg.Store, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	decisionEngine, err := decision.NewEngine(&cfg.Decision, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create decision engine")
	}
	biasEngine := detection.NewEngine(logger)
	if err := applyBiasConfig(biasEngine, &cfg.Bias); err != nil {
		logging.Fatal().Err(err).Msg("Failed to configure bias detectors")
	}
	analyzer, err := patterns.NewAnalyzer(&cfg.Patterns, biasEngine, st, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create pattern analyzer")
	}

	broadcaster, err := broadcast.New(&cfg.Broadcast, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create broadcaster")
	}
	scheduler, err := jobs.NewScheduler(&cfg.Scheduler, broadcaster, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create job scheduler")
	}
	scheduler.SetArchive(st)

	if err := analytics.Register(scheduler, analytics.Engines{
		Decision:   decisionEngine,
		Comparison: comparison.NewScorer(logger),
		Patterns:   analyzer,
		Bias:       biasEngine,
	}); err != nil {
		logging.Fatal().Err(err).Msg("Failed to register job handlers")
	}
	logging.Info().Strs("job_types", scheduler.JobTypes()).Msg("Job handlers registered")

	tree := supervisor.NewTree(logging.NewSlogLogger(), cfg.Supervisor)

	if svc, ok := st.(suture.Service); ok {
		tree.AddDataService(svc)
	}

	checks := []api.ReadinessCheck{
		storeCheck(st),
		schedulerCheck(scheduler, cfg.Scheduler.MaxQueueSize),
	}

	events, err := initEvents(ctx, cfg, broadcaster, tree)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize event bus")
	}
	if events != nil {
		defer func() {
			if err := events.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing event bus")
			}
		}()
		checks = append(checks, eventsCheck(events))
	}

	tree.AddProcessingService(broadcaster)
	tree.AddProcessingService(scheduler)

	var profiles api.ProfileSource = analyzer
	if cfg.Cache.Enabled {
		pc := cache.NewProfileCache(analyzer, &cfg.Cache, analytics.JobPatternAnalysis)
		broadcaster.AddSink(pc)
		profiles = pc
	}

	wsHandler := ws.NewHandler(broadcaster, middleware.UserID, cfg.Server.CORSOrigins, logger)
	handler := api.NewHandler(scheduler, profiles, version, checks...)
	router := api.NewRouter(api.RouterConfig{
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsPath:    cfg.Metrics.Path,
		Middleware: &api.ChiMiddlewareConfig{
			CORSAllowedOrigins: cfg.Server.CORSOrigins,
			CORSAllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			CORSAllowedHeaders: []string{"Content-Type", middleware.UserIDHeader, middleware.RequestIDHeader},
			CORSMaxAge:         86400,
			RateLimitRequests:  cfg.Server.RateLimitRequests,
			RateLimitWindow:    cfg.Server.RateLimitWindow,
			RateLimitDisabled:  cfg.Server.RateLimitDisabled,
		},
	}, handler, wsHandler)

	if cfg.Server.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server configured")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	scheduler.Stop()

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}

// biasConfigurer is the part of the bias engine the startup config touches.
type biasConfigurer interface {
	Configure(t detection.BiasType, config json.RawMessage) error
	SetEnabled(t detection.BiasType, enabled bool) error
}

// applyBiasConfig pushes the configured thresholds and enabled flags into
// the bias engine. Zero thresholds keep the detector defaults.
func applyBiasConfig(e biasConfigurer, cfg *config.BiasConfig) error {
	detectors := []struct {
		t   detection.BiasType
		cfg config.DetectorConfig
	}{
		{detection.BiasAnchoring, cfg.Anchoring},
		{detection.BiasRecency, cfg.Recency},
		{detection.BiasConfirmation, cfg.Confirmation},
		{detection.BiasAvailability, cfg.Availability},
	}
	for _, d := range detectors {
		raw, err := json.Marshal(d.cfg)
		if err != nil {
			return fmt.Errorf("marshal %s config: %w", d.t, err)
		}
		if string(raw) != "{}" {
			if err := e.Configure(d.t, raw); err != nil {
				return fmt.Errorf("configure %s: %w", d.t, err)
			}
		}
		if err := e.SetEnabled(d.t, d.cfg.Enabled); err != nil {
			return fmt.Errorf("enable %s: %w", d.t, err)
		}
	}
	return nil
}
