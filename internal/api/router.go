// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

// Package api is the HTTP adapter of the job scheduler, built on the chi
// router. Caller identity is taken from the X-User-ID header set by the
// authenticating proxy.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/wayfarer/internal/middleware"
)

// RouterConfig selects optional routes.
type RouterConfig struct {
	MetricsEnabled bool
	MetricsPath    string
	Middleware     *ChiMiddlewareConfig
}

// Router wires handlers to routes.
type Router struct {
	config    RouterConfig
	handler   *Handler
	websocket http.Handler
	chi       *ChiMiddleware
}

// NewRouter creates a router. websocket may be nil to disable /api/v1/ws.
func NewRouter(cfg RouterConfig, h *Handler, websocket http.Handler) *Router {
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	return &Router{
		config:    cfg,
		handler:   h,
		websocket: websocket,
		chi:       NewChiMiddleware(cfg.Middleware),
	}
}

// Setup builds the HTTP handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chi.CORS())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	r.Route("/health", func(r chi.Router) {
		r.Use(router.chi.RateLimitHealth())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	if router.config.MetricsEnabled {
		r.Handle(router.config.MetricsPath, promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)
		r.Use(middleware.RequireUser(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid "+middleware.UserIDHeader+" header", nil)
		}))
		r.Use(router.chi.RateLimit())

		if router.websocket != nil {
			r.Handle("/ws", router.websocket)
		}

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Compress(5, "application/json"))

			r.Get("/stats", router.handler.Stats)
			r.Get("/users/{userID}/patterns", router.handler.UserPatterns)

			r.Route("/jobs", func(r chi.Router) {
				r.Post("/", router.handler.SubmitJob)
				r.Get("/", router.handler.ListJobs)
				r.Get("/{id}", router.handler.GetJob)
				r.Delete("/{id}", router.handler.DiscardJob)
				r.Post("/{id}/cancel", router.handler.CancelJob)
			})
		})
	})

	return r
}
