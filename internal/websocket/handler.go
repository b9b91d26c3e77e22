// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package websocket

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// IdentityFunc returns the authenticated user of a request, or "".
type IdentityFunc func(r *http.Request) string

// Handler upgrades HTTP requests to websocket clients.
type Handler struct {
	pubsub   PubSub
	identify IdentityFunc
	origins  []string
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewHandler creates a handler. An origin of "*" allows any origin;
// requests without an Origin header are rejected.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHandler(ps PubSub, identify IdentityFunc, origins []string, logger zerolog.Logger) *Handler {
	h := &Handler{
		pubsub:   ps,
		identify: identify,
		origins:  origins,
		logger:   logger.With().Str("component", "websocket").Logger(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      h.checkOrigin,
	}
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := h.identify(r)
	if userID == "" {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	newClient(conn, userID, h.pubsub, h.logger).Start()
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		h.logger.Warn().Msg("Websocket connection rejected: missing Origin header")
		return false
	}
	for _, allowed := range h.origins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	h.logger.Warn().Str("origin", origin).Msg("Websocket connection rejected: origin not allowed")
	return false
}
