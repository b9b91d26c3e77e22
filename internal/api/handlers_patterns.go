// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/wayfarer/internal/middleware"
	"github.com/tomtom215/wayfarer/internal/patterns"
)

// UserPatterns returns the stored behavioral profile and recommendations
// of the caller.
func (h *Handler) UserPatterns(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID != middleware.UserID(r) {
		respondError(w, r, http.StatusForbidden, "FORBIDDEN", "Patterns of other users are not accessible", nil)
		return
	}
	if h.profiles == nil {
		respondErr(w, r, patterns.ErrNoStore)
		return
	}

	profile, err := h.profiles.Profile(r.Context(), userID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, map[string]interface{}{
		"profile":         profile,
		"recommendations": patterns.Recommend(profile),
	})
}
