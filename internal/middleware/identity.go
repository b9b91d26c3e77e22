// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package middleware

import (
	"net/http"
	"strings"

	"github.com/tomtom215/wayfarer/internal/logging"
)

// UserIDHeader is set by the authenticating proxy in front of the service.
const UserIDHeader = "X-User-ID"

const maxUserIDLength = 128

// UserID returns the caller identity of r, or "" when absent or malformed.
func UserID(r *http.Request) string {
	if id := logging.UserIDFromContext(r.Context()); id != "" {
		return id
	}
	id := strings.TrimSpace(r.Header.Get(UserIDHeader))
	if id == "" || len(id) > maxUserIDLength || strings.ContainsAny(id, ": \t") {
		return ""
	}
	return id
}

// RequireUser rejects requests without a valid caller identity using
// onMissing and stores the identity in the request context otherwise.
func RequireUser(onMissing http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := UserID(r)
			if id == "" {
				onMissing(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(logging.ContextWithUserID(r.Context(), id)))
		})
	}
}
