// Package session carries the caller-supplied conversation session identifier
// through the request context.
package session

import (
	"context"
	"net/http"
	"regexp"
	"strings"
)

// HeaderName is the request header carrying the session identifier.
const HeaderName = "session-id"

type contextKey int

const sessionIDKey contextKey = iota

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// IDFromContext extracts the session ID from the request context.
func IDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

// WithID returns a context carrying the given session ID.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// Valid reports whether the identifier is usable as a partition key.
func Valid(id string) bool {
	return sessionIDPattern.MatchString(id)
}

// Middleware requires a valid session-id header on every request and injects
// it into the context. Requests without one are rejected before any backend
// work happens.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderName))
		if id == "" {
			http.Error(w, "Missing session-id header", http.StatusBadRequest)
			return
		}
		if !Valid(id) {
			http.Error(w, "Invalid session-id header", http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
	})
}
