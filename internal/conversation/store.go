// Package conversation provides per-session transcript storage.
package conversation

import (
	"context"
	"time"
)

// Store keeps the ordered turn history for each session. Entries alternate
// user then agent; exactly one exchange is appended per completed request.
// Implementations must serialize appends for the same session so concurrent
// requests cannot lose updates, while keeping different sessions independent.
type Store interface {
	// Recent returns the last n transcript entries for the session in
	// original order. An unknown session yields an empty slice.
	Recent(ctx context.Context, sessionID string, n int) ([]string, error)

	// AppendExchange appends one completed user/agent exchange.
	AppendExchange(ctx context.Context, sessionID, userText, agentText string) error

	// Len returns the number of transcript entries for the session.
	Len(ctx context.Context, sessionID string) (int, error)

	// EvictIdle removes sessions not updated within ttl and reports how
	// many were removed.
	EvictIdle(ctx context.Context, ttl time.Duration) (int, error)

	// Close releases resources.
	Close() error
}
