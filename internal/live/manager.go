// Package live provides the WebSocket-based conversational voice channel.
package live

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// ErrTooManySessions is returned when the concurrent live-session cap is hit.
var ErrTooManySessions = errors.New("too many live sessions")

// SessionManager tracks active live WebSocket connections and enforces a
// concurrency cap. One connection per conversation session; a newer
// connection replaces an older one for the same session.
type SessionManager struct {
	mu     sync.RWMutex
	max    int
	active map[string]*websocket.Conn
}

// NewSessionManager creates a manager allowing up to max concurrent
// sessions. A non-positive max means unlimited.
func NewSessionManager(max int) *SessionManager {
	return &SessionManager{
		max:    max,
		active: make(map[string]*websocket.Conn),
	}
}

// Register adds a connection for a session, replacing any existing one.
func (m *SessionManager) Register(sessionID string, conn *websocket.Conn) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, exists := m.active[sessionID]; exists && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "session replaced")
		delete(m.active, sessionID)
	}

	if m.max > 0 && len(m.active) >= m.max {
		return ErrTooManySessions
	}

	m.active[sessionID] = conn
	slog.Info("live session registered", "session_id", sessionID, "active", len(m.active))
	return nil
}

// Unregister removes a connection if it is still the current one for the
// session.
func (m *SessionManager) Unregister(sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, exists := m.active[sessionID]; exists && current == conn {
		delete(m.active, sessionID)
		slog.Info("live session unregistered", "session_id", sessionID, "active", len(m.active))
	}
}

// ActiveCount returns the number of connected live sessions.
func (m *SessionManager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}

// CloseAll terminates every active session, for shutdown.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for sid, conn := range m.active {
		_ = conn.Close(websocket.StatusNormalClosure, "server shutting down")
		slog.Info("live session closed", "session_id", sid)
	}
	m.active = make(map[string]*websocket.Conn)
}
