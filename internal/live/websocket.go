package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coder/websocket"

	"github.com/ashureev/careline/internal/assistant"
	"github.com/ashureev/careline/internal/session"
)

// WebSocketHandler runs multi-turn voice conversations over one connection.
// Text frames carry JSON control messages; binary frames carry audio. For
// each user turn the server sends a reply message, the MP3 audio as binary
// chunks, then a done marker.
type WebSocketHandler struct {
	svc           *assistant.Service
	sm            *SessionManager
	allowedOrigin string
}

func NewWebSocketHandler(svc *assistant.Service, sm *SessionManager, allowedOrigin string) *WebSocketHandler {
	return &WebSocketHandler{
		svc:           svc,
		sm:            sm,
		allowedOrigin: allowedOrigin,
	}
}

// maxAudioFrameBytes caps one inbound frame. A binary frame carries a
// complete voice utterance, so the limit matches the HTTP upload cap rather
// than the library's 32KiB default.
const maxAudioFrameBytes = 25 << 20

// wsMessage represents a JSON control frame in either direction.
type wsMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade. Browsers cannot
// set headers on WebSocket requests, so the session ID travels as a query
// parameter with the header as fallback.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		sessionID = strings.TrimSpace(r.Header.Get(session.HeaderName))
	}
	if !session.Valid(sessionID) {
		http.Error(w, "Missing or invalid session identifier", http.StatusBadRequest)
		return
	}
	slog.Info("live connection request", "session_id", sessionID, "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("failed to accept websocket", "error", err, "session_id", sessionID)
		return
	}
	ws.SetReadLimit(maxAudioFrameBytes)
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()

	if err := h.sm.Register(sessionID, ws); err != nil {
		_ = h.writeJSON(ws, wsMessage{Type: "error", Content: "server is at capacity, try again later"})
		_ = ws.Close(websocket.StatusTryAgainLater, "too many sessions")
		return
	}
	defer h.sm.Unregister(sessionID, ws)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.readLoop(ctx, ws, sessionID)
	slog.Info("live session ended", "session_id", sessionID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("live origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, sessionID string) {
	for {
		msgType, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("websocket closed by client", "session_id", sessionID)
			} else {
				slog.Warn("websocket read error", "error", err, "session_id", sessionID)
			}
			return
		}

		// Binary frames are raw audio for one turn.
		if msgType == websocket.MessageBinary {
			h.handleTurn(ctx, ws, sessionID, func() (*assistant.Result, error) {
				return h.svc.ProcessAudio(ctx, message, sessionID, "live")
			})
			continue
		}

		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			_ = h.writeJSON(ws, wsMessage{Type: "error", Content: "malformed message"})
			continue
		}

		switch msg.Type {
		case "query":
			if strings.TrimSpace(msg.Content) == "" {
				_ = h.writeJSON(ws, wsMessage{Type: "error", Content: "empty query"})
				continue
			}
			h.handleTurn(ctx, ws, sessionID, func() (*assistant.Result, error) {
				return h.svc.ProcessQuery(ctx, msg.Content, sessionID, "live")
			})
		case "ping":
			if err := h.writeJSON(ws, wsMessage{Type: "pong"}); err != nil {
				slog.Debug("failed to send pong", "error", err)
			}
		case "close":
			return
		default:
			_ = h.writeJSON(ws, wsMessage{Type: "error", Content: "unknown message type"})
		}
	}
}

// handleTurn runs one pipeline pass and relays the reply text, the audio
// chunks and a done marker. Pipeline failures are reported in-band so the
// connection survives for the next turn.
func (h *WebSocketHandler) handleTurn(ctx context.Context, ws *websocket.Conn, sessionID string, run func() (*assistant.Result, error)) {
	result, err := run()
	if err != nil {
		slog.Error("live turn failed", "session_id", sessionID, "error", err)
		_ = h.writeJSON(ws, wsMessage{Type: "error", Content: err.Error()})
		return
	}
	defer result.Audio.Close()

	if err := h.writeJSON(ws, wsMessage{Type: "reply", Content: result.Text}); err != nil {
		slog.Warn("failed to send reply text", "error", err, "session_id", sessionID)
		return
	}

	for chunk := range result.Audio.Chunks() {
		if err := ws.Write(ctx, websocket.MessageBinary, chunk); err != nil {
			slog.Warn("failed to send audio chunk", "error", err, "session_id", sessionID)
			return
		}
	}
	if err := result.Audio.Err(); err != nil {
		slog.Error("audio stream ended with error", "session_id", sessionID, "error", err)
		_ = h.writeJSON(ws, wsMessage{Type: "error", Content: "audio stream interrupted"})
		return
	}

	if err := h.writeJSON(ws, wsMessage{Type: "done"}); err != nil {
		slog.Debug("failed to send done marker", "error", err, "session_id", sessionID)
	}
}

func (h *WebSocketHandler) writeJSON(ws *websocket.Conn, v wsMessage) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.Write(context.Background(), websocket.MessageText, data)
}
