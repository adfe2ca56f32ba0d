package assistant

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/careline/internal/session"
)

// maxAudioUploadBytes caps the in-memory size of one voice recording.
const maxAudioUploadBytes = 25 << 20

// Handler exposes the pipeline over HTTP.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the audio and text entry points. Both require the
// session-id header, enforced by the session middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(session.Middleware)
		r.Post("/talk", h.handleTalk)
		r.Post("/text", h.handleText)
	})
}

// handleTalk accepts a multipart audio upload in the "file" field, runs the
// full pipeline and streams synthesized speech back.
func (h *Handler) handleTalk(w http.ResponseWriter, r *http.Request) {
	sessionID := session.IDFromContext(r.Context())

	if err := r.ParseMultipartForm(maxAudioUploadBytes); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, maxAudioUploadBytes))
	if err != nil {
		http.Error(w, "Failed to read audio file", http.StatusBadRequest)
		return
	}

	result, err := h.svc.ProcessAudio(r.Context(), audio, sessionID, "voice")
	if err != nil {
		h.writeError(w, sessionID, err)
		return
	}
	h.streamAudio(w, sessionID, result)
}

// handleText accepts a "query" URL parameter and skips transcription.
func (h *Handler) handleText(w http.ResponseWriter, r *http.Request) {
	sessionID := session.IDFromContext(r.Context())

	query := r.URL.Query().Get("query")
	if query == "" {
		http.Error(w, "Missing query parameter", http.StatusBadRequest)
		return
	}

	result, err := h.svc.ProcessQuery(r.Context(), query, sessionID, "text")
	if err != nil {
		h.writeError(w, sessionID, err)
		return
	}
	h.streamAudio(w, sessionID, result)
}

func (h *Handler) writeError(w http.ResponseWriter, sessionID string, err error) {
	if errors.Is(err, ErrEmptyAudio) {
		http.Error(w, "Empty audio file", http.StatusBadRequest)
		return
	}
	slog.Error("request pipeline failed", "session_id", sessionID, "error", err)
	http.Error(w, fmt.Sprintf("Internal Server Error: %s", err), http.StatusInternalServerError)
}

// streamAudio relays synthesized chunks as they arrive. Once the first byte
// is written the status is committed, so a mid-stream failure can only be
// logged and the connection cut short.
func (h *Handler) streamAudio(w http.ResponseWriter, sessionID string, result *Result) {
	defer result.Audio.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", "inline; filename=response.mp3")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	for chunk := range result.Audio.Chunks() {
		if _, err := w.Write(chunk); err != nil {
			slog.Warn("client disconnected during audio stream", "session_id", sessionID, "error", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	if err := result.Audio.Err(); err != nil {
		slog.Error("audio stream ended with error", "session_id", sessionID, "error", err)
	}
}
