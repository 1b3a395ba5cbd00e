// ABOUTME: HTTP surface for the bridge: the webhook endpoint and liveness checks.
// ABOUTME: Malformed JSON gets a 400; everything else is acknowledged with 200.

package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/2389/familiar-bridge/internal/chatevent"
)

// maxBodySize bounds inbound webhook payloads. Chat events are small;
// anything past this is not a chat event.
const maxBodySize = 1 << 20

// EventHandler is what the HTTP layer needs from the orchestration service.
type EventHandler interface {
	HandleEvent(ctx context.Context, m *chatevent.Message) *chatevent.Reply
}

// Handler serves the webhook and health endpoints.
type Handler struct {
	service EventHandler
	logger  *slog.Logger
	version string
}

// NewHandler creates the HTTP handler set.
func NewHandler(service EventHandler, version string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service: service,
		logger:  logger.With("component", "http"),
		version: version,
	}
}

// Register attaches the bridge routes to a mux. The webhook middleware
// (auth) wraps only the event endpoint; health stays open for probes.
func (h *Handler) Register(mux *http.ServeMux, webhook func(http.Handler) http.Handler) {
	var events http.Handler = http.HandlerFunc(h.handleEvent)
	if webhook != nil {
		events = webhook(events)
	}
	mux.Handle("POST /{$}", events)
	mux.HandleFunc("GET /{$}", h.handleHealth)
	mux.HandleFunc("GET /health", h.handleHealth)
}

// handleEvent receives a chat event and responds with the reply payload,
// an empty acknowledgement, or 400 for bodies that are not JSON.
func (h *Handler) handleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		h.logger.Warn("reading webhook body failed", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	m, err := chatevent.Parse(body)
	switch {
	case errors.Is(err, chatevent.ErrInvalidJSON):
		h.logger.Warn("malformed webhook payload", "remote", r.RemoteAddr)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	case errors.Is(err, chatevent.ErrUnknownShape):
		h.logger.Debug("unrecognized event shape, acknowledging")
		writeJSON(w, http.StatusOK, struct{}{})
		return
	case err != nil:
		h.logger.Error("event parse failed", "error", err)
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}

	reply := h.service.HandleEvent(r.Context(), m)
	if reply == nil {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// handleHealth reports liveness and the build version.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "alive",
		"version": h.version,
	})
}

// writeJSON writes a JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
