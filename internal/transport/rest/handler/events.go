package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"dressup/internal/session"
	"dressup/internal/transport/rest/middleware"
)

// EventsHandler serves the live view feed over server-sent events.
type EventsHandler struct {
	watcher *session.Watcher
}

// NewEventsHandler creates the handler.
func NewEventsHandler(watcher *session.Watcher) *EventsHandler {
	return &EventsHandler{watcher: watcher}
}

// Stream handles GET /v1/sessions/{sessionID}/events. Access is optionally
// scoped by playerId query param or the host secret (query param or header);
// a failed check is reported as a terminal forbidden event on the stream
// itself. The loop stops when the client disconnects.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	id := mux.Vars(r)["sessionID"]
	playerID := r.URL.Query().Get("playerId")
	hostSecret := middleware.HostSecret(r)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	send := func(ev session.Event) error {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}
	keepalive := func() error {
		if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	log.Debug().Str("session", id).Str("player", playerID).Msg("sse stream opened")
	if err := h.watcher.Watch(r.Context(), id, playerID, hostSecret, send, keepalive); err != nil {
		log.Debug().Err(err).Str("session", id).Msg("sse stream ended")
	}
}
