// Package ws serves the live view feed over WebSocket for clients that prefer
// a bidirectional transport to server-sent events. Both transports drive the
// same session watcher.
package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"dressup/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // cross-origin clients carry no credentials beyond the query
	},
}

// Handler upgrades connections and streams session events.
type Handler struct {
	watcher *session.Watcher
}

// NewHandler creates the WebSocket handler.
func NewHandler(watcher *session.Watcher) *Handler {
	return &Handler{watcher: watcher}
}

// Serve handles GET /v1/ws/sessions/{sessionID}?playerId=&hostSecret=.
// Events are the same typed messages the SSE feed sends; the stream closes
// after a terminal event or when the peer goes away.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["sessionID"]
	playerID := r.URL.Query().Get("playerId")
	hostSecret := r.URL.Query().Get("hostSecret")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("session", id).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Read pump: the client sends nothing meaningful, but reading is what
	// surfaces disconnects and pong frames.
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(ev session.Event) error {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(ev)
	}
	keepalive := func() error {
		return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
	}

	log.Debug().Str("session", id).Str("player", playerID).Msg("websocket feed opened")
	if err := h.watcher.Watch(ctx, id, playerID, hostSecret, send, keepalive); err != nil {
		log.Debug().Err(err).Str("session", id).Msg("websocket feed ended")
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
