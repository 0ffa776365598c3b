package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	qrcode "github.com/skip2/go-qrcode"

	"dressup/internal/model"
	"dressup/internal/session"
)

// SessionHandler covers session lifecycle endpoints.
type SessionHandler struct {
	store         *session.Store
	publicBaseURL string
}

// NewSessionHandler creates the handler. publicBaseURL feeds the QR join link.
func NewSessionHandler(store *session.Store, publicBaseURL string) *SessionHandler {
	return &SessionHandler{store: store, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

// CreateSessionRequest is the body for POST /v1/sessions.
type CreateSessionRequest struct {
	HostName string `json:"hostName"`
}

// Create handles POST /v1/sessions. The host secret is returned exactly once.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.HostName) == "" {
		writeError(w, http.StatusBadRequest, "hostName is required")
		return
	}

	s, err := h.store.Create(r.Context(), strings.TrimSpace(req.HostName))
	if err != nil {
		log.Error().Err(err).Msg("create session failed")
		writeSessionError(w, err)
		return
	}

	log.Info().Str("session", s.ID).Str("host", s.HostName).Msg("session created")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session":    model.NewSnapshot(s),
		"hostSecret": s.HostSecret,
	})
}

// Get handles GET /v1/sessions/{sessionID}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["sessionID"]

	s, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"session": model.NewSnapshot(s)})
}

// JoinRequest is the body for POST /v1/sessions/{sessionID}/join.
type JoinRequest struct {
	PlayerName string `json:"playerName"`
}

// Join handles POST /v1/sessions/{sessionID}/join.
func (h *SessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["sessionID"]

	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.PlayerName) == "" {
		writeError(w, http.StatusBadRequest, "playerName is required")
		return
	}

	s, player, err := h.store.Join(r.Context(), id, strings.TrimSpace(req.PlayerName))
	if err != nil {
		writeSessionError(w, err)
		return
	}

	log.Info().Str("session", id).Str("player", player.ID).Str("name", player.Name).Msg("player joined")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session": model.NewSnapshot(s),
		"player":  player,
	})
}

// UpdateSettingsRequest is the body for PATCH /v1/sessions/{sessionID}/settings.
type UpdateSettingsRequest struct {
	APIKey string `json:"apiKey"`
}

// UpdateSettings handles PATCH /v1/sessions/{sessionID}/settings (host only).
func (h *SessionHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["sessionID"]

	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.APIKey) == "" {
		writeError(w, http.StatusBadRequest, "apiKey is required")
		return
	}

	s, err := h.store.UpdateAPIKey(r.Context(), id, strings.TrimSpace(req.APIKey))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"session": model.NewSnapshot(s)})
}

// Reset handles POST /v1/sessions/{sessionID}/reset (host only): back to the
// lobby with every round and entry cleared.
func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["sessionID"]

	s, err := h.store.Reset(r.Context(), id)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	log.Info().Str("session", id).Msg("session reset")
	writeJSON(w, http.StatusOK, map[string]interface{}{"session": model.NewSnapshot(s)})
}

// QR handles GET /v1/sessions/{sessionID}/qr: a PNG QR code of the join link
// for the host to put on screen.
func (h *SessionHandler) QR(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["sessionID"]

	if _, err := h.store.Get(r.Context(), id); err != nil {
		writeSessionError(w, err)
		return
	}

	joinURL := h.publicBaseURL + "/join/" + id
	png, err := qrcode.Encode(joinURL, qrcode.Medium, 256)
	if err != nil {
		log.Error().Err(err).Str("session", id).Msg("qr encode failed")
		writeError(w, http.StatusInternalServerError, "could not render QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
