package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"dressup/internal/model"
	"dressup/internal/session"
)

// RoundHandler covers per-round endpoints: goal image, start, prompt
// submission, scoring and advancing.
type RoundHandler struct {
	store *session.Store
}

// NewRoundHandler creates the handler.
func NewRoundHandler(store *session.Store) *RoundHandler {
	return &RoundHandler{store: store}
}

func roundIndexVar(r *http.Request) (int, bool) {
	index, err := strconv.Atoi(mux.Vars(r)["roundIndex"])
	if err != nil {
		return 0, false
	}
	return index, true
}

// GoalImageRequest carries the reference image as a data URL.
type GoalImageRequest struct {
	DataURL string `json:"dataUrl"`
}

// parseDataURL splits a data:<mime>;base64,<payload> string and verifies the
// payload decodes.
func parseDataURL(dataURL string) (mimeType, payload string, ok bool) {
	rest, found := strings.CutPrefix(dataURL, "data:")
	if !found {
		return "", "", false
	}
	meta, data, found := strings.Cut(rest, ",")
	if !found || data == "" {
		return "", "", false
	}
	mimeType, found = strings.CutSuffix(meta, ";base64")
	if !found || mimeType == "" {
		return "", "", false
	}
	if _, err := base64.StdEncoding.DecodeString(data); err != nil {
		return "", "", false
	}
	return mimeType, data, true
}

// GoalImage handles POST /v1/sessions/{sessionID}/rounds/{roundIndex}/goal-image
// (host only).
func (h *RoundHandler) GoalImage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["sessionID"]
	roundIndex, ok := roundIndexVar(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid round index")
		return
	}

	var req GoalImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DataURL == "" {
		writeError(w, http.StatusBadRequest, "dataUrl is required")
		return
	}
	mimeType, payload, ok := parseDataURL(req.DataURL)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid data URL")
		return
	}

	s, err := h.store.UpdateRoundGoalImage(r.Context(), id, roundIndex, payload, mimeType)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	log.Info().Str("session", id).Int("round", roundIndex).Msg("goal image updated")
	writeJSON(w, http.StatusOK, map[string]interface{}{"session": model.NewSnapshot(s)})
}

// Start handles POST /v1/sessions/{sessionID}/rounds/{roundIndex}/start
// (host only).
func (h *RoundHandler) Start(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["sessionID"]
	roundIndex, ok := roundIndexVar(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid round index")
		return
	}

	s, err := h.store.StartRound(r.Context(), id, roundIndex)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	log.Info().Str("session", id).Int("round", roundIndex).Msg("round started")
	writeJSON(w, http.StatusOK, map[string]interface{}{"session": model.NewSnapshot(s)})
}

// SubmitPromptRequest is the body for the player prompt submission.
type SubmitPromptRequest struct {
	PlayerID string `json:"playerId"`
	Prompt   string `json:"prompt"`
}

// SubmitPrompt handles POST /v1/sessions/{sessionID}/rounds/{roundIndex}/prompts.
// Player self-service; no host secret involved.
func (h *RoundHandler) SubmitPrompt(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["sessionID"]
	roundIndex, ok := roundIndexVar(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid round index")
		return
	}

	var req SubmitPromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == "" {
		writeError(w, http.StatusBadRequest, "playerId and prompt are required")
		return
	}

	s, err := h.store.SubmitPrompt(r.Context(), id, roundIndex, req.PlayerID, strings.TrimSpace(req.Prompt))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"session": model.NewSnapshot(s)})
}

// ScoreRequest is the body for scoring a player's result.
type ScoreRequest struct {
	PlayerID string `json:"playerId"`
	Score    *int   `json:"score"`
}

// Score handles POST /v1/sessions/{sessionID}/rounds/{roundIndex}/score
// (host only). Scores are a closed interval, 1 and 5 both valid.
func (h *RoundHandler) Score(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["sessionID"]
	roundIndex, ok := roundIndexVar(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid round index")
		return
	}

	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == "" {
		writeError(w, http.StatusBadRequest, "playerId is required")
		return
	}
	if req.Score == nil || *req.Score < 1 || *req.Score > 5 {
		writeError(w, http.StatusBadRequest, "score must be between 1 and 5")
		return
	}

	s, err := h.store.SetPlayerScore(r.Context(), id, roundIndex, req.PlayerID, *req.Score)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"session": model.NewSnapshot(s)})
}

// Advance handles POST /v1/sessions/{sessionID}/rounds/advance (host only).
func (h *RoundHandler) Advance(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["sessionID"]

	s, err := h.store.AdvanceRound(r.Context(), id)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	log.Info().Str("session", id).Int("round", s.CurrentRoundIndex).Str("status", string(s.Status)).Msg("round advanced")
	writeJSON(w, http.StatusOK, map[string]interface{}{"session": model.NewSnapshot(s)})
}
