package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"dressup/internal/ai"
	"dressup/internal/imageproc"
	"dressup/internal/model"
	"dressup/internal/prompt"
	"dressup/internal/session"
)

// GenerateHandler drives image generation: composing the instruction string,
// calling the provider and storing results.
type GenerateHandler struct {
	store        *session.Store
	provider     ai.Provider
	serverAPIKey string
}

// NewGenerateHandler creates the handler. serverAPIKey is the fallback
// credential when a session carries no override.
func NewGenerateHandler(store *session.Store, provider ai.Provider, serverAPIKey string) *GenerateHandler {
	return &GenerateHandler{store: store, provider: provider, serverAPIKey: serverAPIKey}
}

// GenerateRequest is the body for single-player generation.
type GenerateRequest struct {
	PlayerID string `json:"playerId"`
}

// Generate handles POST /v1/sessions/{sessionID}/rounds/{roundIndex}/generate
// (host only): mark the player generating, compose the five-stage prompt,
// call the provider, shrink the result to the payload budget and store it.
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["sessionID"]
	roundIndex, ok := roundIndexVar(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid round index")
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == "" {
		writeError(w, http.StatusBadRequest, "playerId is required")
		return
	}

	s, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	round := s.Round(roundIndex)
	if round == nil {
		writeError(w, http.StatusNotFound, "round not found")
		return
	}
	entry, ok := round.Entries[req.PlayerID]
	if !ok {
		writeError(w, http.StatusNotFound, "player entry not found")
		return
	}
	if entry.Status != model.PlayerReady && entry.Status != model.PlayerCompleted {
		writeError(w, http.StatusBadRequest, "player prompts not ready")
		return
	}
	if round.GoalImageBase64 == "" {
		writeError(w, http.StatusBadRequest, "round goal image missing")
		return
	}
	apiKey := s.APIKey
	if apiKey == "" {
		apiKey = h.serverAPIKey
	}
	if apiKey == "" {
		writeError(w, http.StatusBadRequest, "image generation credential is not configured")
		return
	}

	if _, err := h.store.SetPlayerGenerating(r.Context(), id, roundIndex, req.PlayerID); err != nil {
		writeSessionError(w, err)
		return
	}

	for _, role := range model.RoleOrder {
		if entry.Prompts[role] == nil {
			writeError(w, http.StatusBadRequest, "prompt section \""+string(role)+"\" is missing")
			return
		}
	}
	finalPrompt := prompt.BuildFromPrompts(entry.Prompts)

	image, err := h.provider.GenerateImage(r.Context(), ai.ImageRequest{
		APIKey:            apiKey,
		Prompt:            finalPrompt,
		GoalImageBase64:   round.GoalImageBase64,
		GoalImageMimeType: round.GoalImageMimeType,
	})
	if err != nil {
		log.Error().Err(err).Str("session", id).Int("round", roundIndex).Str("player", req.PlayerID).Msg("generation failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	image = imageproc.ShrinkBase64(image, imageproc.DefaultMaxBytes)

	updated, err := h.store.SetPlayerResult(r.Context(), id, roundIndex, req.PlayerID, finalPrompt, image)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	log.Info().Str("session", id).Int("round", roundIndex).Str("player", req.PlayerID).Msg("generation completed")
	writeJSON(w, http.StatusOK, map[string]interface{}{"session": model.NewSnapshot(updated)})
}

// GenerateBatchRequest is the body for batch generation.
type GenerateBatchRequest struct {
	PlayerIDs []string `json:"playerIds"`
}

// BatchResult reports one player's outcome inside a batch.
type BatchResult struct {
	PlayerID string `json:"playerId"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// GenerateBatch handles POST /v1/sessions/{sessionID}/rounds/{roundIndex}/generate-batch
// (host only): marks every listed ready player generating. Per-player failures
// are reported individually, never fatal to the batch.
func (h *GenerateHandler) GenerateBatch(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["sessionID"]
	roundIndex, ok := roundIndexVar(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid round index")
		return
	}

	var req GenerateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.PlayerIDs) == 0 {
		writeError(w, http.StatusBadRequest, "playerIds array is required")
		return
	}

	s, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	round := s.Round(roundIndex)
	if round == nil {
		writeError(w, http.StatusNotFound, "round not found")
		return
	}

	results := make([]BatchResult, 0, len(req.PlayerIDs))
	for _, playerID := range req.PlayerIDs {
		entry, ok := round.Entries[playerID]
		if !ok || entry.Status != model.PlayerReady {
			results = append(results, BatchResult{PlayerID: playerID, Error: "player not ready"})
			continue
		}
		if _, err := h.store.SetPlayerGenerating(r.Context(), id, roundIndex, playerID); err != nil {
			results = append(results, BatchResult{PlayerID: playerID, Error: err.Error()})
			continue
		}
		results = append(results, BatchResult{PlayerID: playerID, Success: true})
	}

	updated, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session": model.NewSnapshot(updated),
		"results": results,
	})
}

// ComposeRequest is the body for the sessionless compose endpoint.
type ComposeRequest struct {
	Prompts         []string `json:"prompts"`
	GoalImageBase64 string   `json:"goalImageBase64"`
}

// Compose handles POST /v1/generate: a one-shot composition outside any
// session, using the server credential.
func (h *GenerateHandler) Compose(w http.ResponseWriter, r *http.Request) {
	var req ComposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Prompts) != len(model.RoleOrder) {
		writeError(w, http.StatusBadRequest, "prompts for all five sections are required")
		return
	}
	if req.GoalImageBase64 == "" {
		writeError(w, http.StatusBadRequest, "goal image is missing")
		return
	}
	if h.serverAPIKey == "" {
		writeError(w, http.StatusInternalServerError, "server is not configured with an image generation credential")
		return
	}

	finalPrompt := prompt.BuildFiveStage(req.Prompts[0], req.Prompts[1], req.Prompts[2], req.Prompts[3], req.Prompts[4])

	image, err := h.provider.GenerateImage(r.Context(), ai.ImageRequest{
		APIKey:          h.serverAPIKey,
		Prompt:          finalPrompt,
		GoalImageBase64: req.GoalImageBase64,
	})
	if err != nil {
		log.Error().Err(err).Msg("standalone generation failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"image":       image,
		"finalPrompt": finalPrompt,
	})
}
