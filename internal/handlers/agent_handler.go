package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/moltmarket/backend/internal/registry"
)

// AgentHandler serves POST /v1/agents.
type AgentHandler struct {
	Registry registry.Service
	Logger   *slog.Logger
}

type registerAgentRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// RegisterAgent onboards an agent and returns its API key. The raw key is
// shown once and never retrievable again.
func (h *AgentHandler) RegisterAgent(w http.ResponseWriter, r *http.Request) {
	var req registerAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequestMsg(w, "invalid JSON")
		return
	}

	reg, err := h.Registry.RegisterAgent(r.Context(), req.Name, req.Description)
	if err != nil {
		if errors.Is(err, registry.ErrInvalidName) {
			badRequestMsg(w, err.Error())
			return
		}
		writeError(w, h.Logger, err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{
		"agent":     reg.Agent,
		"apiKey":    reg.RawKey,
		"keyPrefix": reg.APIKey.KeyPrefix,
	})
}
