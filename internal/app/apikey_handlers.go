package app

import (
	"net/http"
	"strings"

	"github.com/teamplane/teamplane/internal/store"
)

type createAPIKeyRequest struct {
	Name string `json:"name"`
}

type createAPIKeyResponse struct {
	Key    *store.APIKey `json:"key"`
	Secret string        `json:"secret"` // shown once; only the hash is stored
}

// HandleListAPIKeys lists the team's API keys, revoked ones included.
// Route: GET /api/team/api-keys
func (h *Handlers) HandleListAPIKeys(w http.ResponseWriter, r *http.Request) {
	_, team, err := h.currentTeam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	keys, err := h.store.ListAPIKeysByTeam(r.Context(), team.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if keys == nil {
		keys = []store.APIKey{}
	}
	writeJSON(w, http.StatusOK, keys)
}

// HandleCreateAPIKey mints a new API key. The plaintext secret is returned
// once and never stored.
// Route: POST /api/team/api-keys
func (h *Handlers) HandleCreateAPIKey(w http.ResponseWriter, r *http.Request) {
	_, team, err := h.currentTeam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req createAPIKeyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	secret, hash, err := store.GenerateAPIKey()
	if err != nil {
		writeError(w, err)
		return
	}
	k := &store.APIKey{
		TeamID:  team.ID,
		Name:    strings.TrimSpace(req.Name),
		KeyHash: hash,
	}
	if err := h.store.CreateAPIKey(r.Context(), k); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createAPIKeyResponse{Key: k, Secret: secret})
}

// HandleRevokeAPIKey revokes a key belonging to the caller's team.
// Route: DELETE /api/team/api-keys/{id}
func (h *Handlers) HandleRevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	_, team, err := h.currentTeam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	keys, err := h.store.ListAPIKeysByTeam(r.Context(), team.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	owned := false
	for _, k := range keys {
		if k.ID == id {
			owned = true
			break
		}
	}
	if !owned {
		writeError(w, errNotAuthenticated)
		return
	}

	if err := h.store.RevokeAPIKey(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
