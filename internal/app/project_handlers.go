package app

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/teamplane/teamplane/internal/apperrors"
	"github.com/teamplane/teamplane/internal/store"
	"github.com/teamplane/teamplane/internal/validate"
)

type createProjectRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// HandleListProjects lists the team's projects.
// Route: GET /api/team/projects
func (h *Handlers) HandleListProjects(w http.ResponseWriter, r *http.Request) {
	_, team, err := h.currentTeam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	projects, err := h.store.ListProjectsByTeam(r.Context(), team.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if projects == nil {
		projects = []store.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

// HandleCreateProject creates a project under the caller's team.
// Route: POST /api/team/projects
func (h *Handlers) HandleCreateProject(w http.ResponseWriter, r *http.Request) {
	_, team, err := h.currentTeam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req createProjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	if err := validate.TeamName(req.Name); err != nil {
		writeError(w, err)
		return
	}
	if err := validate.Slug(req.Slug); err != nil {
		writeError(w, err)
		return
	}

	p := &store.Project{TeamID: team.ID, Name: strings.TrimSpace(req.Name), Slug: req.Slug}
	if err := h.store.CreateProject(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

type createWebhookEndpointRequest struct {
	URL string `json:"url"`
}

type createWebhookEndpointResponse struct {
	Endpoint *store.WebhookEndpoint `json:"endpoint"`
	Secret   string                 `json:"secret"` // shown once
}

// HandleListWebhookEndpoints lists the team's active outbound endpoints.
// Route: GET /api/team/webhooks
func (h *Handlers) HandleListWebhookEndpoints(w http.ResponseWriter, r *http.Request) {
	_, team, err := h.currentTeam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	endpoints, err := h.store.ListActiveWebhookEndpoints(r.Context(), team.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if endpoints == nil {
		endpoints = []store.WebhookEndpoint{}
	}
	writeJSON(w, http.StatusOK, endpoints)
}

// HandleCreateWebhookEndpoint registers an outbound delivery target. The
// signing secret is returned once.
// Route: POST /api/team/webhooks
func (h *Handlers) HandleCreateWebhookEndpoint(w http.ResponseWriter, r *http.Request) {
	_, team, err := h.currentTeam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req createWebhookEndpointRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	target := strings.TrimSpace(req.URL)
	if !strings.HasPrefix(target, "https://") && !strings.HasPrefix(target, "http://") {
		writeError(w, (&apperrors.ValidationError{}).Add("url", "must be an http(s) URL"))
		return
	}

	secret, err := generateWebhookSecret()
	if err != nil {
		writeError(w, err)
		return
	}
	ep := &store.WebhookEndpoint{TeamID: team.ID, URL: target, Secret: secret}
	if err := h.store.CreateWebhookEndpoint(r.Context(), ep); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createWebhookEndpointResponse{Endpoint: ep, Secret: secret})
}

// HandleDeactivateWebhookEndpoint turns off an endpoint owned by the team.
// Route: DELETE /api/team/webhooks/{id}
func (h *Handlers) HandleDeactivateWebhookEndpoint(w http.ResponseWriter, r *http.Request) {
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

	endpoints, err := h.store.ListActiveWebhookEndpoints(r.Context(), team.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	owned := false
	for _, ep := range endpoints {
		if ep.ID == id {
			owned = true
			break
		}
	}
	if !owned {
		writeError(w, errNotAuthenticated)
		return
	}

	if err := h.store.DeactivateWebhookEndpoint(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func generateWebhookSecret() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate webhook secret: %w", err)
	}
	return "whsec_" + hex.EncodeToString(buf), nil
}
