package app

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/teamplane/teamplane/internal/apperrors"
	"github.com/teamplane/teamplane/internal/billing"
	"github.com/teamplane/teamplane/internal/email"
	"github.com/teamplane/teamplane/internal/identity"
	"github.com/teamplane/teamplane/internal/provision"
	"github.com/teamplane/teamplane/internal/store"
)

// Handlers carries the shared dependencies for the API endpoints.
type Handlers struct {
	store       *store.Store
	provision   *provision.Service
	billing     *billing.Service
	emailSender email.Sender
	emailFrom   string
	appName     string
	baseURL     string
}

// NewHandlers creates the API handler set.
func NewHandlers(st *store.Store, prov *provision.Service, bill *billing.Service, sender email.Sender, emailFrom, appName, baseURL string) *Handlers {
	return &Handlers{
		store:       st,
		provision:   prov,
		billing:     bill,
		emailSender: sender,
		emailFrom:   emailFrom,
		appName:     appName,
		baseURL:     strings.TrimRight(baseURL, "/"),
	}
}

var errNotAuthenticated = apperrors.NewStoreError(apperrors.ErrorTypeAuth, "authenticate", "request",
	errors.New("no verified identity"))

// currentUser resolves the request's verified identity to a user row. A
// verified identity without a user row has not been provisioned yet and is
// treated as unauthenticated for the resource endpoints.
func (h *Handlers) currentUser(r *http.Request) (*store.User, error) {
	claims, ok := identity.FromContext(r.Context())
	if !ok {
		return nil, errNotAuthenticated
	}
	u, err := h.store.GetUserByEmail(r.Context(), claims.ResolvedEmail())
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, errNotAuthenticated
		}
		return nil, err
	}
	return u, nil
}

// currentTeam resolves the request's user and their team in one step.
func (h *Handlers) currentTeam(r *http.Request) (*store.User, *store.Team, error) {
	u, err := h.currentUser(r)
	if err != nil {
		return nil, nil, err
	}
	m, err := h.store.MembershipForUser(r.Context(), u.ID)
	if err != nil {
		return nil, nil, err
	}
	team, err := h.store.GetTeamByID(r.Context(), m.TeamID)
	if err != nil {
		return nil, nil, err
	}
	return u, team, nil
}

type sessionResponse struct {
	User    *store.User `json:"user"`
	Team    *store.Team `json:"team"`
	Created bool        `json:"created"`
}

// HandleSession provisions the signed-in identity.
// Route: POST /api/auth/session
func (h *Handlers) HandleSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, errNotAuthenticated)
		return
	}

	res, err := h.provision.SignIn(r.Context(), claims, clientIP(r))
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, sessionResponse{User: res.User, Team: res.Team, Created: res.Created})
}

// HandleGetTeam returns the caller's team with its member list.
// Route: GET /api/team
func (h *Handlers) HandleGetTeam(w http.ResponseWriter, r *http.Request) {
	_, team, err := h.currentTeam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	full, err := h.store.TeamWithMembers(r.Context(), team.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, full)
}

// HandleActivity returns the caller's recent activity, newest first.
// Route: GET /api/activity
func (h *Handlers) HandleActivity(w http.ResponseWriter, r *http.Request) {
	u, err := h.currentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, err)
		return
	}

	entries, err := h.store.ListRecentActivity(r.Context(), u.ID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []store.ActivityEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		var ve apperrors.ValidationError
		return 0, ve.Add(key, "must be a non-negative integer")
	}
	return n, nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PathValue(name)), 10, 64)
	if err != nil || id <= 0 {
		var ve apperrors.ValidationError
		return 0, ve.Add(name, "must be a positive integer")
	}
	return id, nil
}
