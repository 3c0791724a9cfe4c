package app

import (
	"errors"
	"net/http"
	"strings"

	"github.com/teamplane/teamplane/internal/apperrors"
	"github.com/teamplane/teamplane/internal/store"
	"github.com/teamplane/teamplane/internal/validate"
)

type recordUsageRequest struct {
	EventKey   string `json:"event_key"`
	Quantity   int64  `json:"quantity"`
	ProjectID  *int64 `json:"project_id,omitempty"`
	Properties string `json:"properties,omitempty"`
}

// HandleRecordUsage appends a usage event for the caller's team.
// Route: POST /api/usage
func (h *Handlers) HandleRecordUsage(w http.ResponseWriter, r *http.Request) {
	_, team, err := h.currentTeam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req recordUsageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	if strings.TrimSpace(req.EventKey) == "" {
		var ve apperrors.ValidationError
		writeError(w, ve.Add("event_key", "is required"))
		return
	}
	if req.ProjectID != nil {
		if err := validate.ID("project_id", *req.ProjectID); err != nil {
			writeError(w, err)
			return
		}
	}

	ev := &store.UsageEvent{
		TeamID:     team.ID,
		ProjectID:  req.ProjectID,
		EventKey:   strings.TrimSpace(req.EventKey),
		Quantity:   req.Quantity,
		Properties: req.Properties,
	}
	if err := h.store.RecordUsage(r.Context(), ev); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// HandleListUsage returns the team's recent usage events, newest first.
// Route: GET /api/usage
func (h *Handlers) HandleListUsage(w http.ResponseWriter, r *http.Request) {
	_, team, err := h.currentTeam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, err)
		return
	}

	events, err := h.store.ListRecentUsage(r.Context(), team.ID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if events == nil {
		events = []store.UsageEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

const defaultPlanCode = "free"

type entitlementsResponse struct {
	PlanCode     string              `json:"plan_code"`
	Entitlements []store.Entitlement `json:"entitlements"`
}

// HandleEntitlements resolves the caller's plan and returns its feature
// entitlements. Teams without a subscription fall back to the free plan.
// Route: GET /api/entitlements
func (h *Handlers) HandleEntitlements(w http.ResponseWriter, r *http.Request) {
	_, team, err := h.currentTeam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	planCode := defaultPlanCode
	if team.StripeProductID != "" {
		plan, err := h.store.GetPlanByStripeProductID(r.Context(), team.StripeProductID)
		switch {
		case err == nil:
			planCode = plan.Code
		case errors.Is(err, apperrors.ErrNotFound):
			// Subscribed to a product this deployment has no plan row for;
			// fall back rather than fail the dashboard.
		default:
			writeError(w, err)
			return
		}
	}

	ents, err := h.store.ListEntitlements(r.Context(), planCode)
	if err != nil {
		writeError(w, err)
		return
	}
	if ents == nil {
		ents = []store.Entitlement{}
	}
	writeJSON(w, http.StatusOK, entitlementsResponse{PlanCode: planCode, Entitlements: ents})
}
