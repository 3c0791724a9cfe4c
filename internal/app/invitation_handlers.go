package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/teamplane/teamplane/internal/email"
	"github.com/teamplane/teamplane/internal/metrics"
	"github.com/teamplane/teamplane/internal/store"
	"github.com/teamplane/teamplane/internal/validate"
)

type inviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// HandleListInvitations lists the team's pending invitations.
// Route: GET /api/team/invitations
func (h *Handlers) HandleListInvitations(w http.ResponseWriter, r *http.Request) {
	_, team, err := h.currentTeam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	pending, err := h.store.ListPendingInvitations(r.Context(), team.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if pending == nil {
		pending = []store.Invitation{}
	}
	writeJSON(w, http.StatusOK, pending)
}

// HandleCreateInvitation invites a member by email and sends the invitation
// email. Email failure is logged; the invitation row stays.
// Route: POST /api/team/invitations
func (h *Handlers) HandleCreateInvitation(w http.ResponseWriter, r *http.Request) {
	u, team, err := h.currentTeam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req inviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	if err := validate.InviteMember(req.Email, req.Role); err != nil {
		writeError(w, err)
		return
	}

	inv := &store.Invitation{
		TeamID:    team.ID,
		Email:     req.Email,
		Role:      store.UserRole(req.Role),
		InvitedBy: u.ID,
	}
	if err := h.store.CreateInvitation(r.Context(), inv); err != nil {
		writeError(w, err)
		return
	}

	if err := h.store.RecordActivity(r.Context(), &store.ActivityLog{
		TeamID:    team.ID,
		UserID:    &u.ID,
		Action:    store.ActivityInviteMember,
		IPAddress: clientIP(r),
	}); err != nil {
		log.Warn().Err(err).Int64("team_id", team.ID).Msg("Failed to record invite activity")
	}

	h.sendInvitationEmail(r.Context(), inv, u, team)
	writeJSON(w, http.StatusCreated, inv)
}

// HandleAcceptInvitation accepts a pending invitation for the caller.
// Route: POST /api/invitations/{id}/accept
func (h *Handlers) HandleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	u, err := h.currentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	m, err := h.store.AcceptInvitation(r.Context(), id, u.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.store.RecordActivity(r.Context(), &store.ActivityLog{
		TeamID:    m.TeamID,
		UserID:    &u.ID,
		Action:    store.ActivityAcceptInvitation,
		IPAddress: clientIP(r),
	}); err != nil {
		log.Warn().Err(err).Int64("team_id", m.TeamID).Msg("Failed to record accept activity")
	}

	writeJSON(w, http.StatusOK, m)
}

// HandleRevokeInvitation revokes a pending invitation.
// Route: DELETE /api/team/invitations/{id}
func (h *Handlers) HandleRevokeInvitation(w http.ResponseWriter, r *http.Request) {
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

	// The invitation must belong to the caller's team.
	inv, err := h.store.GetInvitation(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if inv.TeamID != team.ID {
		writeError(w, errNotAuthenticated)
		return
	}

	if err := h.store.RevokeInvitation(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) sendInvitationEmail(ctx context.Context, inv *store.Invitation, inviter *store.User, team *store.Team) {
	inviterName := inviter.Name
	if inviterName == "" {
		inviterName = inviter.Email
	}
	html, text, err := email.RenderInvitationEmail(email.InvitationData{
		TeamName:    team.Name,
		InviterName: inviterName,
		Role:        string(inv.Role),
		AcceptURL:   fmt.Sprintf("%s/invitations/%d", h.baseURL, inv.ID),
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to render invitation email")
		metrics.EmailsSentTotal.WithLabelValues("invitation", "error").Inc()
		return
	}

	err = h.emailSender.Send(ctx, email.Message{
		From:    h.emailFrom,
		To:      inv.Email,
		Subject: fmt.Sprintf("You're invited to join %s on %s", team.Name, h.appName),
		HTML:    html,
		Text:    text,
	})
	if err != nil {
		log.Warn().Err(err).Str("to", inv.Email).Msg("Failed to send invitation email")
		metrics.EmailsSentTotal.WithLabelValues("invitation", "error").Inc()
		return
	}
	metrics.EmailsSentTotal.WithLabelValues("invitation", "sent").Inc()
}
