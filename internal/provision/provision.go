// Package provision turns verified identity claims into durable user and
// team records. It owns the sign-up/sign-in data flow: resolve or create the
// user, resolve or create their default team, record activity, and send the
// welcome email.
package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/teamplane/teamplane/internal/apperrors"
	"github.com/teamplane/teamplane/internal/email"
	"github.com/teamplane/teamplane/internal/identity"
	"github.com/teamplane/teamplane/internal/metrics"
	"github.com/teamplane/teamplane/internal/store"
)

// Service orchestrates user and team provisioning.
type Service struct {
	store        *store.Store
	emailSender  email.Sender
	emailFrom    string
	appName      string
	dashboardURL string
}

// NewService creates a provisioning service. emailSender may be a LogSender
// when no provider is configured.
func NewService(st *store.Store, sender email.Sender, emailFrom, appName, dashboardURL string) *Service {
	return &Service{
		store:        st,
		emailSender:  sender,
		emailFrom:    emailFrom,
		appName:      appName,
		dashboardURL: dashboardURL,
	}
}

// Result is the outcome of a provisioning call.
type Result struct {
	User    *store.User
	Team    *store.Team
	Created bool // true when this call created the user
}

// ResolveOrCreateUser returns the user for the verified claims, creating one
// on first sign-in. A concurrent create surfaces as Conflict; the read path
// is retried once since the winning insert is equivalent.
func (s *Service) ResolveOrCreateUser(ctx context.Context, claims *identity.Claims) (*store.User, bool, error) {
	addr := claims.ResolvedEmail()

	u, err := s.store.GetUserByEmail(ctx, addr)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, fmt.Errorf("resolve user %s: %w", addr, err)
	}

	u = &store.User{
		Name:  claims.Name,
		Email: addr,
		Role:  store.UserRoleOwner,
	}
	if err := s.store.CreateUser(ctx, u); err == nil {
		metrics.ProvisioningTotal.WithLabelValues("user_created").Inc()
		return u, true, nil
	} else if !errors.Is(err, apperrors.ErrConflict) {
		metrics.ProvisioningTotal.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("create user %s: %w", addr, err)
	}

	// Lost the unique-email race; the concurrent insert provisioned an
	// equivalent row.
	u, err = s.store.GetUserByEmail(ctx, addr)
	if err != nil {
		metrics.ProvisioningTotal.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("re-read user %s after conflict: %w", addr, err)
	}
	return u, false, nil
}

// ResolveOrCreateDefaultTeam returns the user's team, creating
// "<email>'s Team" with an owner membership on first sign-in. Creation is a
// single transaction.
func (s *Service) ResolveOrCreateDefaultTeam(ctx context.Context, user *store.User) (*store.Team, bool, error) {
	m, err := s.store.MembershipForUser(ctx, user.ID)
	if err == nil {
		team, err := s.store.GetTeamByID(ctx, m.TeamID)
		if err != nil {
			return nil, false, fmt.Errorf("load team %d: %w", m.TeamID, err)
		}
		return team, false, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, fmt.Errorf("resolve membership for user %d: %w", user.ID, err)
	}

	team, err := s.store.CreateTeamWithOwner(ctx, fmt.Sprintf("%s's Team", user.Email), user.ID)
	if err != nil {
		metrics.ProvisioningTotal.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("create default team for user %d: %w", user.ID, err)
	}
	metrics.ProvisioningTotal.WithLabelValues("team_created").Inc()
	return team, true, nil
}

// SignIn provisions everything a verified identity needs: the user record,
// the default team, the activity trail, and (on first sign-in) the welcome
// email. Email failure is logged but never rolls back the local writes.
func (s *Service) SignIn(ctx context.Context, claims *identity.Claims, clientIP string) (*Result, error) {
	user, createdUser, err := s.ResolveOrCreateUser(ctx, claims)
	if err != nil {
		return nil, err
	}

	team, createdTeam, err := s.ResolveOrCreateDefaultTeam(ctx, user)
	if err != nil {
		return nil, err
	}

	action := store.ActivitySignIn
	if createdUser {
		action = store.ActivitySignUp
	}
	if err := s.store.RecordActivity(ctx, &store.ActivityLog{
		TeamID:    team.ID,
		UserID:    &user.ID,
		Action:    action,
		IPAddress: clientIP,
	}); err != nil {
		log.Warn().Err(err).Int64("user_id", user.ID).Msg("Failed to record sign-in activity")
	}

	if createdTeam {
		s.sendWelcomeEmail(ctx, user, team)
	}

	return &Result{User: user, Team: team, Created: createdUser}, nil
}

func (s *Service) sendWelcomeEmail(ctx context.Context, user *store.User, team *store.Team) {
	html, text, err := email.RenderWelcomeEmail(email.WelcomeData{
		AppName:      s.appName,
		TeamName:     team.Name,
		DashboardURL: s.dashboardURL,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to render welcome email")
		metrics.EmailsSentTotal.WithLabelValues("welcome", "error").Inc()
		return
	}

	err = s.emailSender.Send(ctx, email.Message{
		From:    s.emailFrom,
		To:      user.Email,
		Subject: fmt.Sprintf("Welcome to %s", s.appName),
		HTML:    html,
		Text:    text,
	})
	if err != nil {
		log.Warn().Err(err).Str("to", user.Email).Msg("Failed to send welcome email")
		metrics.EmailsSentTotal.WithLabelValues("welcome", "error").Inc()
		return
	}
	metrics.EmailsSentTotal.WithLabelValues("welcome", "sent").Inc()
}
