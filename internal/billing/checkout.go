package billing

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	stripelib "github.com/stripe/stripe-go/v82"
	portalsession "github.com/stripe/stripe-go/v82/billingportal/session"
	stripesession "github.com/stripe/stripe-go/v82/checkout/session"

	"github.com/teamplane/teamplane/internal/store"
)

// Service creates Stripe checkout and customer-portal sessions. The Stripe
// constructors are injectable so tests run without the live API.
type Service struct {
	store   *store.Store
	baseURL string

	createCheckoutSession func(params *stripelib.CheckoutSessionParams) (*stripelib.CheckoutSession, error)
	createPortalSession   func(params *stripelib.BillingPortalSessionParams) (*stripelib.BillingPortalSession, error)
}

// NewService creates the billing session service. apiKey is set globally the
// way the stripe-go classic API expects; baseURL anchors success/cancel
// redirects.
func NewService(st *store.Store, apiKey, baseURL string) *Service {
	stripelib.Key = strings.TrimSpace(apiKey)
	return &Service{
		store:                 st,
		baseURL:               strings.TrimRight(baseURL, "/"),
		createCheckoutSession: stripesession.New,
		createPortalSession:   portalsession.New,
	}
}

// CreateCheckoutSession starts a subscription checkout for the team and
// returns the hosted URL. The team ID travels as the client reference so the
// webhook can attach the resulting customer.
func (s *Service) CreateCheckoutSession(ctx context.Context, team *store.Team, userEmail, priceID string) (string, error) {
	params := &stripelib.CheckoutSessionParams{
		Mode:              stripelib.String(string(stripelib.CheckoutSessionModeSubscription)),
		SuccessURL:        stripelib.String(s.baseURL + "/api/billing/checkout/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripelib.String(s.baseURL + "/pricing"),
		ClientReferenceID: stripelib.String(strconv.FormatInt(team.ID, 10)),
		LineItems: []*stripelib.CheckoutSessionLineItemParams{
			{
				Price:    stripelib.String(priceID),
				Quantity: stripelib.Int64(1),
			},
		},
	}
	if team.StripeCustomerID != "" {
		params.Customer = stripelib.String(team.StripeCustomerID)
	} else if userEmail != "" {
		params.CustomerEmail = stripelib.String(userEmail)
	}

	session, err := s.createCheckoutSession(params)
	if err != nil {
		log.Error().Err(err).Int64("team_id", team.ID).Str("price_id", priceID).
			Msg("Checkout session creation failed")
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	if session == nil || strings.TrimSpace(session.URL) == "" {
		log.Error().Int64("team_id", team.ID).Str("price_id", priceID).
			Msg("Checkout session has no URL")
		return "", fmt.Errorf("create checkout session: no session URL")
	}

	s.recordBillingEvent(ctx, team.ID, "billing.checkout_started")
	return session.URL, nil
}

// CreatePortalSession opens the Stripe customer portal for a team with an
// attached customer.
func (s *Service) CreatePortalSession(ctx context.Context, team *store.Team) (string, error) {
	if team.StripeCustomerID == "" {
		return "", fmt.Errorf("team %d has no billing customer", team.ID)
	}

	session, err := s.createPortalSession(&stripelib.BillingPortalSessionParams{
		Customer:  stripelib.String(team.StripeCustomerID),
		ReturnURL: stripelib.String(s.baseURL + "/dashboard"),
	})
	if err != nil {
		log.Error().Err(err).Int64("team_id", team.ID).Msg("Portal session creation failed")
		return "", fmt.Errorf("create portal session: %w", err)
	}
	if session == nil || strings.TrimSpace(session.URL) == "" {
		log.Error().Int64("team_id", team.ID).Msg("Portal session has no URL")
		return "", fmt.Errorf("create portal session: no session URL")
	}

	s.recordBillingEvent(ctx, team.ID, "billing.portal_opened")
	return session.URL, nil
}

func (s *Service) recordBillingEvent(ctx context.Context, teamID int64, key string) {
	if err := s.store.RecordUsage(ctx, &store.UsageEvent{TeamID: teamID, EventKey: key}); err != nil {
		log.Warn().Err(err).Int64("team_id", teamID).Str("event_key", key).
			Msg("Failed to record billing usage event")
	}
}
