// Package billing connects the store to Stripe: the inbound webhook that
// keeps team subscription state current, and outbound checkout/portal
// session creation. Checkout flow internals stay on Stripe's side; this
// package only exchanges identifiers and URLs.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	stripelib "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/teamplane/teamplane/internal/apperrors"
	"github.com/teamplane/teamplane/internal/metrics"
	"github.com/teamplane/teamplane/internal/store"
)

const webhookBodyLimit = 1024 * 1024 // 1 MiB

// WebhookHandler handles incoming Stripe webhook events.
type WebhookHandler struct {
	secret string
	store  *store.Store

	getSubscription func(id string, params *stripelib.SubscriptionParams) (*stripelib.Subscription, error)
}

type webhookErrorResponse struct {
	Error string `json:"error"`
}

type webhookReceivedResponse struct {
	Received bool `json:"received"`
}

// NewWebhookHandler creates a Stripe webhook HTTP handler.
func NewWebhookHandler(secret string, st *store.Store) *WebhookHandler {
	return &WebhookHandler{
		secret:          secret,
		store:           st,
		getSubscription: retrieveSubscription,
	}
}

// ServeHTTP verifies the Stripe signature and dispatches the event.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	eventType := "unknown"
	status := http.StatusOK
	defer func() {
		metrics.WebhookRequestsTotal.WithLabelValues(eventType, strconv.Itoa(status)).Inc()
		metrics.WebhookDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
	}()

	if r.Method != http.MethodPost {
		status = http.StatusMethodNotAllowed
		writeJSON(w, http.StatusMethodNotAllowed, webhookErrorResponse{Error: "method not allowed"})
		return
	}
	if strings.TrimSpace(h.secret) == "" {
		status = http.StatusServiceUnavailable
		writeJSON(w, http.StatusServiceUnavailable, webhookErrorResponse{Error: "webhook secret not configured"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, webhookBodyLimit)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		status = http.StatusBadRequest
		writeJSON(w, http.StatusBadRequest, webhookErrorResponse{Error: "failed to read request body"})
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		status = http.StatusBadRequest
		writeJSON(w, http.StatusBadRequest, webhookErrorResponse{Error: "missing Stripe signature"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, h.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		status = http.StatusBadRequest
		writeJSON(w, http.StatusBadRequest, webhookErrorResponse{Error: "invalid Stripe signature"})
		return
	}
	eventType = string(event.Type)

	if err := h.handleEvent(r.Context(), &event); err != nil {
		log.Error().Err(err).
			Str("event_id", event.ID).
			Str("type", string(event.Type)).
			Msg("Stripe webhook processing failed")
		status = http.StatusInternalServerError
		writeJSON(w, http.StatusInternalServerError, webhookErrorResponse{Error: "processing failed"})
		return
	}

	status = http.StatusOK
	writeJSON(w, http.StatusOK, webhookReceivedResponse{Received: true})
}

func (h *WebhookHandler) handleEvent(ctx context.Context, event *stripelib.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var session CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("decode checkout.session: %w", err)
		}
		return h.handleCheckoutCompleted(ctx, session)

	case "customer.subscription.updated":
		var sub Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		return h.handleSubscriptionUpdated(ctx, sub)

	case "customer.subscription.deleted":
		var sub Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		return h.handleSubscriptionDeleted(ctx, sub)

	default:
		log.Info().
			Str("type", string(event.Type)).
			Str("event_id", event.ID).
			Msg("Stripe webhook ignored (unhandled type)")
		return nil
	}
}

// handleCheckoutCompleted attaches the Stripe customer to the team named in
// the session's client reference and pulls the fresh subscription state.
func (h *WebhookHandler) handleCheckoutCompleted(ctx context.Context, session CheckoutSession) error {
	teamID, err := strconv.ParseInt(strings.TrimSpace(session.ClientReferenceID), 10, 64)
	if err != nil || teamID <= 0 {
		// Sessions created outside this service carry no team reference.
		log.Warn().Str("session_id", session.ID).Msg("Checkout session has no team reference, skipping")
		return nil
	}
	customerID := strings.TrimSpace(session.Customer)
	if !IsSafeStripeID(customerID) {
		return fmt.Errorf("checkout session %s carries unsafe customer id", session.ID)
	}

	if err := h.store.AttachStripeCustomer(ctx, teamID, customerID); err != nil && !errors.Is(err, apperrors.ErrConflict) {
		return fmt.Errorf("attach customer %s to team %d: %w", customerID, teamID, err)
	}

	subID := strings.TrimSpace(session.Subscription)
	if subID == "" {
		return nil
	}
	sub, err := h.getSubscription(subID, &stripelib.SubscriptionParams{
		Params: stripelib.Params{Expand: []*string{stripelib.String("items.data.price.product")}},
	})
	if err != nil {
		return fmt.Errorf("retrieve subscription %s: %w", subID, err)
	}

	upd := store.SubscriptionUpdate{
		StripeSubscriptionID: sub.ID,
		SubscriptionStatus:   string(MapSubscriptionStatus(string(sub.Status))),
	}
	if len(sub.Items.Data) > 0 {
		price := sub.Items.Data[0].Price
		if price != nil && price.Product != nil {
			upd.StripeProductID = price.Product.ID
			upd.PlanName = price.Product.Name
		}
	}
	if err := h.store.UpdateTeamSubscription(ctx, teamID, upd); err != nil {
		return fmt.Errorf("update team %d subscription: %w", teamID, err)
	}

	log.Info().
		Int64("team_id", teamID).
		Str("customer_id", customerID).
		Str("subscription_id", sub.ID).
		Msg("Checkout completed, team subscription provisioned")
	return nil
}

func (h *WebhookHandler) handleSubscriptionUpdated(ctx context.Context, sub Subscription) error {
	team, err := h.teamForCustomer(ctx, sub.Customer)
	if err != nil || team == nil {
		return err
	}

	upd := store.SubscriptionUpdate{
		StripeSubscriptionID: sub.ID,
		StripeProductID:      sub.FirstProductID(),
		PlanName:             sub.PlanName(),
		SubscriptionStatus:   string(MapSubscriptionStatus(sub.Status)),
	}
	if err := h.store.UpdateTeamSubscription(ctx, team.ID, upd); err != nil {
		return fmt.Errorf("update team %d subscription: %w", team.ID, err)
	}

	log.Info().
		Int64("team_id", team.ID).
		Str("subscription_id", sub.ID).
		Str("status", sub.Status).
		Msg("Team subscription updated")
	return nil
}

func (h *WebhookHandler) handleSubscriptionDeleted(ctx context.Context, sub Subscription) error {
	team, err := h.teamForCustomer(ctx, sub.Customer)
	if err != nil || team == nil {
		return err
	}

	upd := store.SubscriptionUpdate{
		SubscriptionStatus: string(store.SubscriptionStatusCanceled),
	}
	if err := h.store.UpdateTeamSubscription(ctx, team.ID, upd); err != nil {
		return fmt.Errorf("clear team %d subscription: %w", team.ID, err)
	}

	log.Info().
		Int64("team_id", team.ID).
		Str("subscription_id", sub.ID).
		Msg("Team subscription canceled")
	return nil
}

// teamForCustomer resolves the team for a webhook's customer ID. Events for
// customers this service never provisioned are logged and dropped rather
// than failed, so Stripe does not retry them forever.
func (h *WebhookHandler) teamForCustomer(ctx context.Context, customerID string) (*store.Team, error) {
	customerID = strings.TrimSpace(customerID)
	if !IsSafeStripeID(customerID) {
		log.Warn().Str("customer_id", customerID).Msg("Webhook carries unsafe customer id, skipping")
		return nil, nil
	}
	team, err := h.store.GetTeamByStripeCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Warn().Str("customer_id", customerID).Msg("No team for webhook customer, skipping")
			return nil, nil
		}
		return nil, fmt.Errorf("lookup team by customer %s: %w", customerID, err)
	}
	return team, nil
}

// CheckoutSession is a minimal representation of a Stripe checkout.session
// event.
type CheckoutSession struct {
	ID                string            `json:"id"`
	Mode              string            `json:"mode"`
	Customer          string            `json:"customer"`
	Subscription      string            `json:"subscription"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
}

// Subscription is a minimal representation of a Stripe subscription event.
type Subscription struct {
	ID                string `json:"id"`
	Customer          string `json:"customer"`
	Status            string `json:"status"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	Items             struct {
		Data []struct {
			Price struct {
				ID       string            `json:"id"`
				Product  string            `json:"product"`
				Nickname string            `json:"nickname"`
				Metadata map[string]string `json:"metadata"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
	Metadata map[string]string `json:"metadata"`
}

// FirstProductID returns the product ID from the first subscription item.
func (s *Subscription) FirstProductID() string {
	for _, item := range s.Items.Data {
		if id := strings.TrimSpace(item.Price.Product); id != "" {
			return id
		}
	}
	return ""
}

// PlanName derives a display name for the subscribed plan: price metadata
// first, then the price nickname.
func (s *Subscription) PlanName() string {
	for _, item := range s.Items.Data {
		if name := strings.TrimSpace(item.Price.Metadata["plan_name"]); name != "" {
			return name
		}
		if name := strings.TrimSpace(item.Price.Nickname); name != "" {
			return name
		}
	}
	return ""
}

func writeJSON[T any](w http.ResponseWriter, status int, v T) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode webhook response")
	}
}
