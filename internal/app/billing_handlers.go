package app

import (
	"net/http"

	"github.com/teamplane/teamplane/internal/validate"
)

type checkoutRequest struct {
	PriceID string `json:"priceId"`
}

type redirectResponse struct {
	URL string `json:"url"`
}

// HandleCheckout starts a Stripe Checkout session for the caller's team and
// returns the hosted page URL.
// Route: POST /api/billing/checkout
func (h *Handlers) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	user, team, err := h.currentTeam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req checkoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	if err := validate.CheckoutPriceID(req.PriceID); err != nil {
		writeError(w, err)
		return
	}

	url, err := h.billing.CreateCheckoutSession(r.Context(), team, user.Email, req.PriceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, redirectResponse{URL: url})
}

// HandlePortal opens a Stripe customer portal session for the caller's team.
// The team must already have a billing customer attached.
// Route: POST /api/billing/portal
func (h *Handlers) HandlePortal(w http.ResponseWriter, r *http.Request) {
	_, team, err := h.currentTeam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	url, err := h.billing.CreatePortalSession(r.Context(), team)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, redirectResponse{URL: url})
}
