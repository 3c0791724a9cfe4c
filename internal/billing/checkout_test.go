package billing

import (
	"context"
	"strings"
	"testing"
	"time"

	stripelib "github.com/stripe/stripe-go/v82"
)

func TestCreateCheckoutSession(t *testing.T) {
	st := newTestStore(t)
	team := newBillingTeam(t, st, "")

	svc := NewService(st, "sk_test_123", "https://app.example.com/")
	var gotParams *stripelib.CheckoutSessionParams
	svc.createCheckoutSession = func(params *stripelib.CheckoutSessionParams) (*stripelib.CheckoutSession, error) {
		gotParams = params
		return &stripelib.CheckoutSession{URL: "https://checkout.stripe.com/c/cs_1"}, nil
	}

	url, err := svc.CreateCheckoutSession(context.Background(), team, "a@x.com", "price_1")
	if err != nil {
		t.Fatalf("CreateCheckoutSession: %v", err)
	}
	if url != "https://checkout.stripe.com/c/cs_1" {
		t.Errorf("url = %q", url)
	}
	if gotParams == nil {
		t.Fatal("session params not captured")
	}
	if got := stripelib.StringValue(gotParams.ClientReferenceID); got != "1" {
		t.Errorf("client reference = %q, want team id 1", got)
	}
	if got := stripelib.StringValue(gotParams.CustomerEmail); got != "a@x.com" {
		t.Errorf("customer email = %q, want a@x.com", got)
	}

	// Checkout start is metered.
	total, err := st.UsageTotal(context.Background(), team.ID, "billing.checkout_started", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 {
		t.Errorf("billing.checkout_started total = %d, want 1", total)
	}
}

func TestCreateCheckoutSessionReusesCustomer(t *testing.T) {
	st := newTestStore(t)
	team := newBillingTeam(t, st, "cus_123")
	team.StripeCustomerID = "cus_123"

	svc := NewService(st, "sk_test_123", "https://app.example.com")
	svc.createCheckoutSession = func(params *stripelib.CheckoutSessionParams) (*stripelib.CheckoutSession, error) {
		if got := stripelib.StringValue(params.Customer); got != "cus_123" {
			t.Errorf("customer = %q, want cus_123", got)
		}
		if params.CustomerEmail != nil {
			t.Error("customer email should not be set when a customer exists")
		}
		return &stripelib.CheckoutSession{URL: "https://checkout.stripe.com/c/cs_2"}, nil
	}

	if _, err := svc.CreateCheckoutSession(context.Background(), team, "a@x.com", "price_1"); err != nil {
		t.Fatal(err)
	}
}

func TestCreateCheckoutSessionWithoutURL(t *testing.T) {
	st := newTestStore(t)
	team := newBillingTeam(t, st, "")

	svc := NewService(st, "sk_test_123", "https://app.example.com")
	svc.createCheckoutSession = func(params *stripelib.CheckoutSessionParams) (*stripelib.CheckoutSession, error) {
		return &stripelib.CheckoutSession{}, nil
	}

	_, err := svc.CreateCheckoutSession(context.Background(), team, "a@x.com", "price_1")
	if err == nil {
		t.Fatal("expected error for session without URL")
	}
	if got := err.Error(); strings.Contains(got, "%!w") {
		t.Fatalf("error message wraps a nil error: %q", got)
	}

	// A failed checkout start is not metered.
	total, err := st.UsageTotal(context.Background(), team.ID, "billing.checkout_started", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 {
		t.Errorf("billing.checkout_started total = %d, want 0", total)
	}
}

func TestCreatePortalSession(t *testing.T) {
	st := newTestStore(t)
	team := newBillingTeam(t, st, "cus_123")
	team.StripeCustomerID = "cus_123"

	svc := NewService(st, "sk_test_123", "https://app.example.com")
	svc.createPortalSession = func(params *stripelib.BillingPortalSessionParams) (*stripelib.BillingPortalSession, error) {
		if got := stripelib.StringValue(params.Customer); got != "cus_123" {
			t.Errorf("customer = %q, want cus_123", got)
		}
		return &stripelib.BillingPortalSession{URL: "https://billing.stripe.com/p/ps_1"}, nil
	}

	url, err := svc.CreatePortalSession(context.Background(), team)
	if err != nil {
		t.Fatalf("CreatePortalSession: %v", err)
	}
	if url != "https://billing.stripe.com/p/ps_1" {
		t.Errorf("url = %q", url)
	}
}

func TestCreatePortalSessionWithoutCustomer(t *testing.T) {
	st := newTestStore(t)
	team := newBillingTeam(t, st, "")

	svc := NewService(st, "sk_test_123", "https://app.example.com")
	if _, err := svc.CreatePortalSession(context.Background(), team); err == nil {
		t.Fatal("expected error for team without billing customer")
	}
}
