package billing

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	stripelib "github.com/stripe/stripe-go/v82"
	stripewebhook "github.com/stripe/stripe-go/v82/webhook"

	"github.com/teamplane/teamplane/internal/store"
)

const testSecret = "whsec_test_secret"

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newBillingTeam(t *testing.T, st *store.Store, customerID string) *store.Team {
	t.Helper()
	ctx := context.Background()
	u := &store.User{Email: "a@x.com", Role: store.UserRoleOwner}
	if err := st.CreateUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	team, err := st.CreateTeamWithOwner(ctx, "Team", u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if customerID != "" {
		if err := st.AttachStripeCustomer(ctx, team.ID, customerID); err != nil {
			t.Fatal(err)
		}
	}
	return team
}

func signedWebhookRequest(t *testing.T, secret, payload string) *http.Request {
	t.Helper()

	signed := stripewebhook.GenerateTestSignedPayload(&stripewebhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    secret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/billing/webhook", bytes.NewReader(signed.Payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	handler := NewWebhookHandler(testSecret, newTestStore(t))

	req := httptest.NewRequest(http.MethodPost, "/api/billing/webhook", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Stripe-Signature", "t=1,v1=bogus")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	handler := NewWebhookHandler(testSecret, newTestStore(t))

	req := httptest.NewRequest(http.MethodPost, "/api/billing/webhook", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestWebhookWithoutSecretUnavailable(t *testing.T) {
	handler := NewWebhookHandler("", newTestStore(t))

	req := signedWebhookRequest(t, testSecret, `{}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestWebhookIgnoresUnhandledEventTypes(t *testing.T) {
	handler := NewWebhookHandler(testSecret, newTestStore(t))

	payload := `{"id":"evt_1","object":"event","type":"invoice.paid","data":{"object":{}}}`
	req := signedWebhookRequest(t, testSecret, payload)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body = %s", rec.Code, http.StatusOK, rec.Body.String())
	}
}

func TestWebhookSubscriptionUpdated(t *testing.T) {
	st := newTestStore(t)
	team := newBillingTeam(t, st, "cus_123")
	handler := NewWebhookHandler(testSecret, st)

	payload := `{"id":"evt_1","object":"event","type":"customer.subscription.updated","data":{"object":{
		"id":"sub_1","customer":"cus_123","status":"active",
		"items":{"data":[{"price":{"id":"price_1","product":"prod_1","nickname":"Pro"}}]}}}}`
	req := signedWebhookRequest(t, testSecret, payload)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body = %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	got, err := st.GetTeamByID(context.Background(), team.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.StripeSubscriptionID != "sub_1" || got.StripeProductID != "prod_1" {
		t.Errorf("subscription = (%q, %q), want (sub_1, prod_1)", got.StripeSubscriptionID, got.StripeProductID)
	}
	if got.PlanName != "Pro" || got.SubscriptionStatus != "active" {
		t.Errorf("plan = (%q, %q), want (Pro, active)", got.PlanName, got.SubscriptionStatus)
	}
}

func TestWebhookSubscriptionUpdatedUnknownCustomerSkipped(t *testing.T) {
	st := newTestStore(t)
	handler := NewWebhookHandler(testSecret, st)

	// No team carries cus_999; the event is acknowledged without an error so
	// Stripe does not retry it forever.
	payload := `{"id":"evt_1","object":"event","type":"customer.subscription.updated","data":{"object":{
		"id":"sub_1","customer":"cus_999","status":"active"}}}`
	req := signedWebhookRequest(t, testSecret, payload)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body = %s", rec.Code, http.StatusOK, rec.Body.String())
	}
}

func TestWebhookSubscriptionDeleted(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	team := newBillingTeam(t, st, "cus_123")
	if err := st.UpdateTeamSubscription(ctx, team.ID, store.SubscriptionUpdate{
		StripeSubscriptionID: "sub_1",
		StripeProductID:      "prod_1",
		PlanName:             "Pro",
		SubscriptionStatus:   "active",
	}); err != nil {
		t.Fatal(err)
	}

	handler := NewWebhookHandler(testSecret, st)
	payload := `{"id":"evt_2","object":"event","type":"customer.subscription.deleted","data":{"object":{
		"id":"sub_1","customer":"cus_123","status":"canceled"}}}`
	req := signedWebhookRequest(t, testSecret, payload)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body = %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	got, err := st.GetTeamByID(ctx, team.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.SubscriptionStatus != "canceled" {
		t.Errorf("status = %q, want canceled", got.SubscriptionStatus)
	}
	if got.StripeSubscriptionID != "" || got.PlanName != "" {
		t.Errorf("subscription fields = (%q, %q), want cleared", got.StripeSubscriptionID, got.PlanName)
	}
}

func TestWebhookCheckoutCompleted(t *testing.T) {
	st := newTestStore(t)
	team := newBillingTeam(t, st, "")

	handler := NewWebhookHandler(testSecret, st)
	handler.getSubscription = func(id string, params *stripelib.SubscriptionParams) (*stripelib.Subscription, error) {
		if id != "sub_1" {
			t.Fatalf("getSubscription(%q), want sub_1", id)
		}
		return &stripelib.Subscription{
			ID:     "sub_1",
			Status: stripelib.SubscriptionStatusTrialing,
			Items: &stripelib.SubscriptionItemList{
				Data: []*stripelib.SubscriptionItem{{
					Price: &stripelib.Price{
						ID:      "price_1",
						Product: &stripelib.Product{ID: "prod_1", Name: "Pro"},
					},
				}},
			},
		}, nil
	}

	payload := `{"id":"evt_3","object":"event","type":"checkout.session.completed","data":{"object":{
		"id":"cs_1","mode":"subscription","customer":"cus_123","subscription":"sub_1",
		"client_reference_id":"1"}}}`
	req := signedWebhookRequest(t, testSecret, payload)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body = %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	got, err := st.GetTeamByStripeCustomerID(context.Background(), "cus_123")
	if err != nil {
		t.Fatalf("team should carry the checkout customer: %v", err)
	}
	if got.ID != team.ID {
		t.Errorf("customer attached to team %d, want %d", got.ID, team.ID)
	}
	if got.StripeSubscriptionID != "sub_1" || got.PlanName != "Pro" || got.SubscriptionStatus != "trialing" {
		t.Errorf("subscription = (%q, %q, %q), want (sub_1, Pro, trialing)",
			got.StripeSubscriptionID, got.PlanName, got.SubscriptionStatus)
	}
}

func TestMapSubscriptionStatus(t *testing.T) {
	if got := MapSubscriptionStatus("active"); got != store.SubscriptionStatusActive {
		t.Errorf("active mapped to %q", got)
	}
	if got := MapSubscriptionStatus("paused"); got != store.SubscriptionStatusUnpaid {
		t.Errorf("unknown status mapped to %q, want unpaid (fail closed)", got)
	}
}

func TestIsSafeStripeID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"cus_Abc123", true},
		{"sub_x-1_Y", true},
		{"cus", false},
		{"", false},
		{"cus_../etc", false},
		{"cus_abc def", false},
	}
	for _, tt := range tests {
		if got := IsSafeStripeID(tt.id); got != tt.want {
			t.Errorf("IsSafeStripeID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}
