package billing

import (
	stripelib "github.com/stripe/stripe-go/v82"
	stripesub "github.com/stripe/stripe-go/v82/subscription"

	"github.com/teamplane/teamplane/internal/store"
)

// MapSubscriptionStatus converts a Stripe subscription status string to the
// internal enum. Unknown statuses fail closed (unpaid).
func MapSubscriptionStatus(status string) store.SubscriptionStatus {
	switch store.SubscriptionStatus(status) {
	case store.SubscriptionStatusActive,
		store.SubscriptionStatusTrialing,
		store.SubscriptionStatusPastDue,
		store.SubscriptionStatusCanceled,
		store.SubscriptionStatusUnpaid,
		store.SubscriptionStatusIncomplete,
		store.SubscriptionStatusIncompleteExpired:
		return store.SubscriptionStatus(status)
	}
	return store.SubscriptionStatusUnpaid
}

// IsSafeStripeID validates that a Stripe ID (cus_..., sub_...) is safe for
// use as a lookup key.
func IsSafeStripeID(stripeID string) bool {
	if len(stripeID) < 5 || len(stripeID) > 128 {
		return false
	}
	for i := 0; i < len(stripeID); i++ {
		c := stripeID[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '-' {
			continue
		}
		return false
	}
	return true
}

func retrieveSubscription(id string, params *stripelib.SubscriptionParams) (*stripelib.Subscription, error) {
	return stripesub.Get(id, params)
}
