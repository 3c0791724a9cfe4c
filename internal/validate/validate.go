// Package validate holds the input validation rules for the provisioning
// HTTP surface. Validators return *apperrors.ValidationError carrying
// field-level messages so handlers can render them directly.
package validate

import (
	"net/mail"
	"strings"

	"github.com/teamplane/teamplane/internal/apperrors"
	"github.com/teamplane/teamplane/internal/store"
)

const (
	TeamNameMinLen = 3
	TeamNameMaxLen = 100

	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// TeamName checks the display-name rules: 3 to 100 characters, letters,
// digits, spaces and hyphens only.
func TeamName(name string) error {
	var v apperrors.ValidationError
	checkTeamName(&v, "name", name)
	if v.HasErrors() {
		return &v
	}
	return nil
}

func checkTeamName(v *apperrors.ValidationError, field, name string) {
	name = strings.TrimSpace(name)
	if len(name) < TeamNameMinLen {
		v.Add(field, "must be at least 3 characters")
		return
	}
	if len(name) > TeamNameMaxLen {
		v.Add(field, "must be at most 100 characters")
		return
	}
	for _, r := range name {
		if !isTeamNameRune(r) {
			v.Add(field, "may only contain letters, numbers, spaces and hyphens")
			return
		}
	}
}

func isTeamNameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == ' ' || r == '-':
		return true
	}
	return false
}

// Email checks RFC 5322 address syntax and rejects addresses with a display
// name part.
func Email(email string) error {
	var v apperrors.ValidationError
	checkEmail(&v, "email", email)
	if v.HasErrors() {
		return &v
	}
	return nil
}

func checkEmail(v *apperrors.ValidationError, field, email string) {
	email = strings.TrimSpace(email)
	if email == "" {
		v.Add(field, "is required")
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		v.Add(field, "invalid email address")
	}
}

// ID checks that an entity identifier is positive.
func ID(field string, id int64) error {
	if id <= 0 {
		var v apperrors.ValidationError
		return v.Add(field, "must be a positive integer")
	}
	return nil
}

// Pagination clamps page/limit query values onto their allowed ranges.
// Zero values take the defaults; a limit above the cap is an error rather
// than being silently clamped.
func Pagination(page, limit int) (int, int, error) {
	if page == 0 {
		page = DefaultPage
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	var v apperrors.ValidationError
	if page < 1 {
		v.Add("page", "must be at least 1")
	}
	if limit < 1 {
		v.Add("limit", "must be at least 1")
	}
	if limit > MaxLimit {
		v.Add("limit", "must be at most 100")
	}
	if v.HasErrors() {
		return 0, 0, &v
	}
	return page, limit, nil
}

// Slug checks a project slug: lowercase letters, digits and hyphens, no
// leading or trailing hyphen.
func Slug(slug string) error {
	var v apperrors.ValidationError
	if slug == "" {
		return v.Add("slug", "is required")
	}
	if len(slug) > 64 {
		return v.Add("slug", "must be at most 64 characters")
	}
	for _, r := range slug {
		ok := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-'
		if !ok {
			return v.Add("slug", "may only contain lowercase letters, numbers and hyphens")
		}
	}
	if slug[0] == '-' || slug[len(slug)-1] == '-' {
		return v.Add("slug", "must not start or end with a hyphen")
	}
	return nil
}

// CheckoutPriceID checks the Stripe price identifier passed to checkout.
func CheckoutPriceID(priceID string) error {
	var v apperrors.ValidationError
	if priceID == "" {
		return v.Add("priceId", "is required")
	}
	if !strings.HasPrefix(priceID, "price_") {
		return v.Add("priceId", "must be a Stripe price identifier")
	}
	return nil
}

var subscriptionStatuses = map[store.SubscriptionStatus]bool{
	store.SubscriptionStatusActive:            true,
	store.SubscriptionStatusTrialing:          true,
	store.SubscriptionStatusPastDue:           true,
	store.SubscriptionStatusCanceled:          true,
	store.SubscriptionStatusUnpaid:            true,
	store.SubscriptionStatusIncomplete:        true,
	store.SubscriptionStatusIncompleteExpired: true,
}

// SubscriptionStatus checks a billing status against the known lifecycle
// values.
func SubscriptionStatus(status string) error {
	if !subscriptionStatuses[store.SubscriptionStatus(status)] {
		var v apperrors.ValidationError
		return v.Add("status", "unknown subscription status")
	}
	return nil
}

// InviteMember checks an invitation request: a valid address plus a known
// membership role.
func InviteMember(email, role string) error {
	var v apperrors.ValidationError
	checkEmail(&v, "email", email)
	if r := store.UserRole(role); r != store.UserRoleOwner && r != store.UserRoleMember {
		v.Add("role", "must be owner or member")
	}
	if v.HasErrors() {
		return &v
	}
	return nil
}

// CreateTeam checks a team-creation request.
func CreateTeam(name string) error {
	return TeamName(name)
}
