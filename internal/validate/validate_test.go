package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamplane/teamplane/internal/apperrors"
)

func fieldMessages(t *testing.T, err error) map[string]string {
	t.Helper()
	var v *apperrors.ValidationError
	require.True(t, errors.As(err, &v), "expected *ValidationError, got %T", err)
	out := make(map[string]string, len(v.Fields))
	for _, f := range v.Fields {
		out[f.Field] = f.Message
	}
	return out
}

func TestTeamName(t *testing.T) {
	assert.NoError(t, TeamName("Acme Corp"))
	assert.NoError(t, TeamName("a-team-42"))

	tests := []struct {
		name string
		in   string
	}{
		{"too short", "ab"},
		{"too long", strings.Repeat("a", 101)},
		{"bad rune", "Acme & Co"},
		{"whitespace only", "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := TeamName(tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			assert.Contains(t, fieldMessages(t, err), "name")
		})
	}
}

func TestEmail(t *testing.T) {
	assert.NoError(t, Email("user@example.com"))
	assert.NoError(t, Email("first.last+tag@sub.example.co.uk"))

	for _, in := range []string{"", "not-an-email", "Bob <bob@example.com>", "a@"} {
		err := Email(in)
		require.Error(t, err, "input %q", in)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	}
}

func TestID(t *testing.T) {
	assert.NoError(t, ID("team_id", 1))
	assert.ErrorIs(t, ID("team_id", 0), apperrors.ErrInvalidInput)
	assert.ErrorIs(t, ID("team_id", -5), apperrors.ErrInvalidInput)
}

func TestPagination(t *testing.T) {
	page, limit, err := Pagination(0, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultPage, page)
	assert.Equal(t, DefaultLimit, limit)

	page, limit, err = Pagination(3, 25)
	require.NoError(t, err)
	assert.Equal(t, 3, page)
	assert.Equal(t, 25, limit)

	_, _, err = Pagination(-1, 10)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, _, err = Pagination(1, MaxLimit+1)
	require.Error(t, err)
	assert.Contains(t, fieldMessages(t, err), "limit")
}

func TestSlug(t *testing.T) {
	assert.NoError(t, Slug("docs-site"))
	assert.NoError(t, Slug("a1"))

	for _, in := range []string{"", "Docs", "docs_site", "-docs", "docs-"} {
		assert.ErrorIs(t, Slug(in), apperrors.ErrInvalidInput, "input %q", in)
	}
}

func TestCheckoutPriceID(t *testing.T) {
	assert.NoError(t, CheckoutPriceID("price_1N2abcDEF"))
	assert.ErrorIs(t, CheckoutPriceID(""), apperrors.ErrInvalidInput)
	assert.ErrorIs(t, CheckoutPriceID("prod_123"), apperrors.ErrInvalidInput)
}

func TestSubscriptionStatus(t *testing.T) {
	for _, s := range []string{"active", "trialing", "past_due", "canceled", "unpaid", "incomplete", "incomplete_expired"} {
		assert.NoError(t, SubscriptionStatus(s), "status %q", s)
	}
	assert.ErrorIs(t, SubscriptionStatus("paused"), apperrors.ErrInvalidInput)
	assert.ErrorIs(t, SubscriptionStatus(""), apperrors.ErrInvalidInput)
}

func TestInviteMember(t *testing.T) {
	assert.NoError(t, InviteMember("new@example.com", "member"))
	assert.NoError(t, InviteMember("new@example.com", "owner"))

	err := InviteMember("bad", "admin")
	require.Error(t, err)
	msgs := fieldMessages(t, err)
	assert.Contains(t, msgs, "email")
	assert.Contains(t, msgs, "role")
}
