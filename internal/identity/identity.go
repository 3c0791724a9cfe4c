// Package identity verifies bearer tokens from the external identity
// provider and exposes the verified claims to the rest of the service.
// Provisioning trusts the provider for authentication; this package only
// checks token integrity and extracts the subject.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/teamplane/teamplane/internal/apperrors"
)

// Claims is the verified identity attached to a request. Subject is the
// provider-scoped stable identifier; Email and Name may be empty when the
// provider does not release them.
type Claims struct {
	Subject  string
	Provider string
	Email    string
	Name     string
}

// SyntheticEmail returns the placeholder address used when the provider
// releases no email. The address is deterministic per subject so repeated
// sign-ins resolve to the same user row.
func (c Claims) SyntheticEmail() string {
	provider := c.Provider
	if provider == "" {
		provider = "idp"
	}
	return fmt.Sprintf("user-%s@%s.local", c.Subject, provider)
}

// ResolvedEmail returns the provider email when present, otherwise the
// synthetic placeholder.
func (c Claims) ResolvedEmail() string {
	if c.Email != "" {
		return strings.ToLower(c.Email)
	}
	return c.SyntheticEmail()
}

// Verifier checks a raw bearer token and returns the claims it carries.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*Claims, error)
}

// OIDCVerifier verifies ID tokens against a discovered OIDC issuer.
type OIDCVerifier struct {
	provider string
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier discovers the issuer's signing keys and returns a
// verifier bound to the given client ID. providerName labels the issuer in
// synthetic addresses (e.g. "clerk").
func NewOIDCVerifier(ctx context.Context, issuerURL, clientID, providerName string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("discover oidc issuer %s: %w", issuerURL, err)
	}
	return &OIDCVerifier{
		provider: providerName,
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, apperrors.NewStoreError(apperrors.ErrorTypeAuth, "verify_token", "id_token", err)
	}

	var payload struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := idToken.Claims(&payload); err != nil {
		return nil, apperrors.NewStoreError(apperrors.ErrorTypeAuth, "verify_token", "id_token",
			fmt.Errorf("parse claims: %w", err))
	}
	if idToken.Subject == "" {
		return nil, apperrors.NewStoreError(apperrors.ErrorTypeAuth, "verify_token", "id_token",
			errors.New("token has no subject"))
	}

	return &Claims{
		Subject:  idToken.Subject,
		Provider: v.provider,
		Email:    strings.ToLower(payload.Email),
		Name:     payload.Name,
	}, nil
}

// StaticVerifier resolves tokens from a fixed map. Test use only.
type StaticVerifier struct {
	Tokens map[string]*Claims
}

func (v *StaticVerifier) Verify(_ context.Context, rawToken string) (*Claims, error) {
	if c, ok := v.Tokens[rawToken]; ok {
		return c, nil
	}
	return nil, apperrors.NewStoreError(apperrors.ErrorTypeAuth, "verify_token", "id_token",
		errors.New("unknown token"))
}
