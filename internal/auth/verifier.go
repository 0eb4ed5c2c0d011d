// Package auth verifies identity-provider access tokens and carries the
// resulting identity through request contexts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/loggerapp/logger-api/internal/domain"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

const (
	DefaultUsernameClaim = "https://my-app.com/username"
	DefaultEmailClaim    = "https://my-app.com/email"
)

// Config describes the token issuer and the claims identity is read from.
type Config struct {
	// IssuerURL is compared verbatim with the token's iss claim. Auth0
	// issuers end with a slash.
	IssuerURL string
	Audience  string

	// UsernameClaim and EmailClaim name the namespaced custom claims that
	// carry the display name and email.
	UsernameClaim string
	EmailClaim    string
}

// Verifier checks RS256 access tokens against the issuer's key set.
type Verifier struct {
	verifier      *oidc.IDTokenVerifier
	usernameClaim string
	emailClaim    string
}

// NewVerifier builds a Verifier whose keys are fetched lazily from the
// issuer's JWKS endpoint and cached. ctx bounds the key set's lifetime.
func NewVerifier(ctx context.Context, cfg Config) *Verifier {
	jwksURL := strings.TrimSuffix(cfg.IssuerURL, "/") + "/.well-known/jwks.json"
	return NewVerifierWithKeySet(cfg, oidc.NewRemoteKeySet(ctx, jwksURL))
}

// NewVerifierWithKeySet builds a Verifier over an explicit key set.
func NewVerifierWithKeySet(cfg Config, keys oidc.KeySet) *Verifier {
	if cfg.UsernameClaim == "" {
		cfg.UsernameClaim = DefaultUsernameClaim
	}
	if cfg.EmailClaim == "" {
		cfg.EmailClaim = DefaultEmailClaim
	}
	return &Verifier{
		verifier: oidc.NewVerifier(cfg.IssuerURL, keys, &oidc.Config{
			ClientID:             cfg.Audience,
			SupportedSigningAlgs: []string{oidc.RS256},
		}),
		usernameClaim: cfg.UsernameClaim,
		emailClaim:    cfg.EmailClaim,
	}
}

// Verify checks signature, issuer, audience, and expiry of raw and returns
// the identity it asserts. Every failure wraps ErrInvalidToken.
func (v *Verifier) Verify(ctx context.Context, raw string) (domain.Identity, error) {
	tok, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("auth.Verifier.Verify: %w: %w", ErrInvalidToken, err)
	}

	var claims map[string]any
	if err := tok.Claims(&claims); err != nil {
		return domain.Identity{}, fmt.Errorf("auth.Verifier.Verify: %w: claims: %w", ErrInvalidToken, err)
	}
	if tok.Subject == "" {
		return domain.Identity{}, fmt.Errorf("auth.Verifier.Verify: %w: missing subject", ErrInvalidToken)
	}

	username, _ := claims[v.usernameClaim].(string)
	email, _ := claims[v.emailClaim].(string)
	return domain.Identity{Subject: tok.Subject, Username: username, Email: email}, nil
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored by WithIdentity.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(domain.Identity)
	return id, ok
}
