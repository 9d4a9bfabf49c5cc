package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrUnsupportedAuthRequest = errors.New("auth request not supported by this strategy")
	ErrUnknownProvider        = errors.New("identity provider not enabled")
	ErrInvalidIDToken         = errors.New("invalid identity provider token")
)

var (
	_ AuthStrategy = (*passwordStrategy)(nil)
	_ AuthStrategy = (*identityProviderStrategy)(nil)
)

// AuthRequest carries the inputs of one authentication attempt.
// Exactly one of its fields is set.
type AuthRequest struct {
	Credentials  *Credentials
	Registration *RegisterData
	Provider     *ProviderCredentials
}

// AuthStrategy turns user inputs into an API token and profile.
type AuthStrategy interface {
	Name() string
	Authenticate(ctx context.Context, req AuthRequest) (*AuthResponse, error)
}

// passwordStrategy authenticates with local email and password credentials.
type passwordStrategy struct {
	api AuthEndpoints
}

func NewPasswordStrategy(api AuthEndpoints) AuthStrategy {
	return &passwordStrategy{api: api}
}

func (ps *passwordStrategy) Name() string { return PasswordStrategy }

func (ps *passwordStrategy) Authenticate(ctx context.Context, req AuthRequest) (*AuthResponse, error) {
	switch {
	case req.Credentials != nil:
		return ps.api.Login(ctx, *req.Credentials)
	case req.Registration != nil:
		return ps.api.Register(ctx, *req.Registration)
	default:
		return nil, ErrUnsupportedAuthRequest
	}
}

// identityProviderStrategy exchanges an ID token issued by a third party
// provider for an API token. The ID token signature is checked by the API,
// here only its expiry and audience are inspected to fail early.
type identityProviderStrategy struct {
	api       AuthEndpoints
	clock     Clocker
	providers map[string]struct{}
	audience  string
}

func NewIdentityProviderStrategy(api AuthEndpoints, clock Clocker, providers []string, audience string) AuthStrategy {
	allowed := make(map[string]struct{}, len(providers))
	for _, p := range providers {
		allowed[p] = struct{}{}
	}
	return &identityProviderStrategy{api: api, clock: clock, providers: allowed, audience: audience}
}

func (ips *identityProviderStrategy) Name() string { return IdentityProviderKey }

func (ips *identityProviderStrategy) Authenticate(ctx context.Context, req AuthRequest) (*AuthResponse, error) {
	if req.Provider == nil {
		return nil, ErrUnsupportedAuthRequest
	}
	if _, ok := ips.providers[req.Provider.Provider]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, req.Provider.Provider)
	}
	if err := CheckIDToken(req.Provider.IDToken, ips.audience, ips.clock.Now()); err != nil {
		return nil, err
	}
	return ips.api.LoginWithProvider(ctx, *req.Provider)
}

// CheckIDToken parses the unverified claims of a JWT and rejects it when it is
// expired or when it was issued for another audience than the expected one.
func CheckIDToken(raw, audience string, now time.Time) error {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidIDToken, err)
	}
	if claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time) {
		return fmt.Errorf("%w: expired at %s", ErrInvalidIDToken, claims.ExpiresAt.Time.Format(time.RFC3339))
	}
	if audience == "" {
		return nil
	}
	for _, aud := range claims.Audience {
		if aud == audience {
			return nil
		}
	}
	return fmt.Errorf("%w: unexpected audience", ErrInvalidIDToken)
}

// TokenExpired reports whether the token is a JWT whose expiry is already
// past. Opaque tokens are never considered expired here.
func TokenExpired(raw string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time)
}
