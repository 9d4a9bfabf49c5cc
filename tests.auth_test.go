package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCheckIDToken ensures expired or foreign provider tokens are rejected early.
func TestCheckIDToken(t *testing.T) {
	now := NewMockClocker().Now()
	testCases := []struct {
		name     string
		claims   jwt.RegisteredClaims
		audience string
		valid    bool
	}{
		{"valid token", jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)), Audience: jwt.ClaimStrings{"client-1"}}, "client-1", true},
		{"no audience expected", jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}, "", true},
		{"expired token", jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute))}, "", false},
		{"expiring now", jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now)}, "", false},
		{"other audience", jwt.RegisteredClaims{Audience: jwt.ClaimStrings{"client-2"}}, "client-1", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckIDToken(signedTestToken(t, tc.claims), tc.audience, now)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrInvalidIDToken))
			}
		})
	}

	t.Run("malformed token", func(t *testing.T) {
		assert.True(t, errors.Is(CheckIDToken("not-a-jwt", "", now), ErrInvalidIDToken))
	})
}

// TestTokenExpired ensures only expired JWTs are reported, opaque tokens never are.
func TestTokenExpired(t *testing.T) {
	now := NewMockClocker().Now()
	assert.False(t, TokenExpired("opaque-token", now))
	assert.False(t, TokenExpired(signedTestToken(t, jwt.RegisteredClaims{}), now))
	assert.False(t, TokenExpired(signedTestToken(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}), now))
	assert.True(t, TokenExpired(signedTestToken(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour))}), now))
}

// TestPasswordStrategy ensures the strategy routes each request kind to its endpoint.
func TestPasswordStrategy(t *testing.T) {
	var called string
	api := &MockAuthEndpoints{
		LoginFunc: func(ctx context.Context, creds Credentials) (*AuthResponse, error) {
			called = "login"
			return &AuthResponse{Token: "t"}, nil
		},
		RegisterFunc: func(ctx context.Context, data RegisterData) (*AuthResponse, error) {
			called = "register"
			return &AuthResponse{Token: "t"}, nil
		},
	}
	ps := NewPasswordStrategy(api)
	assert.Equal(t, PasswordStrategy, ps.Name())

	_, err := ps.Authenticate(context.Background(), AuthRequest{Credentials: &Credentials{}})
	require.NoError(t, err)
	assert.Equal(t, "login", called)

	_, err = ps.Authenticate(context.Background(), AuthRequest{Registration: &RegisterData{}})
	require.NoError(t, err)
	assert.Equal(t, "register", called)

	_, err = ps.Authenticate(context.Background(), AuthRequest{Provider: &ProviderCredentials{}})
	assert.ErrorIs(t, err, ErrUnsupportedAuthRequest)
}

// TestIdentityProviderStrategy ensures only enabled providers with a usable token reach the API.
func TestIdentityProviderStrategy(t *testing.T) {
	clock := NewMockClocker()
	calls := 0
	api := &MockAuthEndpoints{
		LoginWithProviderFunc: func(ctx context.Context, creds ProviderCredentials) (*AuthResponse, error) {
			calls++
			return &AuthResponse{Token: "t", Profile: Profile{ID: "u1"}}, nil
		},
	}
	ips := NewIdentityProviderStrategy(api, clock, []string{"google"}, "client-1")
	valid := signedTestToken(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)), Audience: jwt.ClaimStrings{"client-1"}})

	_, err := ips.Authenticate(context.Background(), AuthRequest{Provider: &ProviderCredentials{Provider: "github", IDToken: valid}})
	assert.ErrorIs(t, err, ErrUnknownProvider)

	_, err = ips.Authenticate(context.Background(), AuthRequest{Provider: &ProviderCredentials{Provider: "google", IDToken: "bad"}})
	assert.ErrorIs(t, err, ErrInvalidIDToken)
	assert.Equal(t, 0, calls)

	resp, err := ips.Authenticate(context.Background(), AuthRequest{Provider: &ProviderCredentials{Provider: "google", IDToken: valid}})
	require.NoError(t, err)
	assert.Equal(t, "u1", resp.ID)
	assert.Equal(t, 1, calls)
}
