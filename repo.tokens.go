package main

import (
	"context"
	"errors"
)

var ErrTokenNotFound = errors.New("token not found")

// TokenStore persists the API token of each visitor under a local key.
// It plays the role of the browser local storage for the rendered pages.
type TokenStore interface {
	Get(ctx context.Context, visitorID string) (string, error)
	Set(ctx context.Context, visitorID, token string) error
	Delete(ctx context.Context, visitorID string) error
	Close() error
}

// TokenKey is the storage key of a visitor token.
func TokenKey(visitorID string) string {
	return "visitor:" + visitorID + ":token"
}

// visitorTokenSource reads the visitor token on every outgoing call.
type visitorTokenSource struct {
	store     TokenStore
	visitorID string
}

// Token returns the persisted token or an empty string when there is none.
func (vts *visitorTokenSource) Token(ctx context.Context) (string, error) {
	token, err := vts.store.Get(ctx, vts.visitorID)
	if errors.Is(err, ErrTokenNotFound) {
		return "", nil
	}
	return token, err
}
