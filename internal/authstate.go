package internal

import (
	"context"
	"errors"
	"net/http"
)

// tokenKey is the store key holding the bearer token between runs.
const tokenKey = "token"

// AuthState persists the auth token and keeps the API client's bearer
// header in sync with it.
type AuthState struct {
	store  Store
	client *Client
}

// NewAuthState wires auth persistence to a store and client, loading any
// previously saved token into the client.
func NewAuthState(store Store, client *Client) *AuthState {
	a := &AuthState{store: store, client: client}
	if token, ok := store.Get(tokenKey); ok && token != "" {
		client.SetToken(token)
	}
	return a
}

// Token returns the stored token, if any.
func (a *AuthState) Token() (string, bool) {
	return a.store.Get(tokenKey)
}

// Login exchanges credentials for a token, persists it and returns the
// identity behind it.
func (a *AuthState) Login(ctx context.Context, username, password string) (*UserInfo, error) {
	tok, err := a.client.Token(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if err := a.store.Set(tokenKey, tok.AccessToken); err != nil {
		return nil, err
	}
	a.client.SetToken(tok.AccessToken)
	return a.client.Me(ctx)
}

// Register creates an account and logs straight in, so a fresh account
// is immediately usable.
func (a *AuthState) Register(ctx context.Context, email, password string) (*UserInfo, error) {
	if err := a.client.Register(ctx, email, password); err != nil {
		return nil, err
	}
	return a.Login(ctx, email, password)
}

// Whoami resolves the current token to an identity. A rejected token is
// dropped from the store so the next run starts logged out.
func (a *AuthState) Whoami(ctx context.Context) (*UserInfo, error) {
	if _, ok := a.Token(); !ok {
		return nil, errors.New("not logged in")
	}
	user, err := a.client.Me(ctx)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			a.Logout()
		}
		return nil, err
	}
	return user, nil
}

// Logout forgets the stored token.
func (a *AuthState) Logout() {
	if err := a.store.Remove(tokenKey); err != nil {
		LogWarn("failed to remove token: %v", err)
	}
	a.client.SetToken("")
}
