package client

import (
	"context"

	"learning-diary/internal/identity"
	"learning-diary/internal/logger"
	"learning-diary/internal/models"
)

// Identity adapts the backend's sign-in endpoints and the on-disk token
// cache to identity.Provider.
type Identity struct {
	client *Client
	cache  *TokenCache
}

func NewIdentity(c *Client, cache *TokenCache) *Identity {
	return &Identity{client: c, cache: cache}
}

func (i *Identity) CurrentUser() (*identity.User, bool) {
	if i.cache == nil {
		return nil, false
	}
	s, ok := i.cache.Load()
	if !ok {
		return nil, false
	}
	i.client.SetToken(s.Token)
	return &identity.User{ID: s.UserID, Provider: s.Provider}, true
}

func (i *Identity) SignInWithCustomToken(ctx context.Context, token string) (*identity.User, error) {
	resp, err := i.client.SignInWithCustomToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return i.remember(resp), nil
}

func (i *Identity) SignInAnonymously(ctx context.Context) (*identity.User, error) {
	resp, err := i.client.SignInAnonymously(ctx)
	if err != nil {
		return nil, err
	}
	return i.remember(resp), nil
}

func (i *Identity) remember(resp *models.SignInResponse) *identity.User {
	if i.cache != nil {
		if err := i.cache.Save(resp); err != nil {
			logger.L.Warnw("could not cache session", "error", err)
		}
	}
	return &identity.User{ID: resp.UserID, Provider: resp.Provider}
}
