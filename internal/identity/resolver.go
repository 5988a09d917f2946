// Package identity resolves the signed-in user for one client session.
package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotReady is returned by User before the first resolution completes.
var ErrNotReady = errors.New("identity not resolved yet")

type User struct {
	ID       string
	Provider string
}

// Provider is the identity backend seen by the resolver.
type Provider interface {
	// CurrentUser reports a user that is already signed in, if any.
	CurrentUser() (*User, bool)
	SignInWithCustomToken(ctx context.Context, token string) (*User, error)
	SignInAnonymously(ctx context.Context) (*User, error)
}

// Resolver performs the first sign-in of a session. It resolves at most once;
// later calls return the first outcome and never retry.
type Resolver struct {
	once  sync.Once
	ready chan struct{}

	mu   sync.RWMutex
	user *User
	err  error
}

func NewResolver() *Resolver {
	return &Resolver{ready: make(chan struct{})}
}

// Resolve exposes the provider's current user or signs in silently: with the
// custom token when one was injected at boot, anonymously otherwise.
func (r *Resolver) Resolve(ctx context.Context, p Provider, initialToken string) (*User, error) {
	r.once.Do(func() {
		user, err := resolve(ctx, p, initialToken)

		r.mu.Lock()
		r.user, r.err = user, err
		r.mu.Unlock()

		close(r.ready)
	})
	return r.User()
}

func resolve(ctx context.Context, p Provider, initialToken string) (*User, error) {
	if user, ok := p.CurrentUser(); ok {
		return user, nil
	}

	var (
		user *User
		err  error
	)
	if initialToken != "" {
		user, err = p.SignInWithCustomToken(ctx, initialToken)
	} else {
		user, err = p.SignInAnonymously(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("sign-in failed: %w", err)
	}
	if user == nil || user.ID == "" {
		return nil, errors.New("sign-in returned no user")
	}
	return user, nil
}

// Ready is closed once the first resolution has finished, successfully or not.
func (r *Resolver) Ready() <-chan struct{} {
	return r.ready
}

func (r *Resolver) User() (*User, error) {
	select {
	case <-r.ready:
	default:
		return nil, ErrNotReady
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.user, r.err
}
