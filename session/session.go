// Package session defines the session collaborator that tells the
// enrollment engine who the current user is.
package session

import (
	"context"

	"github.com/openfun/richie-sub000/enrollment"
)

// Provider resolves the current user.
// A nil user with a nil error means the visitor is anonymous.
type Provider interface {
	CurrentUser(ctx context.Context) (*enrollment.User, error)
}

// Loginer is implemented by providers that can send a visitor to a login page.
type Loginer interface {
	// LoginURL returns the URL of the login page that returns to next.
	LoginURL(next string) string
}

// ProviderFunc adapts a function to a Provider.
type ProviderFunc func(ctx context.Context) (*enrollment.User, error)

// CurrentUser calls f(ctx).
func (f ProviderFunc) CurrentUser(ctx context.Context) (*enrollment.User, error) {
	return f(ctx)
}

// Static always returns the same user.
type Static struct {
	User *enrollment.User
}

// NewStatic creates a provider for user. A nil user is anonymous.
func NewStatic(user *enrollment.User) *Static {
	return &Static{User: user}
}

// CurrentUser returns a copy of the static user.
func (s *Static) CurrentUser(_ context.Context) (*enrollment.User, error) {
	if s.User == nil {
		return nil, nil
	}
	u := *s.User
	return &u, nil
}
