// Package creds abstracts the identity provider down to the one thing the
// sync core needs from it: a bearer token string, or nothing.
package creds

import "context"

// Provider yields the current bearer credential. An empty string with a
// nil error means the client proceeds unauthenticated; the server decides
// whether to accept that.
type Provider interface {
	Token(ctx context.Context) (string, error)
}

type Static struct {
	token string
}

func NewStatic(token string) *Static {
	return &Static{token: token}
}

func (s *Static) Token(_ context.Context) (string, error) {
	return s.token, nil
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context) (string, error)

func (f ProviderFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}
