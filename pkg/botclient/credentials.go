package botclient

import (
	"context"
)

// CredentialProvider supplies the bearer token for API requests. The
// client reads the token on every call rather than caching it, so a
// provider backed by a refreshing session always supplies the current
// credential.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a CredentialProvider returning a fixed token.
type StaticToken string

// Token returns the token.
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// TokenFunc adapts a function to the CredentialProvider interface.
type TokenFunc func(ctx context.Context) (string, error)

// Token calls the function.
func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}
