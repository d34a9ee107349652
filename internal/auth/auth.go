// Package auth supplies the bearer credential attached to remote calls.
//
// Token acquisition and refresh are owned by an external identity provider;
// this package only defines the handoff point. Components that talk to the
// conversation store or the asset store take a TokenSource and attach
// whatever it returns as an Authorization header.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoToken indicates no credential is available for the current user.
var ErrNoToken = errors.New("no auth token available")

// TokenSource yields a valid bearer token for the current user.
// Implementations may cache or refresh internally; callers must not.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Static is a fixed token, typically read once from the environment.
type Static string

// Token implements TokenSource.
func (s Static) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrNoToken
	}
	return string(s), nil
}

// FromEnv reads a static token from the named environment variable.
func FromEnv(name string) (Static, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return "", fmt.Errorf("%w: %s is not set", ErrNoToken, name)
	}
	return Static(v), nil
}
