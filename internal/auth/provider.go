package auth

import (
	"context"
	"errors"

	"github.com/arispretz/codeuniverse-backend/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrUnauthorized       = errors.New("unauthorized")
)

// Roles attached to a verified identity. RoleGuest is the default for
// identities with no matching local user record.
const (
	RoleGuest = "guest"
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Identity is what the identity authority vouches for: a subject and,
// when available, an email. It carries no authorization level; the role is
// resolved separately against the local user store.
type Identity struct {
	Subject string
	Email   string
}

// Provider validates bearer credentials against an identity authority.
// Verify performs exactly one verification per call; failed credentials are
// never retried.
type Provider interface {
	Verify(ctx context.Context, token string) (*Identity, error)
	Name() string
}

// LoginProvider is implemented by providers that support username/password
// login (the builtin provider only; external authorities manage their own
// credentials).
type LoginProvider interface {
	Login(ctx context.Context, username, password string) (string, error)
	Register(ctx context.Context, username, password, role string) (*store.User, error)
}
