package identity

import (
	"context"
	"errors"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Identity is the resolved account behind a bearer credential.
type Identity struct {
	ID          string
	DisplayName string
	Role        Role
}

// ErrNoIdentity covers unknown, expired, and inactive credentials alike so
// the handshake cannot distinguish between them.
var ErrNoIdentity = errors.New("no matching active identity")

// Resolver maps a bearer credential to an identity. The lookup may hit a
// remote or disk-backed store, hence the context.
type Resolver interface {
	Resolve(ctx context.Context, credential string) (Identity, error)
}
