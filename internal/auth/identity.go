package auth

import (
	"context"
	"slices"
)

// Identity is the verified caller of a request.
type Identity struct {
	Subject  string
	Role     Role
	Email    string
	CenterID string
}

func (id Identity) Is(roles ...Role) bool {
	return slices.Contains(roles, id.Role)
}

func (id Identity) IsAdmin() bool { return id.Role == RoleAdmin }

type contextKey string

const identityKey contextKey = "identity"

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
