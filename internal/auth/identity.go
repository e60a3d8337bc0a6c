package auth

import (
	"context"

	"crucible/api/internal/rbac"
)

// Identity is the caller of a request. It is resolved from the session
// token by the HTTP layer and passed down explicitly.
type Identity struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Role      rbac.Role `json:"role"`
	SessionID string    `json:"-"`
}

func (c Claims) Identity() Identity {
	return Identity{
		UserID:    c.Sub,
		Email:     c.Email,
		Role:      rbac.Normalize(c.Role),
		SessionID: c.JTI,
	}
}

// Owns reports whether the identity may touch a resource owned by userID.
func (i Identity) Owns(userID string) bool {
	return i.Role == rbac.RoleAdmin || (i.UserID != "" && i.UserID == userID)
}

type identityKey struct{}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(Identity)
	return identity, ok
}
