package internal

import (
	"context"
	"time"
)

type ctxKey string

const ContextIdentityKey ctxKey = "identity"

const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// Identity is the authenticated caller as established by the auth middleware.
type Identity struct {
	ID    string
	Email string
	Role  string
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	identity, ok := ctx.Value(ContextIdentityKey).(Identity)
	if !ok || identity.ID == "" {
		return Identity{}, false
	}
	return identity, true
}

func ContextWithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, ContextIdentityKey, identity)
}

// UserIDFromContext returns the caller's id or "" when unauthenticated.
func UserIDFromContext(ctx context.Context) string {
	identity, _ := IdentityFromContext(ctx)
	return identity.ID
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
