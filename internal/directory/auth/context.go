package auth

import (
	"context"

	"github.com/gartstein/directory/internal/directory/models"
)

type contextKey string

const (
	userContextKey contextKey = "user"
)

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity models.Identity) context.Context {
	return context.WithValue(ctx, userContextKey, identity)
}

// IdentityFromContext returns the caller stored in ctx, or the anonymous
// identity when there is none.
func IdentityFromContext(ctx context.Context) models.Identity {
	identity, _ := ctx.Value(userContextKey).(models.Identity)
	return identity
}
