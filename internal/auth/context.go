package auth

import (
	"context"

	"github.com/launchkit/saas-starter-kit/internal"
	"github.com/launchkit/saas-starter-kit/internal/user"
)

type contextKey string

const (
	ContextUserKey        contextKey = "user"
	ContextPermissionsKey contextKey = "permissions"
	ContextClaimsKey      contextKey = "claims"
)

// ContextWithUser attaches the authenticated user and their effective permission set.
func ContextWithUser(ctx context.Context, u *user.User) context.Context {
	ctx = context.WithValue(ctx, ContextUserKey, u)
	ctx = context.WithValue(ctx, ContextPermissionsKey, user.PermissionsOf(u))
	return internal.ContextWithUserID(ctx, u.ID)
}

func UserFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(ContextUserKey).(*user.User)
	return u, ok && u != nil
}

func PermissionsFromContext(ctx context.Context) user.PermissionSet {
	if set, ok := ctx.Value(ContextPermissionsKey).(user.PermissionSet); ok {
		return set
	}
	return user.PermissionSet{}
}

func contextWithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, ContextClaimsKey, c)
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ContextClaimsKey).(*Claims)
	return c, ok && c != nil
}
