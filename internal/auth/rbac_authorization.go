package auth

import (
	"net/http"
	"strings"

	"github.com/launchkit/saas-starter-kit/internal"
	"github.com/launchkit/saas-starter-kit/internal/transport"
	"github.com/launchkit/saas-starter-kit/internal/user"
)

// RBACAuthorization gates routes on the caller's effective permissions.
// It must run after AuthMiddleware; without a user in context it answers 401.
type RBACAuthorization struct {
	*transport.BaseHandler
}

func NewRBACAuthorization(baseHandler *transport.BaseHandler) *RBACAuthorization {
	return &RBACAuthorization{BaseHandler: baseHandler}
}

type accessCheck func(u *user.User) bool

func (ra *RBACAuthorization) gate(requirement string, check accessCheck) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFromContext(r.Context())
			if !ok {
				ra.Logger.WarnContext(r.Context(), "authorization check failed: user not found in context")
				ra.WriteAppError(w, r, internal.ErrUnauthenticated)
				return
			}

			if !check(u) {
				ra.Logger.WarnContext(r.Context(), "access denied: insufficient permissions",
					"user_id", u.ID,
					"required", requirement)
				ra.WriteAppError(w, r, internal.ErrForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Require allows callers holding permission.
func (ra *RBACAuthorization) Require(permission string) func(http.Handler) http.Handler {
	return ra.gate(permission, func(u *user.User) bool {
		return user.HasPermission(u, permission)
	})
}

// RequireAny allows callers holding at least one of permissions.
func (ra *RBACAuthorization) RequireAny(permissions ...string) func(http.Handler) http.Handler {
	return ra.gate("any of "+strings.Join(permissions, ","), func(u *user.User) bool {
		return user.HasAnyPermission(u, permissions)
	})
}

// RequireAll allows callers holding every one of permissions.
func (ra *RBACAuthorization) RequireAll(permissions ...string) func(http.Handler) http.Handler {
	return ra.gate("all of "+strings.Join(permissions, ","), func(u *user.User) bool {
		return user.HasAllPermissions(u, permissions)
	})
}

func (ra *RBACAuthorization) RequireAdmin() func(http.Handler) http.Handler {
	return ra.gate("admin role", user.IsAdmin)
}
