package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/launchkit/saas-starter-kit/internal/audit"
	"github.com/launchkit/saas-starter-kit/internal/auth"
	"github.com/launchkit/saas-starter-kit/internal/invitation"
	"github.com/launchkit/saas-starter-kit/internal/permission"
	"github.com/launchkit/saas-starter-kit/internal/role"
	"github.com/launchkit/saas-starter-kit/internal/transport/middleware"
	"github.com/launchkit/saas-starter-kit/internal/transport/swagger"
	"github.com/launchkit/saas-starter-kit/internal/user"
)

// Handlers groups everything the router mounts. Nil handlers are skipped.
type Handlers struct {
	Health     *HealthHandler
	Auth       *auth.Handler
	RBAC       *auth.RBACAuthorization
	Users      *user.Handler
	Roles      *role.Handler
	Perms      *permission.Handler
	Invites    *invitation.Handler
	Audit      *audit.Handler
	AuthLimit  *middleware.IPRateLimiter
	Metrics    *middleware.Metrics
	Gatherer   prometheus.Gatherer
	OpenAPI    string
	Origins    string
	MetricPath string
}

func RegisterAllRoutes(router chi.Router, h Handlers, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.CORS(h.Origins))
	router.Use(middleware.SecurityHeaders)
	router.Use(middleware.LoggingMiddleware(logger))
	if h.Metrics != nil {
		router.Use(h.Metrics.Instrument)
	}

	if h.OpenAPI != "" {
		router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, h.OpenAPI)
		})
		router.Handle("/swagger/*", swagger.Handler())
	}

	if h.Gatherer != nil {
		path := h.MetricPath
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{}))
	}

	router.Route("/api/v1", func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.Health)
			r.Get("/ping", h.Health.Ping)
		}

		if h.Invites != nil {
			r.Get("/invitations/{token}", h.Invites.GetInvitation)
			r.Post("/invitations/{token}/accept", h.Invites.AcceptInvitation)
		}

		if h.Auth == nil {
			return
		}

		r.Route("/auth", func(ar chi.Router) {
			ar.Group(func(pub chi.Router) {
				if h.AuthLimit != nil {
					pub.Use(h.AuthLimit.Middleware)
				}
				pub.Post("/register", h.Auth.Register)
				pub.Post("/login", h.Auth.Login)
				pub.Post("/refresh", h.Auth.Refresh)
			})
			ar.Group(func(pr chi.Router) {
				pr.Use(h.Auth.AuthMiddleware)
				pr.Post("/logout", h.Auth.Logout)
				pr.Get("/me", h.Auth.Me)
			})
		})

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)
			rbac := h.RBAC

			if h.Users != nil {
				pr.Route("/users", func(ur chi.Router) {
					ur.With(rbac.Require(permission.UsersRead)).Get("/", h.Users.GetUsers)
					ur.With(rbac.Require(permission.UsersCreate)).Post("/", h.Users.CreateUser)
					ur.With(rbac.Require(permission.UsersRead)).Get("/{id}", h.Users.GetUser)
					ur.Group(func(wr chi.Router) {
						wr.Use(rbac.Require(permission.UsersUpdate))
						wr.Patch("/{id}", h.Users.UpdateUser)
						wr.Post("/{id}/roles", h.Users.AssignUserRole)
						wr.Delete("/{id}/roles/{roleId}", h.Users.RemoveUserRole)
					})
				})
			}

			if h.Roles != nil {
				pr.Route("/roles", func(rr chi.Router) {
					rr.With(rbac.Require(permission.RolesRead)).Get("/", h.Roles.GetRoles)
					rr.With(rbac.Require(permission.RolesCreate)).Post("/", h.Roles.CreateRole)
					rr.With(rbac.Require(permission.RolesRead)).Get("/{id}", h.Roles.GetRole)
					rr.Group(func(wr chi.Router) {
						wr.Use(rbac.Require(permission.RolesUpdate))
						wr.Patch("/{id}", h.Roles.UpdateRole)
						wr.Put("/{id}/permissions", h.Roles.ReplaceRolePermissions)
						wr.Post("/{id}/permissions/{permissionId}", h.Roles.AddRolePermission)
						wr.Delete("/{id}/permissions/{permissionId}", h.Roles.RemoveRolePermission)
					})
				})
			}

			if h.Perms != nil {
				pr.Route("/permissions", func(pm chi.Router) {
					pm.With(rbac.Require(permission.PermissionsRead)).Get("/", h.Perms.GetPermissions)
					pm.With(rbac.Require(permission.PermissionsRead)).Get("/{id}", h.Perms.GetPermission)
					pm.With(rbac.RequireAdmin()).Post("/", h.Perms.CreatePermission)
					pm.With(rbac.RequireAdmin()).Patch("/{id}", h.Perms.UpdatePermission)
				})
			}

			if h.Invites != nil {
				pr.Group(func(ir chi.Router) {
					ir.Use(rbac.Require(permission.UsersCreate))
					ir.Get("/invitations", h.Invites.GetInvitations)
					ir.Post("/invitations", h.Invites.CreateInvitation)
					ir.Delete("/invitations/{token}", h.Invites.CancelInvitation)
				})
			}

			if h.Audit != nil {
				pr.With(rbac.Require(permission.AuditRead)).Get("/audit-logs", h.Audit.GetAuditLogs)
			}
		})
	})
}
