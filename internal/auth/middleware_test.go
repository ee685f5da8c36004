package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/launchkit/saas-starter-kit/internal"
	"github.com/launchkit/saas-starter-kit/internal/permission"
	"github.com/launchkit/saas-starter-kit/internal/role"
	"github.com/launchkit/saas-starter-kit/internal/transport"
	"github.com/launchkit/saas-starter-kit/internal/user"
	"github.com/launchkit/saas-starter-kit/pkg/logger"
)

func decodeErrorBody(rec *httptest.ResponseRecorder) internal.Response {
	var body internal.Response
	gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(gomega.Succeed())
	return body
}

var _ = ginkgo.Describe("HTTP middleware", func() {
	var (
		base     *transport.BaseHandler
		handler  *Handler
		tokenGen *JWTTokenGenerator
		viewer   *user.User
		admin    *user.User
		reached  *user.User
		next     http.Handler
	)

	ginkgo.BeforeEach(func() {
		base = transport.NewBaseHandler(logger.Discard())
		tokenGen = NewJWTTokenGenerator("access-secret", "refresh-secret", time.Minute, time.Hour)
		viewer = testUser("viewer@example.com", "", testRole("viewer", true, permission.UsersRead))
		admin = testUser("root@example.com", "", testRole(role.AdminRoleName, true, permission.UsersRead, permission.UsersDelete))
		service := NewService(newMockUserStore(viewer, admin), newMockSessionStore(), nil, tokenGen, nil, newMemoryDenylist(), logger.Discard())
		handler = NewHandler(base, service, CookieConfig{MaxAge: time.Hour})

		reached = nil
		next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reached, _ = UserFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		})
	})

	bearer := func(u *user.User) string {
		issued, err := tokenGen.GenerateAccessToken(u.ID, u.Email)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		return issued.Token
	}

	ginkgo.Describe("AuthMiddleware", func() {
		ginkgo.It("should answer 401 without credentials", func() {
			rec := httptest.NewRecorder()
			handler.AuthMiddleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users", nil))

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(decodeErrorBody(rec).Code).To(gomega.Equal(internal.ErrCodeUnauthenticated))
			gomega.Expect(reached).To(gomega.BeNil())
		})

		ginkgo.It("should answer 401 for a bad token", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
			req.Header.Set("Authorization", "Bearer nope")
			rec := httptest.NewRecorder()

			handler.AuthMiddleware(next).ServeHTTP(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(decodeErrorBody(rec).Code).To(gomega.Equal(internal.ErrCodeInvalidToken))
		})

		ginkgo.It("should attach the user from a bearer token", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
			req.Header.Set("Authorization", "Bearer "+bearer(viewer))
			rec := httptest.NewRecorder()

			handler.AuthMiddleware(next).ServeHTTP(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(reached).ToNot(gomega.BeNil())
			gomega.Expect(reached.ID).To(gomega.Equal(viewer.ID))
		})

		ginkgo.It("should fall back to the auth cookie", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
			req.AddCookie(&http.Cookie{Name: transport.AuthCookieName, Value: bearer(viewer)})
			rec := httptest.NewRecorder()

			handler.AuthMiddleware(next).ServeHTTP(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(reached.ID).To(gomega.Equal(viewer.ID))
		})
	})

	ginkgo.Describe("RBACAuthorization", func() {
		var rbac *RBACAuthorization

		ginkgo.BeforeEach(func() {
			rbac = NewRBACAuthorization(base)
		})

		serve := func(gate func(http.Handler) http.Handler, u *user.User) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
			if u != nil {
				req = req.WithContext(ContextWithUser(req.Context(), u))
			}
			rec := httptest.NewRecorder()
			gate(next).ServeHTTP(rec, req)
			return rec
		}

		ginkgo.It("should answer 401 when no user is in context", func() {
			rec := serve(rbac.Require(permission.UsersRead), nil)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
		})

		ginkgo.It("should pass a caller holding the permission", func() {
			rec := serve(rbac.Require(permission.UsersRead), viewer)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		})

		ginkgo.It("should answer 403 when the permission is missing", func() {
			rec := serve(rbac.Require(permission.UsersDelete), viewer)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(decodeErrorBody(rec).Code).To(gomega.Equal(internal.ErrCodeInsufficientAccess))
		})

		ginkgo.It("should ignore permissions granted by an inactive role", func() {
			viewer.Roles[0].IsActive = false

			rec := serve(rbac.Require(permission.UsersRead), viewer)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
		})

		ginkgo.It("should combine permissions for RequireAny and RequireAll", func() {
			gomega.Expect(serve(rbac.RequireAny(permission.UsersDelete, permission.UsersRead), viewer).Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(serve(rbac.RequireAll(permission.UsersDelete, permission.UsersRead), viewer).Code).To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(serve(rbac.RequireAll(permission.UsersDelete, permission.UsersRead), admin).Code).To(gomega.Equal(http.StatusOK))
		})

		ginkgo.It("should reserve RequireAdmin for the admin role", func() {
			gomega.Expect(serve(rbac.RequireAdmin(), viewer).Code).To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(serve(rbac.RequireAdmin(), admin).Code).To(gomega.Equal(http.StatusOK))
		})
	})

	ginkgo.Describe("Me", func() {
		ginkgo.It("should return the user with sorted effective permissions", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
			req = req.WithContext(ContextWithUser(req.Context(), admin))
			rec := httptest.NewRecorder()

			handler.Me(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			var body struct {
				Permissions []string `json:"permissions"`
				IsAdmin     bool     `json:"isAdmin"`
			}
			gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(gomega.Succeed())
			gomega.Expect(body.Permissions).To(gomega.Equal([]string{permission.UsersDelete, permission.UsersRead}))
			gomega.Expect(body.IsAdmin).To(gomega.BeTrue())
		})
	})
})
