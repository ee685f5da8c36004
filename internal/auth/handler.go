package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/launchkit/saas-starter-kit/internal"
	"github.com/launchkit/saas-starter-kit/internal/transport"
	"github.com/launchkit/saas-starter-kit/internal/user"
	"github.com/launchkit/saas-starter-kit/pkg/logger"
)

type ServiceAPI interface {
	Register(ctx context.Context, dto RegisterDTO) (*user.User, error)
	Login(ctx context.Context, dto LoginDTO, meta internal.RequestMeta) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string, meta internal.RequestMeta) (*LoginResult, error)
	Logout(ctx context.Context, access *Claims, refreshToken string) error
	Authenticate(ctx context.Context, token string) (*user.User, *Claims, error)
}

type CookieConfig struct {
	Secure bool
	Domain string
	MaxAge time.Duration
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Cookie  CookieConfig
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, cookie CookieConfig) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
		Cookie:      cookie,
	}
}

// Register handles POST /auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	u, err := h.Service.Register(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, u)
}

// Login handles POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	result, err := h.Service.Login(r.Context(), dto, transport.RequestMeta(r))
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	h.setAuthCookie(w, result.AccessToken)
	h.WriteJSON(w, http.StatusOK, result)
}

// Refresh handles POST /auth/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	result, err := h.Service.Refresh(r.Context(), dto.RefreshToken, transport.RequestMeta(r))
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	h.setAuthCookie(w, result.AccessToken)
	h.WriteJSON(w, http.StatusOK, result)
}

// Logout handles POST /auth/logout. The body is optional.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var dto LogoutDTO
	if r.ContentLength > 0 {
		if err := h.DecodeJSON(r, &dto); err != nil {
			h.WriteAppError(w, r, err)
			return
		}
	}

	claims, _ := ClaimsFromContext(r.Context())
	if err := h.Service.Logout(r.Context(), claims, dto.RefreshToken); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	h.clearAuthCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrUnauthenticated)
		return
	}
	h.WriteJSON(w, http.StatusOK, MeResponse{
		User:        u,
		Permissions: PermissionsFromContext(r.Context()).Names(),
		IsAdmin:     user.IsAdmin(u),
	})
}

// AuthMiddleware resolves the caller from the bearer token or auth cookie.
// A bad, expired or revoked token and a missing or inactive user all get the
// same 401 body.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := transport.ExtractToken(r)
		if token == "" {
			h.WriteAppError(w, r, internal.ErrUnauthenticated)
			return
		}

		u, claims, err := h.Service.Authenticate(r.Context(), token)
		if err != nil {
			if appErr, ok := internal.IsAppError(err); ok && appErr.Type == internal.ErrorTypeUnauthorized {
				logger.From(r.Context()).Debug("authentication rejected", "reason", appErr.Cause)
				h.WriteAppError(w, r, internal.ErrInvalidToken)
				return
			}
			h.WriteAppError(w, r, err)
			return
		}

		ctx := ContextWithUser(r.Context(), u)
		ctx = contextWithClaims(ctx, claims)
		ctx = logger.With(ctx, "user_id", u.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) setAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     transport.AuthCookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.Cookie.Domain,
		MaxAge:   int(h.Cookie.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     transport.AuthCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.Cookie.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
