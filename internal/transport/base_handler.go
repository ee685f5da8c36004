package transport

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/launchkit/saas-starter-kit/internal"
	"github.com/launchkit/saas-starter-kit/pkg/logger"
)

// AuthCookieName is the cookie carrying the access token for browser clients.
const AuthCookieName = "auth_token"

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger *slog.Logger
	// ExposeErrors includes internal error causes in responses (development only).
	ExposeErrors bool
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
		if lg == nil {
			lg = slog.Default()
		}
	}
	return &BaseHandler{Logger: lg}
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteError writes a plain error response for a status code
func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, message string) {
	errType := internal.ErrorTypeInternal
	switch status {
	case http.StatusBadRequest:
		errType = internal.ErrorTypeBadRequest
	case http.StatusUnauthorized:
		errType = internal.ErrorTypeUnauthorized
	case http.StatusForbidden:
		errType = internal.ErrorTypeForbidden
	case http.StatusNotFound:
		errType = internal.ErrorTypeNotFound
	case http.StatusConflict:
		errType = internal.ErrorTypeConflict
	case http.StatusTooManyRequests:
		errType = internal.ErrorTypeTooManyRequests
	}
	h.WriteJSON(w, status, internal.Response{Error: errType, Message: message})
}

// WriteAppError maps any error onto the status-coded response body.
func (h *BaseHandler) WriteAppError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := internal.IsAppError(err)
	if !ok {
		appErr = internal.NewInternalError("unexpected error", err)
	}

	status, body := appErr.ToHTTPResponse(h.ExposeErrors)
	lg := logger.From(r.Context())
	if status >= http.StatusInternalServerError {
		lg.Error("request failed", "status", status, "path", r.URL.Path, "error", err)
	} else {
		lg.Debug("request rejected", "status", status, "path", r.URL.Path, "code", appErr.Code)
	}
	h.WriteJSON(w, status, body)
}

// DecodeJSON decodes the request body into dst, rejecting unknown fields.
func (h *BaseHandler) DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return internal.ErrInvalidBody
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return internal.ErrInvalidBody.WithMessage("Request body is empty")
		}
		return internal.ErrInvalidBody.WithCause(err)
	}
	return nil
}

// ExtractTokenFromHeader extracts Bearer token from Authorization header
func (h *BaseHandler) ExtractTokenFromHeader(r *http.Request) string {
	return ExtractBearerToken(r)
}

func ExtractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(authHeader[7:])
}

// ExtractToken reads the bearer header first and falls back to the auth cookie.
func ExtractToken(r *http.Request) string {
	if token := ExtractBearerToken(r); token != "" {
		return token
	}
	if c, err := r.Cookie(AuthCookieName); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

// QueryInt parses an integer query parameter, returning def when absent or malformed.
func QueryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func QueryBool(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && v
}

// ClientIP prefers the first X-Forwarded-For hop over RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func RequestMeta(r *http.Request) internal.RequestMeta {
	return internal.RequestMeta{IPAddress: ClientIP(r), UserAgent: r.UserAgent()}
}
