package internal

import (
	"context"
	"time"
)

type ctxKey string

const (
	ContextUserIDKey    ctxKey = "userID"
	ContextClientIPKey  ctxKey = "clientIP"
	ContextUserAgentKey ctxKey = "userAgent"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if userID, ok := ctx.Value(ContextUserIDKey).(string); ok {
		return userID
	}
	return ""
}

func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextUserIDKey, userID)
}

// RequestMeta is the caller information recorded on sessions and audit entries.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

func ContextWithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	ctx = context.WithValue(ctx, ContextClientIPKey, meta.IPAddress)
	return context.WithValue(ctx, ContextUserAgentKey, meta.UserAgent)
}

func RequestMetaFromContext(ctx context.Context) RequestMeta {
	if ctx == nil {
		return RequestMeta{}
	}
	ip, _ := ctx.Value(ContextClientIPKey).(string)
	ua, _ := ctx.Value(ContextUserAgentKey).(string)
	return RequestMeta{IPAddress: ip, UserAgent: ua}
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
