package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter counts login attempts per email in a fixed redis window.
type LoginLimiter struct {
	redis       redis.UniversalClient
	maxAttempts int
	window      time.Duration
}

func NewLoginLimiter(client redis.UniversalClient, maxAttempts int, window time.Duration) *LoginLimiter {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &LoginLimiter{redis: client, maxAttempts: maxAttempts, window: window}
}

// Allow records an attempt and reports whether it is within the limit.
func (l *LoginLimiter) Allow(ctx context.Context, email string) (bool, error) {
	key := loginAttemptKey(email)
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("login limiter: %w", err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.window).Err(); err != nil {
			return false, fmt.Errorf("login limiter: %w", err)
		}
	}
	return count <= int64(l.maxAttempts), nil
}

// Reset clears the counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, email string) error {
	return l.redis.Del(ctx, loginAttemptKey(email)).Err()
}

func loginAttemptKey(email string) string {
	return "login_attempts:" + strings.ToLower(strings.TrimSpace(email))
}
