package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenDenylist holds revoked access token ids until the tokens would have expired anyway.
type TokenDenylist struct {
	redis redis.UniversalClient
	now   func() time.Time
}

func NewTokenDenylist(client redis.UniversalClient) *TokenDenylist {
	return &TokenDenylist{redis: client, now: time.Now}
}

func (d *TokenDenylist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	if err := d.redis.Set(ctx, denylistKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("token denylist: %w", err)
	}
	return nil
}

func (d *TokenDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := d.redis.Get(ctx, denylistKey(jti)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("token denylist: %w", err)
	}
	return true, nil
}

func denylistKey(jti string) string {
	return "revoked_jti:" + jti
}
