package sessions

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// package-level Redis client used for token revocation (optional)
var revokeClient *redis.Client

// SetRevokeClient configures the Redis client used for revocation.
// Safe to call with nil to disable it.
func SetRevokeClient(c *redis.Client) {
	revokeClient = c
}

// RevokeToken remembers a logged-out backend token until ttl passes.
// Without a Redis client this is a no-op.
func RevokeToken(ctx context.Context, token string, ttl time.Duration) error {
	if revokeClient == nil || token == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	return revokeClient.Set(ctx, "revoked:token:"+token, "1", ttl).Err()
}

// IsTokenRevoked reports whether the token was revoked on logout.
func IsTokenRevoked(ctx context.Context, token string) (bool, error) {
	if revokeClient == nil || token == "" {
		return false, nil
	}
	exists, err := revokeClient.Exists(ctx, "revoked:token:"+token).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
