package repository

import (
	"context"
	"time"

	"github.com/goliatone/go-auth-gateway"
	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

const defaultBlacklistPrefix = "auth:blacklist:"

// RedisBlacklist is an auth.Blacklist shared by every gateway instance.
// Entries expire with the token they revoke.
type RedisBlacklist struct {
	client    redis.UniversalClient
	keyPrefix string
	now       func() time.Time
}

var _ auth.Blacklist = (*RedisBlacklist)(nil)

func NewRedisBlacklist(client redis.UniversalClient, keyPrefix string) *RedisBlacklist {
	if keyPrefix == "" {
		keyPrefix = defaultBlacklistPrefix
	}
	return &RedisBlacklist{
		client:    client,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}
}

func (b *RedisBlacklist) key(token string) string {
	return b.keyPrefix + auth.TokenFingerprint(token)
}

// Add implements auth.Blacklist.
func (b *RedisBlacklist) Add(ctx context.Context, token string, until time.Time) error {
	ttl := until.Sub(b.now())
	if ttl <= 0 {
		return nil
	}

	if err := b.client.Set(ctx, b.key(token), "1", ttl).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to blacklist token")
	}
	return nil
}

// Contains implements auth.Blacklist.
func (b *RedisBlacklist) Contains(ctx context.Context, token string) (bool, error) {
	exists, err := b.client.Exists(ctx, b.key(token)).Result()
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check token blacklist")
	}
	return exists > 0, nil
}
