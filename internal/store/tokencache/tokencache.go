// Package tokencache implements auth.TokenCache as a Redis-fronted
// write-through cache over a Postgres system of record, grounded on the
// teacher's internal/ccsignals.RedisLockStore: a thin wrapper around a
// *redis.Client, constructed from a URL, pinged once at startup.
package tokencache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"codeberg.org/kcchat/server/internal/auth"
	"codeberg.org/kcchat/server/internal/logger"
)

const keyGoogleSub = "kcchat:google_sub:%s"

// fallback is the narrow slice of internal/store/postgres.GoogleIDCache
// this package needs: the durable system of record consulted on a cache
// miss and written to alongside Redis on a cache fill.
type fallback interface {
	Lookup(ctx context.Context, token string) (sub string, ok bool, err error)
	Store(ctx context.Context, token, sub string, expiry int64) error
}

// Cache is a Redis-backed auth.TokenCache that write-throughs to a
// Postgres fallback so a verified subject survives a Redis eviction or
// restart.
type Cache struct {
	client   *redis.Client
	fallback fallback
}

var _ auth.TokenCache = (*Cache)(nil)

// New wraps an already-connected Redis client. Pass a nil client to run
// with the Postgres fallback alone (spec.md §6 leaves Redis optional).
func New(client *redis.Client, fallback fallback) *Cache {
	return &Cache{client: client, fallback: fallback}
}

// NewFromURL parses redisURL, connects, and pings before returning,
// mirroring the teacher's NewRedisLockStoreFromURL.
func NewFromURL(redisURL string, fallback fallback) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return New(client, fallback), nil
}

// Lookup satisfies auth.TokenCache. A Redis hit is authoritative; a miss
// falls through to the Postgres system of record. A fallback hit is not
// copied back into Redis; only Store writes Redis.
func (c *Cache) Lookup(ctx context.Context, token string) (string, bool, error) {
	if c.client != nil {
		sub, err := c.client.Get(ctx, fmt.Sprintf(keyGoogleSub, token)).Result()
		if err == nil {
			return sub, true, nil
		}
		if !errors.Is(err, redis.Nil) {
			logger.ErrorErr(err, "redis token cache lookup failed, falling back to postgres")
		}
	}

	return c.fallback.Lookup(ctx, token)
}

// Store satisfies auth.TokenCache, writing through to both layers so
// the Postgres fallback stays the eventual system of record even if
// Redis later evicts the key early.
func (c *Cache) Store(ctx context.Context, token, sub string, expiry int64) error {
	if err := c.fallback.Store(ctx, token, sub, expiry); err != nil {
		return err
	}

	if c.client == nil {
		return nil
	}

	ttl := time.Until(time.Unix(expiry, 0))
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, fmt.Sprintf(keyGoogleSub, token), sub, ttl).Err(); err != nil {
		logger.ErrorErr(err, "redis token cache store failed")
	}
	return nil
}

// Close releases the underlying Redis connection, if any.
func (c *Cache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
