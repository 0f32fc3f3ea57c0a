package respcache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis backs the response cache with a shared Redis instance so multiple
// processes avoid redundant provider calls. Failures degrade to cache
// misses — a broken cache must never fail a fetch.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis creates a Redis-backed response cache.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, prefix: "macrocal:respcache:"}
}

// Get returns the cached value when present.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

// Set stores a value with the given TTL.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	_ = r.client.Set(ctx, r.prefix+key, value, ttl).Err()
}

var _ Cache = (*Redis)(nil)
