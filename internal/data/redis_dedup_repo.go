package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/backport-bot/internal/core"
)

// RedisDedupRepo implements core.DedupGuard using Redis SET NX. Used by the
// trigger path to process each comment command at most once across
// replicas.
type RedisDedupRepo struct {
	client redis.UniversalClient
	prefix string
}

var _ core.DedupGuard = (*RedisDedupRepo)(nil)

// NewRedisDedupRepo creates a dedup guard with the given Redis client. The
// prefix namespaces keys, e.g. "backport:dedup".
func NewRedisDedupRepo(client redis.UniversalClient, prefix string) *RedisDedupRepo {
	if prefix == "" {
		prefix = "backport:dedup"
	}
	return &RedisDedupRepo{client: client, prefix: prefix}
}

// Acquire returns true when this caller is the first to claim key within
// the TTL window. SET with NX and TTL is atomic; SETNX plus a separate
// EXPIRE is not.
func (r *RedisDedupRepo) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, errors.New("key cannot be empty")
	}
	if ttl <= 0 {
		ttl = time.Second
	}

	cmd := r.client.SetArgs(ctx, r.prefix+":"+key, "1", redis.SetArgs{Mode: "NX", TTL: ttl})
	status, err := cmd.Result()
	if err != nil {
		// NX not met: Redis replies nil, go-redis surfaces redis.Nil.
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis SET NX: %w", err)
	}

	return status == "OK", nil
}

// Health checks the health of the Redis connection.
func (r *RedisDedupRepo) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
