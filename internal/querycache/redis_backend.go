package querycache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/travel-booking/internal/config"
)

// RedisBackend stores entries in Redis under "<prefix>:<key>" with a TTL.
type RedisBackend struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisBackend wraps rdb.  prefix namespaces the keys so several
// deployments can share one Redis database.
func NewRedisBackend(rdb *redis.Client, prefix string) *RedisBackend {
	return &RedisBackend{rdb: rdb, prefix: prefix}
}

func (r *RedisBackend) key(k string) string { return r.prefix + ":" + k }

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	bs, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return bs, true, nil
}

func (r *RedisBackend) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return r.rdb.Set(ctx, r.key(key), val, ttl).Err()
}

func (r *RedisBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	return r.rdb.Del(ctx, full...).Err()
}

// NewBackend picks Redis when it is enabled and a client is available, and
// process memory otherwise.
func NewBackend(cfg config.QueryCacheConfig, rdb *redis.Client, logger *slog.Logger) Backend {
	if cfg.RedisEnabled && rdb != nil {
		return NewRedisBackend(rdb, cfg.Prefix)
	}
	logger.Info("query cache using process memory", "redis_enabled", cfg.RedisEnabled)
	return NewMemoryBackend()
}
