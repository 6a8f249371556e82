package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"riskprofile/internal/config"
	"riskprofile/internal/types"

	"github.com/redis/go-redis/v9"
)

// redisScanCount is the COUNT hint for SCAN during prefix deletion.
const redisScanCount = 200

// RedisStore is a Store backed by Redis, for deployments with multiple API
// replicas sharing one cache. Envelopes are stored as JSON; the Redis key
// TTL covers both the fresh window and the stale retention window, while the
// envelope's ExpiresAt carries the logical freshness boundary.
type RedisStore struct {
	client *redis.Client
	clock  types.Clock
}

// NewRedisStore connects to Redis using the cache configuration and verifies
// the connection with a ping.
func NewRedisStore(ctx context.Context, cfg config.CacheConfig, clock types.Clock) (*RedisStore, error) {
	if clock == nil {
		clock = &types.RealClock{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword.Unmask(),
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}

	return &RedisStore{client: client, clock: clock}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Envelope, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalCache, "redis get failed", err)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// A corrupt entry is unreadable; drop it so the next write heals it.
		_ = s.client.Del(ctx, key).Err()
		return nil, ErrNotFound
	}
	return &env, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, payload []byte, ttl, retention time.Duration) error {
	now := s.clock.Now()
	env := Envelope{
		Payload:   payload,
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalCache, "failed to encode cache envelope", err)
	}

	if err := s.client.Set(ctx, key, raw, ttl+retention).Err(); err != nil {
		return types.NewAppError(types.ErrCodeInternalCache, "redis set failed", err)
	}
	return nil
}

func (s *RedisStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	removed := 0
	iter := s.client.Scan(ctx, 0, prefix+"*", redisScanCount).Iterator()

	var batch []string
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.client.Del(ctx, batch...).Result()
		removed += int(n)
		batch = batch[:0]
		return err
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= redisScanCount {
			if err := flush(); err != nil {
				return removed, types.NewAppError(types.ErrCodeInternalCache, "redis delete failed", err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, types.NewAppError(types.ErrCodeInternalCache, "redis scan failed", err)
	}
	if err := flush(); err != nil {
		return removed, types.NewAppError(types.ErrCodeInternalCache, "redis delete failed", err)
	}
	return removed, nil
}

// Ping verifies the Redis connection; used by the health endpoint.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
