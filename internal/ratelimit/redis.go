package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisLimiter is a fixed-window limiter backed by redis, for hosts that
// already run one. INCR makes consumption atomic across concurrent callers.
type RedisLimiter struct {
	client *redis.Client
}

// NewRedisLimiter connects to redis at the given URL and verifies the
// connection.
func NewRedisLimiter(ctx context.Context, redisURL string) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisLimiter{client: client}, nil
}

func (l *RedisLimiter) Allow(ctx context.Context, bucket string, limit int, window time.Duration) (Result, error) {
	if limit <= 0 || window <= 0 {
		return Result{Allowed: true, Remaining: -1}, nil
	}
	key := "ratelimit:" + bucket
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return Result{}, fmt.Errorf("redis incr: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, window).Err(); err != nil {
			return Result{}, fmt.Errorf("redis expire: %w", err)
		}
	}
	if count > int64(limit) {
		retry, err := l.client.TTL(ctx, key).Result()
		if err != nil || retry < 0 {
			retry = window
		}
		return Result{Allowed: false, Remaining: 0, RetryAfter: retry}, nil
	}
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: true, Remaining: remaining}, nil
}

func (l *RedisLimiter) Close() error { return l.client.Close() }
