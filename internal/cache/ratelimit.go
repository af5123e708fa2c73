package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateCounter is a fixed-window request counter.
type RateCounter interface {
	// Hit counts one request for key and reports whether it is within limit.
	// When it is not, retryAfter is the time left in the window.
	Hit(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, retryAfter time.Duration, err error)
}

type redisRateCounter struct {
	client *redis.Client
}

// NewRedisRateCounter counts with INCR on rate_limit:<key>. A key without an
// expiry, either fresh or left behind by a failed EXPIRE, gets the window set.
func NewRedisRateCounter(client *redis.Client) RateCounter {
	return &redisRateCounter{client: client}
}

func (r *redisRateCounter) Hit(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	redisKey := fmt.Sprintf("rate_limit:%s", key)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttlCmd := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, 0, err
	}
	count, ttl := incr.Val(), ttlCmd.Val()
	if ttl < 0 {
		if err := r.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return true, 0, fmt.Errorf("expire %s: %w", redisKey, err)
		}
		ttl = window
	}
	if count > int64(limit) {
		return false, ttl, nil
	}
	return true, 0, nil
}
