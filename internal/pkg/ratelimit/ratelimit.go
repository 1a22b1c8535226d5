package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window counter keyed by identity (email, IP), backed by
// Redis so limits survive process restarts and hold across multiple server
// instances.
type Limiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

// New creates a limiter allowing `limit` events per `window` per key.
func New(client *redis.Client, prefix string, limit int64, window time.Duration) *Limiter {
	return &Limiter{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
	}
}

// Allow counts one event for the key and reports whether the key is still
// inside its limit for the current window. Redis failures fail open: a broken
// cache must not lock everyone out of login.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.windowKey(key, time.Now())

	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return true, err
	}
	if n == 1 {
		// First hit in this window sets the expiry; the key self-cleans.
		_ = l.client.Expire(ctx, k, l.window).Err()
	}
	return n <= l.limit, nil
}

// Reset clears the counter for a key, e.g. after a successful login.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.windowKey(key, time.Now())).Err()
}

func (l *Limiter) windowKey(key string, now time.Time) string {
	return fmt.Sprintf("ratelimit:%s:%s:%d", l.prefix, key, windowBucket(now, l.window))
}

func windowBucket(now time.Time, window time.Duration) int64 {
	secs := int64(window.Seconds())
	if secs <= 0 {
		secs = 1
	}
	return now.Unix() / secs
}
