// Package ratelimit implements Redis fixed-window request limiters.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter allows Points requests per key within each Window.
type Limiter struct {
	client redis.Cmdable
	name   string
	points int
	window time.Duration
}

// Result describes one admission decision.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// NewLimiter builds a limiter whose keys are prefixed with name.
func NewLimiter(client redis.Cmdable, name string, points int, window time.Duration) *Limiter {
	return &Limiter{client: client, name: name, points: points, window: window}
}

// Name identifies the limiter in logs and metrics.
func (l *Limiter) Name() string {
	return l.name
}

// Allow consumes one point for key.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	redisKey := fmt.Sprintf("ratelimit:%s:%s", l.name, key)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit incr: %w", err)
	}
	if count == 1 {
		if err := l.client.PExpire(ctx, redisKey, l.window).Err(); err != nil {
			return Result{}, fmt.Errorf("ratelimit expire: %w", err)
		}
	}

	if count <= int64(l.points) {
		return Result{Allowed: true, Limit: l.points, Remaining: l.points - int(count)}, nil
	}

	ttl, err := l.client.PTTL(ctx, redisKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit ttl: %w", err)
	}
	if ttl < 0 {
		// a lost expire would otherwise block the key forever
		if err := l.client.PExpire(ctx, redisKey, l.window).Err(); err != nil {
			return Result{}, fmt.Errorf("ratelimit expire: %w", err)
		}
		ttl = l.window
	}
	return Result{Allowed: false, Limit: l.points, RetryAfter: ttl}, nil
}
