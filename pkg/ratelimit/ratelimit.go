package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter allows one action per key per window. A nil redis client disables limiting.
type Limiter struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Limiter {
	return &Limiter{rdb: rdb}
}

func key(scope, subject string) string {
	return fmt.Sprintf("rate_limit:%s:%s", scope, subject)
}

// Allow reports whether the action may proceed and, if so, starts a new window.
func (l *Limiter) Allow(ctx context.Context, scope, subject string, window time.Duration) (bool, error) {
	if l == nil || l.rdb == nil || window <= 0 {
		return true, nil
	}

	wasSet, err := l.rdb.SetNX(ctx, key(scope, subject), "locked", window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit in redis: %w", err)
	}

	return wasSet, nil
}

func (l *Limiter) TTL(ctx context.Context, scope, subject string) (time.Duration, error) {
	if l == nil || l.rdb == nil {
		return 0, nil
	}
	return l.rdb.TTL(ctx, key(scope, subject)).Result()
}

func (l *Limiter) Clear(ctx context.Context, scope, subject string) error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Del(ctx, key(scope, subject)).Err()
}
