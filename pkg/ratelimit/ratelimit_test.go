package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterWithoutRedisAllows(t *testing.T) {
	ctx := context.Background()

	for _, l := range []*Limiter{nil, New(nil)} {
		ok, err := l.Allow(ctx, "signup_otp", "a@alumni.test", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		ttl, err := l.TTL(ctx, "signup_otp", "a@alumni.test")
		require.NoError(t, err)
		assert.Zero(t, ttl)

		assert.NoError(t, l.Clear(ctx, "signup_otp", "a@alumni.test"))
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "rate_limit:signup_otp:a@alumni.test", key("signup_otp", "a@alumni.test"))
}
