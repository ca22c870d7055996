// Copyright (c) 2026 Memodeck. All rights reserved.
// Author: dev@memodeck.app

package auth_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memodeck/memodeck/internal/platform/constants"
	"github.com/memodeck/memodeck/internal/users/auth"
)

func newRedisFixture(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return server, client
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

/*
TestRedisLoginThrottle_Window verifies the fixed-window counter blocks at the
limit and clears on reset.
*/
func TestRedisLoginThrottle_Window(t *testing.T) {
	_, client := newRedisFixture(t)
	throttle := auth.NewLoginThrottle(client, discardLogger())
	ctx := context.Background()

	// 1. Fresh identifier is allowed
	assert.True(t, throttle.Allow(ctx, "kenji"))

	// 2. Failures below the limit keep the door open
	for i := 0; i < constants.LoginAttemptLimit-1; i++ {
		throttle.RecordFailure(ctx, "kenji")
	}
	assert.True(t, throttle.Allow(ctx, "kenji"))

	// 3. Hitting the limit blocks
	throttle.RecordFailure(ctx, "kenji")
	assert.False(t, throttle.Allow(ctx, "kenji"))

	// 4. Other identifiers are unaffected
	assert.True(t, throttle.Allow(ctx, "mallory"))

	// 5. Reset reopens immediately
	throttle.Reset(ctx, "kenji")
	assert.True(t, throttle.Allow(ctx, "kenji"))
}

/*
TestRedisLoginThrottle_WindowExpiry verifies the counter dies with its TTL.
*/
func TestRedisLoginThrottle_WindowExpiry(t *testing.T) {
	server, client := newRedisFixture(t)
	throttle := auth.NewLoginThrottle(client, discardLogger())
	ctx := context.Background()

	for i := 0; i < constants.LoginAttemptLimit; i++ {
		throttle.RecordFailure(ctx, "kenji")
	}
	require.False(t, throttle.Allow(ctx, "kenji"))

	// miniredis advances TTLs manually
	server.FastForward(constants.LoginAttemptWindow + time.Second)

	assert.True(t, throttle.Allow(ctx, "kenji"))
}

/*
TestRedisLoginThrottle_FailsOpen verifies a dead Redis never locks users out.
*/
func TestRedisLoginThrottle_FailsOpen(t *testing.T) {
	server, client := newRedisFixture(t)
	throttle := auth.NewLoginThrottle(client, discardLogger())
	ctx := context.Background()

	server.Close()

	assert.True(t, throttle.Allow(ctx, "kenji"))
	// Writes must not panic either
	throttle.RecordFailure(ctx, "kenji")
	throttle.Reset(ctx, "kenji")
}

/*
TestRedisLoginThrottle_KeyHygiene verifies raw identifiers never appear as
Redis keys.
*/
func TestRedisLoginThrottle_KeyHygiene(t *testing.T) {
	server, client := newRedisFixture(t)
	throttle := auth.NewLoginThrottle(client, discardLogger())

	throttle.RecordFailure(context.Background(), "kenji@memodeck.app")

	for _, key := range server.Keys() {
		assert.NotContains(t, key, "kenji@memodeck.app")
	}
}

/*
TestRedisSweepMark covers the persistence round trip and the missing-mark
default.
*/
func TestRedisSweepMark(t *testing.T) {
	server, client := newRedisFixture(t)
	mark := auth.NewSweepMark(client)
	ctx := context.Background()

	// 1. No mark means "never swept"
	last, err := mark.LastSweep(ctx)
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	// 2. Round trip with second precision
	sweptAt := time.Now().Truncate(time.Second)
	require.NoError(t, mark.MarkSweep(ctx, sweptAt))

	last, err = mark.LastSweep(ctx)
	require.NoError(t, err)
	assert.True(t, last.Equal(sweptAt))

	// 3. A corrupt mark degrades to "never swept" so sweeping resumes
	server.Set(constants.RedisKeySessionSweep, "garbage")
	last, err = mark.LastSweep(ctx)
	require.NoError(t, err)
	assert.True(t, last.IsZero())
}
