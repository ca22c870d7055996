// Copyright (c) 2026 Memodeck. All rights reserved.
// Author: dev@memodeck.app

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/memodeck/memodeck/internal/platform/constants"
	"github.com/memodeck/memodeck/internal/platform/sec"
)

// # Login Throttle

// RedisLoginThrottle implements [LoginThrottle] with a fixed-window counter
// per login identifier.
//
// The throttle fails open: when Redis is unreachable, login proceeds and the
// outage is logged. Locking every user out because a cache died would be a
// worse failure mode than briefly losing brute-force protection.
type RedisLoginThrottle struct {
	client *redis.Client
	logger *slog.Logger
	limit  int
	window time.Duration
}

// NewLoginThrottle creates a Redis-backed login throttle with the platform's
// default attempt limit and window.
func NewLoginThrottle(client *redis.Client, logger *slog.Logger) *RedisLoginThrottle {
	return &RedisLoginThrottle{
		client: client,
		logger: logger,
		limit:  constants.LoginAttemptLimit,
		window: constants.LoginAttemptWindow,
	}
}

// key derives the counter key from the login identifier. The identifier is
// normalized then hashed so raw usernames and emails never appear in Redis.
func (throttle *RedisLoginThrottle) key(identifier string) string {
	return constants.RedisPrefixLoginAttempts + sec.HashOpaqueToken(sec.Normalize(identifier))
}

/*
Allow reports whether another login attempt is permitted for the identifier.

Returns:
  - bool: false only when the failure count has reached the limit
*/
func (throttle *RedisLoginThrottle) Allow(ctx context.Context, identifier string) bool {
	count, err := throttle.client.Get(ctx, throttle.key(identifier)).Int()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			throttle.logger.ErrorContext(ctx, "login_throttle_read_failed", slog.String("error", err.Error()))
		}
		return true
	}
	return count < throttle.limit
}

// RecordFailure increments the failure counter, starting the window on the
// first failure.
func (throttle *RedisLoginThrottle) RecordFailure(ctx context.Context, identifier string) {
	key := throttle.key(identifier)

	pipe := throttle.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, throttle.window)

	if _, err := pipe.Exec(ctx); err != nil {
		throttle.logger.ErrorContext(ctx, "login_throttle_record_failed", slog.String("error", err.Error()))
	}
}

// Reset clears the failure counter after a successful login.
func (throttle *RedisLoginThrottle) Reset(ctx context.Context, identifier string) {
	if err := throttle.client.Del(ctx, throttle.key(identifier)).Err(); err != nil {
		throttle.logger.ErrorContext(ctx, "login_throttle_reset_failed", slog.String("error", err.Error()))
	}
}

// # Sweep Bookkeeping

// RedisSweepMark implements [SweepMarkStore], persisting the timestamp of the
// last completed session sweep so the cadence survives process restarts.
type RedisSweepMark struct {
	client *redis.Client
}

// NewSweepMark creates a Redis-backed sweep mark store.
func NewSweepMark(client *redis.Client) *RedisSweepMark {
	return &RedisSweepMark{client: client}
}

// LastSweep returns the time of the last completed sweep. A missing mark
// returns the zero time, which callers treat as "never swept".
func (mark *RedisSweepMark) LastSweep(ctx context.Context) (time.Time, error) {
	value, err := mark.client.Get(ctx, constants.RedisKeySessionSweep).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}

	swept, err := time.Parse(time.RFC3339, value)
	if err != nil {
		// A corrupt mark is treated as missing so sweeping resumes.
		return time.Time{}, nil
	}
	return swept, nil
}

// MarkSweep records a completed sweep at the given time.
func (mark *RedisSweepMark) MarkSweep(ctx context.Context, at time.Time) error {
	return mark.client.Set(ctx, constants.RedisKeySessionSweep, at.UTC().Format(time.RFC3339), 0).Err()
}
