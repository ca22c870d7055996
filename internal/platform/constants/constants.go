// Copyright (c) 2026 Memodeck. All rights reserved.
// Author: dev@memodeck.app

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, session limits, and cross-cutting keys that are
shared between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Session Lifecycle: Token TTLs and the per-user session cap.
  - Security: JWT issuer and cookie configuration.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "memodeck-auth"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long in-flight requests get to finish on SIGTERM.
	ShutdownTimeout = 15 * time.Second
)

// # Session Lifecycle

const (
	// DefaultAccessTokenTTL is how long a signed access token stays valid.
	DefaultAccessTokenTTL = 24 * time.Hour

	// DefaultRefreshTokenTTL is how long a refresh token stays valid (14 days).
	DefaultRefreshTokenTTL = 14 * 24 * time.Hour

	// MaximumSessionCount is the per-user cap on live refresh tokens.
	// Creating a session beyond the cap evicts the oldest excess rows.
	MaximumSessionCount = 5

	// RefreshTokenBytes is the entropy of the opaque refresh value (256 bits).
	RefreshTokenBytes = 32

	// SweepCheckInterval is how often the expired-session sweeper wakes up.
	SweepCheckInterval = 1 * time.Hour

	// SweepMinInterval is the minimum gap between two actual sweeps.
	SweepMinInterval = 7 * 24 * time.Hour
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the sustained request rate allowed per client IP.
	DefaultRateLimitRPS = 20

	// DefaultRateLimitBurst is the instantaneous burst capacity per client IP.
	DefaultRateLimitBurst = 40

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute

	// LoginAttemptLimit is the number of failed logins tolerated per window.
	LoginAttemptLimit = 10

	// LoginAttemptWindow is the fixed window for counting failed logins.
	LoginAttemptWindow = 15 * time.Minute
)

// # Authentication

const (
	// AuthIssuer is the standard 'iss' claim in JWTs.
	AuthIssuer = "memodeck.app"

	// RefreshTokenCookieName is the name of the cookie that stores the refresh token.
	RefreshTokenCookieName = "refresh_token"

	// RefreshTokenCookiePath is the scoped path for the refresh token cookie.
	RefreshTokenCookiePath = "/api/v1/auth"
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
)

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldError   = "error"
	FieldCode    = "code"
	FieldDetails = "details"
	FieldMessage = "message"
	FieldStatus  = "status"
)

// # Redis Prefixes (Cache Taxonomy)

const (
	RedisPrefixLoginAttempts = "auth:login_attempts:"
	RedisKeySessionSweep     = "auth:session_sweep:last"
)
