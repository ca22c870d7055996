// Copyright (c) 2026 Memodeck. All rights reserved.
// Author: dev@memodeck.app

package auth

import (
	"context"
	"time"

	"github.com/memodeck/memodeck/internal/platform/sec"
)

// # User Data Access

// UserRepository defines the data access contract for user credentials.
//
// Implementations translate storage-specific errors (missing rows,
// unique-constraint violations) into [apperr.AppError] values; raw driver
// errors never cross this boundary.
type UserRepository interface {

	/*
		Insert persists a brand-new account with a uniqueness check on
		username and email.

		Parameters:
		  - ctx: context.Context
		  - user: *UserWithPasswordHash (ID and timestamps are filled if zero)

		Returns:
		  - error: apperr CONFLICT naming the duplicate field, or storage failures
	*/
	Insert(ctx context.Context, user *UserWithPasswordHash) error

	/*
		FindByIdentifier returns the credential record whose username OR email
		matches the identifier (case-insensitive). The store disambiguates;
		callers never need to know which field matched.

		Returns:
		  - *UserWithPasswordHash: Internal-only credential record
		  - error: apperr NOT_FOUND or storage failures
	*/
	FindByIdentifier(ctx context.Context, identifier string) (*UserWithPasswordHash, error)

	// FindByID returns the credential record for the given account ID.
	FindByID(ctx context.Context, id string) (*UserWithPasswordHash, error)

	// UpdatePasswordHash replaces only the stored hash. A missing account is
	// an error, never a silent no-op.
	UpdatePasswordHash(ctx context.Context, userID string, hash sec.HashedPassword) error

	// UpdateUsername replaces the username, enforcing uniqueness.
	UpdateUsername(ctx context.Context, userID string, username string) error

	// UpdateEmail replaces the email, enforcing uniqueness.
	UpdateEmail(ctx context.Context, userID string, email string) error

	// Delete removes the account. Refresh-token rows cascade.
	Delete(ctx context.Context, userID string) error
}

// # Session Data Access

// SessionRepository defines the data access contract for refresh-token rows.
//
// # Atomicity
//
// Create and Rotate are each a single transaction. Two concurrent calls for
// the same user cannot jointly exceed the session cap, and a crash
// mid-rotation cannot leave the consumed token both valid and replaced.
type SessionRepository interface {

	/*
		Create inserts a new refresh-token row and, in the same transaction,
		deletes every row for that user beyond the keep most recently created
		non-expired ones.

		Parameters:
		  - ctx: context.Context
		  - record: *RefreshTokenRecord
		  - keep: int (per-user session cap)
	*/
	Create(ctx context.Context, record *RefreshTokenRecord, keep int) error

	/*
		Rotate atomically consumes one refresh-token row and installs its
		replacement, then enforces the cap — all in one transaction.

		The consumed row is deleted, so a second rotation attempt with the
		same value reports NOT_FOUND (single-use guarantee).

		Parameters:
		  - ctx: context.Context
		  - consumedID: string (row being invalidated)
		  - replacement: *RefreshTokenRecord
		  - keep: int (per-user session cap)

		Returns:
		  - error: apperr NOT_FOUND when the row was already consumed
	*/
	Rotate(ctx context.Context, consumedID string, replacement *RefreshTokenRecord, keep int) error

	/*
		FindByTokenHash returns the row matching the hash regardless of its
		expiry or revocation state, so the service can report the precise
		failure (expired vs revoked vs missing).
	*/
	FindByTokenHash(ctx context.Context, tokenHash string) (*RefreshTokenRecord, error)

	// Revoke marks a single row revoked (logout of one device).
	Revoke(ctx context.Context, id string) error

	// RevokeAll marks every live row for the user revoked (logout everywhere).
	RevokeAll(ctx context.Context, userID string) error

	// DeleteExpired removes rows past their expiry and reports how many.
	DeleteExpired(ctx context.Context) (int64, error)
}

// # Volatile Data Access

// LoginThrottle bounds failed authentication attempts per identifier.
//
// Implementations fail open: throttling is a hardening layer, and a
// throttle-store outage must never lock every user out.
type LoginThrottle interface {

	// Allow reports whether another attempt for the identifier is permitted.
	Allow(ctx context.Context, identifier string) bool

	// RecordFailure counts one failed attempt inside the current window.
	RecordFailure(ctx context.Context, identifier string)

	// Reset clears the identifier's window after a successful login.
	Reset(ctx context.Context, identifier string)
}

// SweepMarkStore remembers when the expired-session sweep last ran, so the
// cadence survives process restarts.
type SweepMarkStore interface {

	// LastSweep returns the last completed sweep time, or the zero time if
	// no sweep has ever run.
	LastSweep(ctx context.Context) (time.Time, error)

	// MarkSweep records a completed sweep.
	MarkSweep(ctx context.Context, at time.Time) error
}
