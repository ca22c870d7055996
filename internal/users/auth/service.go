// Copyright (c) 2026 Memodeck. All rights reserved.
// Author: dev@memodeck.app

/*
Package auth implements the authentication and session-lifecycle core of
Memodeck: credential storage, password verification, two-tier token issuance
(signed access token + rotated opaque refresh token), per-user session caps,
and revocation.

Architecture:

  - Service: Orchestrates the session state machine (Register, Authenticate,
    RefreshSession, Logout, RevokeAll).
  - Repositories: Domain-defined contracts backed by PostgreSQL (credentials,
    refresh-token rows) and Redis (login throttling, sweep bookkeeping).
  - Security primitives: Argon2id hashing, HMAC-signed access tokens, and
    CSPRNG opaque tokens from internal/platform/sec.

The package ensures that a refresh token is usable exactly once, that at most
a fixed number of sessions exist per account, and that authentication
failures are indistinguishable between unknown accounts and wrong passwords.
*/
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/memodeck/memodeck/internal/platform/apperr"
	"github.com/memodeck/memodeck/internal/platform/constants"
	"github.com/memodeck/memodeck/internal/platform/sec"
	"github.com/memodeck/memodeck/internal/platform/validate"
	"github.com/memodeck/memodeck/pkg/uuid"
)

// # Collaborator Contracts

// TokenProvider mints signed access tokens. Implemented by [sec.TokenService].
type TokenProvider interface {
	GenerateAccessToken(userID, email string) (string, time.Time, error)
}

// CredentialHasher hashes and verifies passwords. Implemented by
// [sec.Argon2idHasher].
type CredentialHasher interface {
	Hash(ctx context.Context, password sec.ValidatedPassword) (sec.HashedPassword, error)
	Verify(ctx context.Context, stored sec.HashedPassword, candidate string) (bool, error)
}

// # Sentinel Errors

var (
	// ErrInvalidCredentials is returned for both an unknown identifier and a
	// wrong password. The two cases must stay indistinguishable to prevent
	// account enumeration.
	ErrInvalidCredentials = apperr.Unauthorized("Invalid login credentials")

	// ErrRefreshNotFound is returned when a presented refresh token matches
	// no stored row, including tokens already consumed by rotation.
	ErrRefreshNotFound = apperr.NotFound("Refresh token")

	// ErrRefreshExpired is returned when the matched row is past its expiry.
	ErrRefreshExpired = apperr.Unauthorized("Refresh token has expired")

	// ErrRefreshRevoked is returned when the matched row was revoked by a
	// logout or a revoke-all.
	ErrRefreshRevoked = apperr.Unauthorized("Refresh token has been revoked")

	// ErrRefreshForbidden is returned when the matched row belongs to a
	// different account than the caller claims.
	ErrRefreshForbidden = apperr.Forbidden("Refresh token belongs to a different account")
)

// # Service

// Options tunes the session lifecycle. Zero values fall back to platform
// defaults.
type Options struct {
	// RefreshTokenTTL is the lifetime of each issued refresh token.
	RefreshTokenTTL time.Duration
	// MaxSessions caps live refresh-token rows per account.
	MaxSessions int
}

func (o Options) withDefaults() Options {
	if o.RefreshTokenTTL <= 0 {
		o.RefreshTokenTTL = constants.DefaultRefreshTokenTTL
	}
	if o.MaxSessions <= 0 {
		o.MaxSessions = constants.MaximumSessionCount
	}
	return o
}

// Service orchestrates registration, authentication, and the refresh-token
// lifecycle.
type Service struct {
	users     UserRepository
	sessions  SessionRepository
	throttle  LoginThrottle
	tokens    TokenProvider
	hasher    CredentialHasher
	policy    *sec.PasswordPolicy
	profanity *sec.Wordlist
	logger    *slog.Logger
	options   Options

	// dummyHash is verified against on unknown-identifier logins so the
	// response time matches the wrong-password path.
	dummyHash sec.HashedPassword
}

/*
NewService wires the authentication service.

Parameters:
  - users: UserRepository
  - sessions: SessionRepository
  - throttle: LoginThrottle
  - tokens: TokenProvider
  - hasher: CredentialHasher
  - policy: *sec.PasswordPolicy
  - profanity: *sec.Wordlist (username screening)
  - logger: *slog.Logger
  - options: Options (zero values take platform defaults)
*/
func NewService(
	users UserRepository,
	sessions SessionRepository,
	throttle LoginThrottle,
	tokens TokenProvider,
	hasher CredentialHasher,
	policy *sec.PasswordPolicy,
	profanity *sec.Wordlist,
	logger *slog.Logger,
	options Options,
) *Service {
	service := &Service{
		users:     users,
		sessions:  sessions,
		throttle:  throttle,
		tokens:    tokens,
		hasher:    hasher,
		policy:    policy,
		profanity: profanity,
		logger:    logger,
		options:   options.withDefaults(),
	}
	service.dummyHash = service.mintDummyHash()
	return service
}

// mintDummyHash produces a throwaway hash under production parameters. When
// hashing fails the dummy stays empty and the equalizing Verify call errors
// internally, which is harmless: its result is always discarded.
func (service *Service) mintDummyHash() sec.HashedPassword {
	// The seed is constant; the per-hash salt already makes the result
	// unpredictable.
	validated, err := service.policy.Validate("Equalizer#Work7")
	if err != nil {
		return ""
	}
	hash, err := service.hasher.Hash(context.Background(), validated)
	if err != nil {
		return ""
	}
	return hash
}

// # Registration

/*
Register creates an account and opens its first session.

Description: Validates the username (length, whitespace, profanity list), the
email shape, and the password against the full strength policy; hashes the
password with Argon2id; persists the account; then issues an access token and
a refresh token exactly as a login would.

Parameters:
  - ctx: context.Context
  - username, email, password: string (raw client input)

Returns:
  - *Session: User plus both freshly issued tokens
  - error: apperr VALIDATION_ERROR, CONFLICT on duplicates, or wrapped failures
*/
func (service *Service) Register(ctx context.Context, username, email, password string) (*Session, error) {
	name, err := NewUsername(username, service.profanity)
	if err != nil {
		return nil, err
	}

	err = (&validate.Validator{}).
		Required(FieldEmail, email).
		Email(FieldEmail, email).
		MaxLen(FieldEmail, email, 254).
		Err()
	if err != nil {
		return nil, err
	}

	validated, err := service.policy.Validate(password)
	if err != nil {
		var policyErr *sec.PolicyError
		if errors.As(err, &policyErr) {
			return nil, validate.FieldFailure(FieldPassword, policyErr.Error())
		}
		return nil, apperr.Internal(fmt.Errorf("auth_service_password_validate_failed: %w", err))
	}

	hash, err := service.hasher.Hash(ctx, validated)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("auth_service_password_hash_failed: %w", err))
	}

	user := &UserWithPasswordHash{
		User: User{
			Username: name.String(),
			Email:    email,
		},
		PasswordHash: hash,
	}

	if err := service.users.Insert(ctx, user); err != nil {
		return nil, err
	}

	service.logger.InfoContext(ctx, "user_registered", slog.String("user_id", user.ID))

	return service.createSession(ctx, &user.User)
}

// # Authentication

/*
Authenticate verifies an identifier/password pair and opens a session.

Description: The identifier may be a username or an email; the lookup
disambiguates. An unknown identifier and a wrong password both return
[ErrInvalidCredentials], and the unknown-identifier path still performs one
Argon2id verification against a dummy hash so the two failures take
comparable time.

Parameters:
  - ctx: context.Context
  - identifier: string (username or email)
  - password: string

Returns:
  - *Session: User plus both freshly issued tokens
  - error: ErrInvalidCredentials, apperr RATE_LIMITED, or wrapped failures
*/
func (service *Service) Authenticate(ctx context.Context, identifier, password string) (*Session, error) {
	err := (&validate.Validator{}).
		Required(FieldLogin, identifier).
		Required(FieldPassword, password).
		Err()
	if err != nil {
		return nil, err
	}

	if !service.throttle.Allow(ctx, identifier) {
		return nil, apperr.RateLimited(int(constants.LoginAttemptWindow.Seconds()))
	}

	user, err := service.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		if appErr := apperr.As(err); appErr != nil && appErr.Code == "NOT_FOUND" {
			// Burn the same hashing work a real verification would.
			_, _ = service.hasher.Verify(ctx, service.dummyHash, password)
			service.throttle.RecordFailure(ctx, identifier)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	match, err := service.hasher.Verify(ctx, user.PasswordHash, password)
	if err != nil {
		// A malformed stored hash can never match. Log it loudly but show
		// the client the standard failure.
		service.logger.ErrorContext(ctx, "password_verify_failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
	if !match {
		service.throttle.RecordFailure(ctx, identifier)
		return nil, ErrInvalidCredentials
	}

	service.throttle.Reset(ctx, identifier)
	service.logger.InfoContext(ctx, "user_authenticated", slog.String("user_id", user.ID))

	return service.createSession(ctx, &user.User)
}

/*
VerifyCredentials re-checks a known account's password without touching any
session state.

Description: This is the re-authentication gate for sensitive account
mutations. It shares the verification path with login: a missing account and
a wrong password both collapse into [ErrInvalidCredentials].

Parameters:
  - ctx: context.Context
  - userID: string (already-authenticated account)
  - password: string (fresh proof of possession)

Returns:
  - *User: Public identity on success
  - error: ErrInvalidCredentials or wrapped failures
*/
func (service *Service) VerifyCredentials(ctx context.Context, userID, password string) (*User, error) {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		if appErr := apperr.As(err); appErr != nil && appErr.Code == "NOT_FOUND" {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	match, err := service.hasher.Verify(ctx, user.PasswordHash, password)
	if err != nil {
		service.logger.ErrorContext(ctx, "password_verify_failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
	if !match {
		return nil, ErrInvalidCredentials
	}

	return &user.User, nil
}

// # Refresh Rotation

/*
RefreshSession exchanges a live refresh token for a brand-new session.

Description: The presented value is hashed and matched against stored rows.
Failures are reported precisely, checked in this order: no row (or an
already-consumed row) is NOT_FOUND; a row owned by a different account is
FORBIDDEN; a revoked row and an expired row each get their own 401. On
success the matched row is consumed and replaced in one transaction, so a
concurrent replay of the same token loses the race and sees NOT_FOUND.

Parameters:
  - ctx: context.Context
  - userID: string (account the caller claims to refresh for)
  - presented: string (opaque refresh-token value)

Returns:
  - *Session: User plus a new access token and a new refresh token
  - error: ErrRefreshNotFound, ErrRefreshForbidden, ErrRefreshRevoked,
    ErrRefreshExpired, or wrapped failures
*/
func (service *Service) RefreshSession(ctx context.Context, userID, presented string) (*Session, error) {
	err := (&validate.Validator{}).
		Required(FieldUserID, userID).
		Required(FieldRefreshToken, presented).
		Err()
	if err != nil {
		return nil, err
	}

	record, err := service.sessions.FindByTokenHash(ctx, sec.HashOpaqueToken(presented))
	if err != nil {
		if appErr := apperr.As(err); appErr != nil && appErr.Code == "NOT_FOUND" {
			return nil, ErrRefreshNotFound
		}
		return nil, err
	}

	// Ownership outranks state: a stolen token must not leak whether it is
	// still live on the victim's account.
	if record.UserID != userID {
		return nil, ErrRefreshForbidden
	}
	if record.IsRevoked {
		return nil, ErrRefreshRevoked
	}
	if record.IsExpired(time.Now()) {
		return nil, ErrRefreshExpired
	}

	user, err := service.users.FindByID(ctx, record.UserID)
	if err != nil {
		return nil, err
	}

	session, replacement, err := service.mintSession(&user.User)
	if err != nil {
		return nil, err
	}

	err = service.sessions.Rotate(ctx, record.ID, replacement, service.options.MaxSessions)
	if err != nil {
		if appErr := apperr.As(err); appErr != nil && appErr.Code == "NOT_FOUND" {
			// Lost the race against a concurrent refresh of the same token.
			return nil, ErrRefreshNotFound
		}
		return nil, err
	}

	service.logger.InfoContext(ctx, "session_refreshed", slog.String("user_id", user.ID))
	return session, nil
}

// # Revocation

/*
Logout revokes the session matching the presented refresh token.

Description: Idempotent. A token that matches no row is treated as already
logged out; a token owned by another account is FORBIDDEN.
*/
func (service *Service) Logout(ctx context.Context, userID, presented string) error {
	if presented == "" {
		return nil
	}

	record, err := service.sessions.FindByTokenHash(ctx, sec.HashOpaqueToken(presented))
	if err != nil {
		if appErr := apperr.As(err); appErr != nil && appErr.Code == "NOT_FOUND" {
			return nil
		}
		return err
	}

	if record.UserID != userID {
		return ErrRefreshForbidden
	}

	if err := service.sessions.Revoke(ctx, record.ID); err != nil {
		return err
	}

	service.logger.InfoContext(ctx, "session_revoked", slog.String("user_id", userID))
	return nil
}

// RevokeAll revokes every live session for the account (logout everywhere).
// Outstanding access tokens keep working until their own short expiry.
func (service *Service) RevokeAll(ctx context.Context, userID string) error {
	if err := service.sessions.RevokeAll(ctx, userID); err != nil {
		return err
	}
	service.logger.InfoContext(ctx, "all_sessions_revoked", slog.String("user_id", userID))
	return nil
}

// # Session Minting

// createSession mints both tokens and persists the refresh row, enforcing
// the per-user cap.
func (service *Service) createSession(ctx context.Context, user *User) (*Session, error) {
	session, record, err := service.mintSession(user)
	if err != nil {
		return nil, err
	}

	if err := service.sessions.Create(ctx, record, service.options.MaxSessions); err != nil {
		return nil, err
	}
	return session, nil
}

// mintSession issues an access token and a fresh opaque refresh token. Only
// the refresh token's hash goes into the returned record; the plaintext
// appears solely in the wire-bound Session.
func (service *Service) mintSession(user *User) (*Session, *RefreshTokenRecord, error) {
	accessValue, accessExpiry, err := service.tokens.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, nil, apperr.Internal(fmt.Errorf("auth_service_access_token_failed: %w", err))
	}

	refreshValue, err := sec.GenerateOpaqueToken(constants.RefreshTokenBytes)
	if err != nil {
		return nil, nil, apperr.Internal(fmt.Errorf("auth_service_refresh_token_failed: %w", err))
	}

	now := time.Now()
	record := &RefreshTokenRecord{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: sec.HashOpaqueToken(refreshValue),
		ExpiresAt: now.Add(service.options.RefreshTokenTTL),
		CreatedAt: now,
	}

	session := &Session{
		User:         *user,
		AccessToken:  IssuedToken{Value: accessValue, ExpiresAt: accessExpiry},
		RefreshToken: IssuedToken{Value: refreshValue, ExpiresAt: record.ExpiresAt},
	}
	return session, record, nil
}
