// Copyright (c) 2026 Memodeck. All rights reserved.
// Author: dev@memodeck.app

/*
Package account implements sensitive account mutations: password, username,
and email changes plus account deletion.

Every operation is gated behind a fresh password check. The gate composes the
auth service's verification path rather than reimplementing it, so the
anti-enumeration and timing properties of login apply here unchanged.
*/
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/memodeck/memodeck/internal/platform/apperr"
	"github.com/memodeck/memodeck/internal/platform/sec"
	"github.com/memodeck/memodeck/internal/platform/validate"
	"github.com/memodeck/memodeck/internal/users/auth"
)

// CredentialVerifier is the re-authentication gate. Implemented by
// [auth.Service.VerifyCredentials].
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, userID, password string) (*auth.User, error)
}

// Service performs re-auth-gated account mutations.
type Service struct {
	verifier  CredentialVerifier
	users     auth.UserRepository
	sessions  auth.SessionRepository
	hasher    auth.CredentialHasher
	policy    *sec.PasswordPolicy
	profanity *sec.Wordlist
	logger    *slog.Logger
}

// NewService wires the account service on top of the auth package's
// repositories and verification gate.
func NewService(
	verifier CredentialVerifier,
	users auth.UserRepository,
	sessions auth.SessionRepository,
	hasher auth.CredentialHasher,
	policy *sec.PasswordPolicy,
	profanity *sec.Wordlist,
	logger *slog.Logger,
) *Service {
	return &Service{
		verifier:  verifier,
		users:     users,
		sessions:  sessions,
		hasher:    hasher,
		policy:    policy,
		profanity: profanity,
		logger:    logger,
	}
}

/*
ChangePassword replaces the account password after verifying the current one.

Description: The new password runs through the full strength policy before
hashing. On success every live session is revoked, forcing re-login on all
devices; revocation failure is logged but does not undo the password change.

Parameters:
  - ctx: context.Context
  - userID: string (authenticated account)
  - currentPassword: string (fresh proof)
  - newPassword: string

Returns:
  - error: ErrInvalidCredentials from the gate, VALIDATION_ERROR, or wrapped failures
*/
func (service *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if _, err := service.verifier.VerifyCredentials(ctx, userID, currentPassword); err != nil {
		return err
	}

	validated, err := service.policy.Validate(newPassword)
	if err != nil {
		var policyErr *sec.PolicyError
		if errors.As(err, &policyErr) {
			return validate.FieldFailure(auth.FieldPassword, policyErr.Error())
		}
		return apperr.Internal(fmt.Errorf("account_service_password_validate_failed: %w", err))
	}

	hash, err := service.hasher.Hash(ctx, validated)
	if err != nil {
		return apperr.Internal(fmt.Errorf("account_service_password_hash_failed: %w", err))
	}

	if err := service.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}

	// Best effort: the password change already committed.
	if err := service.sessions.RevokeAll(ctx, userID); err != nil {
		service.logger.ErrorContext(ctx, "post_password_change_revoke_failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	service.logger.InfoContext(ctx, "password_changed", slog.String("user_id", userID))
	return nil
}

/*
ChangeUsername replaces the username after verifying the password.

Description: The candidate passes the same validation as registration
(length, whitespace, profanity list) and uniqueness is enforced by the store.
*/
func (service *Service) ChangeUsername(ctx context.Context, userID, password, newUsername string) (*auth.User, error) {
	user, err := service.verifier.VerifyCredentials(ctx, userID, password)
	if err != nil {
		return nil, err
	}

	name, err := auth.NewUsername(newUsername, service.profanity)
	if err != nil {
		return nil, err
	}

	if err := service.users.UpdateUsername(ctx, userID, name.String()); err != nil {
		return nil, err
	}

	service.logger.InfoContext(ctx, "username_changed", slog.String("user_id", userID))

	user.Username = name.String()
	return user, nil
}

/*
ChangeEmail replaces the email after verifying the password.
*/
func (service *Service) ChangeEmail(ctx context.Context, userID, password, newEmail string) (*auth.User, error) {
	user, err := service.verifier.VerifyCredentials(ctx, userID, password)
	if err != nil {
		return nil, err
	}

	err = (&validate.Validator{}).
		Required(auth.FieldEmail, newEmail).
		Email(auth.FieldEmail, newEmail).
		MaxLen(auth.FieldEmail, newEmail, 254).
		Err()
	if err != nil {
		return nil, err
	}

	if err := service.users.UpdateEmail(ctx, userID, newEmail); err != nil {
		return nil, err
	}

	service.logger.InfoContext(ctx, "email_changed", slog.String("user_id", userID))

	user.Email = newEmail
	return user, nil
}

/*
DeleteAccount permanently removes the account after verifying the password.

Description: Refresh-token rows cascade with the account row, so every
session dies with the account. This is irreversible.
*/
func (service *Service) DeleteAccount(ctx context.Context, userID, password string) error {
	if _, err := service.verifier.VerifyCredentials(ctx, userID, password); err != nil {
		return err
	}

	if err := service.users.Delete(ctx, userID); err != nil {
		return err
	}

	service.logger.InfoContext(ctx, "account_deleted", slog.String("user_id", userID))
	return nil
}
