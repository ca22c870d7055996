// Copyright (c) 2026 Memodeck. All rights reserved.
// Author: dev@memodeck.app

package account_test

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memodeck/memodeck/internal/platform/apperr"
	"github.com/memodeck/memodeck/internal/platform/sec"
	"github.com/memodeck/memodeck/internal/users/account"
	"github.com/memodeck/memodeck/internal/users/auth"
)

// # Fakes
//
// The verifier fake stands in for auth.Service; the repositories record the
// mutations the service performs after the gate.

type fakeVerifier struct {
	password string
	user     *auth.User
	calls    int
}

func (v *fakeVerifier) VerifyCredentials(_ context.Context, userID, password string) (*auth.User, error) {
	v.calls++
	if v.user == nil || v.user.ID != userID || password != v.password {
		return nil, auth.ErrInvalidCredentials
	}
	clone := *v.user
	return &clone, nil
}

type recordingUserRepo struct {
	updatedHash     sec.HashedPassword
	updatedUsername string
	updatedEmail    string
	deletedID       string
}

func (r *recordingUserRepo) Insert(context.Context, *auth.UserWithPasswordHash) error {
	return nil
}

func (r *recordingUserRepo) FindByIdentifier(context.Context, string) (*auth.UserWithPasswordHash, error) {
	return nil, apperr.NotFound("User")
}

func (r *recordingUserRepo) FindByID(context.Context, string) (*auth.UserWithPasswordHash, error) {
	return nil, apperr.NotFound("User")
}

func (r *recordingUserRepo) UpdatePasswordHash(_ context.Context, _ string, hash sec.HashedPassword) error {
	r.updatedHash = hash
	return nil
}

func (r *recordingUserRepo) UpdateUsername(_ context.Context, _ string, username string) error {
	r.updatedUsername = username
	return nil
}

func (r *recordingUserRepo) UpdateEmail(_ context.Context, _ string, email string) error {
	r.updatedEmail = email
	return nil
}

func (r *recordingUserRepo) Delete(_ context.Context, userID string) error {
	r.deletedID = userID
	return nil
}

type revokeCountingSessions struct {
	revokeAllCalls int
}

func (s *revokeCountingSessions) Create(context.Context, *auth.RefreshTokenRecord, int) error {
	return nil
}

func (s *revokeCountingSessions) Rotate(context.Context, string, *auth.RefreshTokenRecord, int) error {
	return nil
}

func (s *revokeCountingSessions) FindByTokenHash(context.Context, string) (*auth.RefreshTokenRecord, error) {
	return nil, apperr.NotFound("Refresh token")
}

func (s *revokeCountingSessions) Revoke(context.Context, string) error { return nil }

func (s *revokeCountingSessions) RevokeAll(context.Context, string) error {
	s.revokeAllCalls++
	return nil
}

func (s *revokeCountingSessions) DeleteExpired(context.Context) (int64, error) { return 0, nil }

// # Fixture

type accountFixture struct {
	service  *account.Service
	verifier *fakeVerifier
	users    *recordingUserRepo
	sessions *revokeCountingSessions
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()

	verifier := &fakeVerifier{
		password: "Correct#Horse7",
		user:     &auth.User{ID: "user-1", Username: "kenji", Email: "kenji@memodeck.app"},
	}
	users := &recordingUserRepo{}
	sessions := &revokeCountingSessions{}

	hasher := sec.NewArgon2idHasher(sec.Argon2idParams{
		MemoryKB: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
	}, 1)

	service := account.NewService(
		verifier,
		users,
		sessions,
		hasher,
		sec.NewPasswordPolicy(sec.NewWordlist([]string{"password123!"})),
		sec.NewWordlist([]string{"slur"}),
		slog.New(slog.DiscardHandler),
	)

	return &accountFixture{service: service, verifier: verifier, users: users, sessions: sessions}
}

// # Tests

/*
TestService_ChangePassword verifies the gate, the policy check on the new
password, and the forced logout of every session.
*/
func TestService_ChangePassword(t *testing.T) {
	fixture := newAccountFixture(t)
	ctx := context.Background()

	// 1. Wrong current password fails closed, nothing mutated
	err := fixture.service.ChangePassword(ctx, "user-1", "Wrong#Pass99", "New#Stable42")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	assert.Empty(t, fixture.users.updatedHash)

	// 2. Weak replacement is rejected after the gate
	err = fixture.service.ChangePassword(ctx, "user-1", "Correct#Horse7", "weak")
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "VALIDATION_ERROR", ae.Code)
	assert.Empty(t, fixture.users.updatedHash)

	// 3. Valid change stores a hash and revokes all sessions
	err = fixture.service.ChangePassword(ctx, "user-1", "Correct#Horse7", "New#Stable42")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(fixture.users.updatedHash), "$argon2id$"))
	assert.NotContains(t, string(fixture.users.updatedHash), "New#Stable42")
	assert.Equal(t, 1, fixture.sessions.revokeAllCalls)
}

/*
TestService_ChangeUsername verifies the gate plus registration-grade
validation of the candidate.
*/
func TestService_ChangeUsername(t *testing.T) {
	fixture := newAccountFixture(t)
	ctx := context.Background()

	// 1. Gate failure
	_, err := fixture.service.ChangeUsername(ctx, "user-1", "Wrong#Pass99", "newname")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	// 2. Invalid candidates rejected
	for _, candidate := range []string{"ab", "has space", "xxSLURxx"} {
		_, err := fixture.service.ChangeUsername(ctx, "user-1", "Correct#Horse7", candidate)
		require.Error(t, err, candidate)
		assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
	}
	assert.Empty(t, fixture.users.updatedUsername)

	// 3. Valid change persists and returns the updated identity
	user, err := fixture.service.ChangeUsername(ctx, "user-1", "Correct#Horse7", "  newname  ")
	require.NoError(t, err)
	assert.Equal(t, "newname", user.Username)
	assert.Equal(t, "newname", fixture.users.updatedUsername)
}

/*
TestService_ChangeEmail verifies the gate and the email shape check.
*/
func TestService_ChangeEmail(t *testing.T) {
	fixture := newAccountFixture(t)
	ctx := context.Background()

	_, err := fixture.service.ChangeEmail(ctx, "user-1", "Wrong#Pass99", "new@memodeck.app")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = fixture.service.ChangeEmail(ctx, "user-1", "Correct#Horse7", "not-an-email")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)

	user, err := fixture.service.ChangeEmail(ctx, "user-1", "Correct#Horse7", "new@memodeck.app")
	require.NoError(t, err)
	assert.Equal(t, "new@memodeck.app", user.Email)
	assert.Equal(t, "new@memodeck.app", fixture.users.updatedEmail)
}

/*
TestService_DeleteAccount verifies deletion happens only behind the gate.
*/
func TestService_DeleteAccount(t *testing.T) {
	fixture := newAccountFixture(t)
	ctx := context.Background()

	err := fixture.service.DeleteAccount(ctx, "user-1", "Wrong#Pass99")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	assert.Empty(t, fixture.users.deletedID)

	err = fixture.service.DeleteAccount(ctx, "user-1", "Correct#Horse7")
	require.NoError(t, err)
	assert.Equal(t, "user-1", fixture.users.deletedID)
}

/*
TestService_GateComposition verifies every operation consults the verifier
exactly once per call.
*/
func TestService_GateComposition(t *testing.T) {
	fixture := newAccountFixture(t)
	ctx := context.Background()

	_ = fixture.service.ChangePassword(ctx, "user-1", "Correct#Horse7", "New#Stable42")
	_, _ = fixture.service.ChangeUsername(ctx, "user-1", "Correct#Horse7", "newname")
	_, _ = fixture.service.ChangeEmail(ctx, "user-1", "Correct#Horse7", "new@memodeck.app")
	_ = fixture.service.DeleteAccount(ctx, "user-1", "Correct#Horse7")

	assert.Equal(t, 4, fixture.verifier.calls)
}
