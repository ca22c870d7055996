// Copyright (c) 2026 Memodeck. All rights reserved.
// Author: dev@memodeck.app

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memodeck/memodeck/internal/platform/apperr"
	"github.com/memodeck/memodeck/internal/users/auth"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(mock.Close)
	return mock
}

func uniqueViolation(constraint string) *pgconn.PgError {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

/*
TestPostgresUserRepository_Insert covers the insert and both duplicate-field
conflicts.
*/
func TestPostgresUserRepository_Insert(t *testing.T) {
	tests := []struct {
		name     string
		execErr  error
		wantCode string
		wantMsg  string
	}{
		{"success", nil, "", ""},
		{"duplicate_username", uniqueViolation("account_username_lower_idx"), "CONFLICT", "Username is already taken"},
		{"duplicate_email", uniqueViolation("account_email_lower_idx"), "CONFLICT", "Email is already registered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockPool(t)

			expectation := mock.ExpectExec(`INSERT INTO users\.account`).
				WithArgs(pgxmock.AnyArg(), "kenji", "kenji@memodeck.app", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg())
			if tt.execErr != nil {
				expectation.WillReturnError(tt.execErr)
			} else {
				expectation.WillReturnResult(pgxmock.NewResult("INSERT", 1))
			}

			repo := auth.NewUserRepository(mock)
			user := &auth.UserWithPasswordHash{
				User: auth.User{Username: "kenji", Email: "kenji@memodeck.app"},
			}
			err := repo.Insert(context.Background(), user)

			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.NotEmpty(t, user.ID, "ID should be assigned")
			} else {
				ae := apperr.As(err)
				require.NotNil(t, ae)
				assert.Equal(t, tt.wantCode, ae.Code)
				assert.Equal(t, tt.wantMsg, ae.Message)
			}

			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

/*
TestPostgresUserRepository_FindByIdentifier covers the hit and the miss.
*/
func TestPostgresUserRepository_FindByIdentifier(t *testing.T) {
	columns := []string{"id", "username", "email", "passwordhash", "createdat", "updatedat"}
	now := time.Now()

	t.Run("found", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`SELECT id, username, email, passwordhash, createdat, updatedat`).
			WithArgs("kenji").
			WillReturnRows(pgxmock.NewRows(columns).
				AddRow("user-1", "kenji", "kenji@memodeck.app", "$argon2id$hash", now, now))

		repo := auth.NewUserRepository(mock)
		user, err := repo.FindByIdentifier(context.Background(), " kenji ")

		require.NoError(t, err)
		assert.Equal(t, "user-1", user.ID)
		assert.Equal(t, "$argon2id$hash", string(user.PasswordHash))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not_found", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`SELECT id, username, email, passwordhash, createdat, updatedat`).
			WithArgs("ghost").
			WillReturnRows(pgxmock.NewRows(columns))

		repo := auth.NewUserRepository(mock)
		_, err := repo.FindByIdentifier(context.Background(), "ghost")

		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, "NOT_FOUND", ae.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

/*
TestPostgresUserRepository_UpdatePasswordHash verifies a vanished account is
NOT_FOUND, never a silent no-op.
*/
func TestPostgresUserRepository_UpdatePasswordHash(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`UPDATE users\.account`).
			WithArgs("user-1", "$argon2id$new", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		repo := auth.NewUserRepository(mock)
		err := repo.UpdatePasswordHash(context.Background(), "user-1", "$argon2id$new")

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing_account", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`UPDATE users\.account`).
			WithArgs("ghost", "$argon2id$new", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		repo := auth.NewUserRepository(mock)
		err := repo.UpdatePasswordHash(context.Background(), "ghost", "$argon2id$new")

		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, "NOT_FOUND", ae.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

/*
TestPostgresSessionRepository_Create verifies insert and cap enforcement run
in one transaction.
*/
func TestPostgresSessionRepository_Create(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO users\.session`).
		WithArgs("session-1", "user-1", "hash-1", pgxmock.AnyArg(), false, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`DELETE FROM users\.session`).
		WithArgs("user-1", "user-1", 5).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	repo := auth.NewSessionRepository(mock)
	record := &auth.RefreshTokenRecord{
		ID:        "session-1",
		UserID:    "user-1",
		TokenHash: "hash-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	err := repo.Create(context.Background(), record, 5)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestPostgresSessionRepository_Rotate covers the atomic consume-and-replace,
including the lost-race path.
*/
func TestPostgresSessionRepository_Rotate(t *testing.T) {
	replacement := &auth.RefreshTokenRecord{
		ID:        "session-2",
		UserID:    "user-1",
		TokenHash: "hash-2",
		ExpiresAt: time.Now().Add(time.Hour),
	}

	t.Run("success", func(t *testing.T) {
		mock := newMockPool(t)

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM users\.session WHERE id`).
			WithArgs("session-1").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mock.ExpectExec(`INSERT INTO users\.session`).
			WithArgs("session-2", "user-1", "hash-2", pgxmock.AnyArg(), false, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec(`DELETE FROM users\.session`).
			WithArgs("user-1", "user-1", 5).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectCommit()

		repo := auth.NewSessionRepository(mock)
		err := repo.Rotate(context.Background(), "session-1", replacement, 5)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already_consumed", func(t *testing.T) {
		mock := newMockPool(t)

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM users\.session WHERE id`).
			WithArgs("session-1").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectRollback()

		repo := auth.NewSessionRepository(mock)
		err := repo.Rotate(context.Background(), "session-1", replacement, 5)

		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, "NOT_FOUND", ae.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

/*
TestPostgresSessionRepository_FindByTokenHash verifies revoked and expired
rows are returned as-is for the service to classify.
*/
func TestPostgresSessionRepository_FindByTokenHash(t *testing.T) {
	columns := []string{"id", "userid", "tokenhash", "expiresat", "isrevoked", "createdat"}
	past := time.Now().Add(-time.Hour)

	mock := newMockPool(t)
	mock.ExpectQuery(`SELECT id, userid, tokenhash, expiresat, isrevoked, createdat`).
		WithArgs("hash-1").
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow("session-1", "user-1", "hash-1", past, true, past))

	repo := auth.NewSessionRepository(mock)
	record, err := repo.FindByTokenHash(context.Background(), "hash-1")

	require.NoError(t, err)
	assert.True(t, record.IsRevoked)
	assert.True(t, record.IsExpired(time.Now()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestPostgresSessionRepository_DeleteExpired checks the sweep reports its row
count.
*/
func TestPostgresSessionRepository_DeleteExpired(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectExec(`DELETE FROM users\.session WHERE expiresat`).
		WillReturnResult(pgxmock.NewResult("DELETE", 42))

	repo := auth.NewSessionRepository(mock)
	removed, err := repo.DeleteExpired(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(42), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
