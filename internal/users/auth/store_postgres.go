// Copyright (c) 2026 Memodeck. All rights reserved.
// Author: dev@memodeck.app

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/memodeck/memodeck/internal/platform/apperr"
	"github.com/memodeck/memodeck/internal/platform/dberr"
	"github.com/memodeck/memodeck/internal/platform/sec"
	"github.com/memodeck/memodeck/pkg/uuid"
)

// PgxPool is the subset of [*pgxpool.Pool] the repositories use. Tests
// substitute a pgxmock pool through the same interface.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// compile-time check: the production pool satisfies the repository contract.
var _ PgxPool = (*pgxpool.Pool)(nil)

// # User Repository

// PostgresUserRepository implements [UserRepository] using pgx.
type PostgresUserRepository struct {
	pool PgxPool
}

// NewUserRepository creates the PostgreSQL implementation of [UserRepository].
func NewUserRepository(pool PgxPool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// conflictMessage maps a violated unique constraint to a client-safe message.
func conflictMessage(err error) string {
	switch dberr.ConstraintName(err) {
	case "account_username_lower_idx":
		return "Username is already taken"
	case "account_email_lower_idx":
		return "Email is already registered"
	default:
		return "Account already exists"
	}
}

/*
Insert persists a new account row with uniqueness enforced on username and
email (case-insensitive).

Parameters:
  - ctx: context.Context
  - user: *UserWithPasswordHash (ID/timestamps filled when zero)

Returns:
  - error: apperr CONFLICT naming the duplicate field, or wrapped storage errors
*/
func (repository *PostgresUserRepository) Insert(ctx context.Context, user *UserWithPasswordHash) error {
	const query = `
		INSERT INTO users.account (id, username, email, passwordhash, createdat, updatedat)
		VALUES ($1, $2, $3, $4, $5, $6)`

	now := time.Now()
	if user.ID == "" {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := repository.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		string(user.PasswordHash),
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return apperr.Conflict(conflictMessage(err))
		}
		return apperr.Internal(fmt.Errorf("postgres_user_repo_insert_failed: %w", err))
	}

	return nil
}

/*
FindByIdentifier retrieves a credential record by username or email.

Description: A single case-insensitive lookup disambiguates the identifier;
callers cannot tell (and must not care) which column matched.

Returns:
  - *UserWithPasswordHash: Hydrated credential record
  - error: apperr NOT_FOUND or wrapped storage errors
*/
func (repository *PostgresUserRepository) FindByIdentifier(ctx context.Context, identifier string) (*UserWithPasswordHash, error) {
	const query = `
		SELECT id, username, email, passwordhash, createdat, updatedat
		FROM users.account
		WHERE LOWER(username) = LOWER($1) OR LOWER(email) = LOWER($1)`

	return repository.scanOne(repository.pool.QueryRow(ctx, query, strings.TrimSpace(identifier)))
}

// FindByID retrieves a credential record by primary key.
func (repository *PostgresUserRepository) FindByID(ctx context.Context, id string) (*UserWithPasswordHash, error) {
	const query = `
		SELECT id, username, email, passwordhash, createdat, updatedat
		FROM users.account
		WHERE id = $1`

	return repository.scanOne(repository.pool.QueryRow(ctx, query, id))
}

func (repository *PostgresUserRepository) scanOne(row pgx.Row) (*UserWithPasswordHash, error) {
	user := &UserWithPasswordHash{}
	var hash string

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&hash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, apperr.Internal(fmt.Errorf("postgres_user_repo_scan_failed: %w", err))
	}

	user.PasswordHash = sec.HashedPassword(hash)
	return user, nil
}

/*
UpdatePasswordHash replaces only the stored hash for one account.

A zero-row update means the account vanished; that is surfaced as NOT_FOUND
so callers fail closed instead of assuming success.
*/
func (repository *PostgresUserRepository) UpdatePasswordHash(ctx context.Context, userID string, hash sec.HashedPassword) error {
	const query = `
		UPDATE users.account
		SET passwordhash = $2, updatedat = $3
		WHERE id = $1`

	return repository.execOne(ctx, query, userID, string(hash), time.Now())
}

// UpdateUsername replaces the username, enforcing uniqueness.
func (repository *PostgresUserRepository) UpdateUsername(ctx context.Context, userID string, username string) error {
	const query = `
		UPDATE users.account
		SET username = $2, updatedat = $3
		WHERE id = $1`

	return repository.execOne(ctx, query, userID, username, time.Now())
}

// UpdateEmail replaces the email, enforcing uniqueness.
func (repository *PostgresUserRepository) UpdateEmail(ctx context.Context, userID string, email string) error {
	const query = `
		UPDATE users.account
		SET email = $2, updatedat = $3
		WHERE id = $1`

	return repository.execOne(ctx, query, userID, email, time.Now())
}

// Delete removes the account row. Session rows cascade via the schema's
// foreign key.
func (repository *PostgresUserRepository) Delete(ctx context.Context, userID string) error {
	const query = `DELETE FROM users.account WHERE id = $1`
	return repository.execOne(ctx, query, userID)
}

// execOne runs a statement that must affect exactly one account row.
func (repository *PostgresUserRepository) execOne(ctx context.Context, query string, args ...any) error {
	tag, err := repository.pool.Exec(ctx, query, args...)
	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return apperr.Conflict(conflictMessage(err))
		}
		return apperr.Internal(fmt.Errorf("postgres_user_repo_exec_failed: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}
	return nil
}

// # Session Repository

// PostgresSessionRepository implements [SessionRepository] using pgx.
type PostgresSessionRepository struct {
	pool PgxPool
}

// NewSessionRepository creates the PostgreSQL implementation of [SessionRepository].
func NewSessionRepository(pool PgxPool) *PostgresSessionRepository {
	return &PostgresSessionRepository{pool: pool}
}

const insertSessionQuery = `
		INSERT INTO users.session (id, userid, tokenhash, expiresat, isrevoked, createdat)
		VALUES ($1, $2, $3, $4, $5, $6)`

// enforceCapQuery keeps the `keep` most recently created non-expired rows for
// the user and deletes every other row (older excess and expired leftovers).
const enforceCapQuery = `
		DELETE FROM users.session
		WHERE userid = $1
		  AND id NOT IN (
			SELECT id FROM users.session
			WHERE userid = $2 AND expiresat > NOW()
			ORDER BY createdat DESC, id DESC
			LIMIT $3
		  )`

/*
Create inserts a refresh-token row and enforces the per-user cap in the same
transaction.

Description: The insert-then-enforce pair runs under one transaction so two
concurrent session creations for the same user cannot jointly exceed the cap,
and a cancelled request cannot leave a half-written session row.

Parameters:
  - ctx: context.Context
  - record: *RefreshTokenRecord (CreatedAt filled when zero)
  - keep: int (per-user session cap)
*/
func (repository *PostgresSessionRepository) Create(ctx context.Context, record *RefreshTokenRecord, keep int) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	return repository.inTransaction(ctx, func(tx pgx.Tx) error {
		if err := insertSessionRow(ctx, tx, record); err != nil {
			return err
		}
		return enforceCap(ctx, tx, record.UserID, keep)
	})
}

/*
Rotate consumes one refresh-token row and installs its replacement
atomically.

Description: The consumed row is deleted first; when no row is deleted the
token was already spent (or swept) and the transaction aborts with NOT_FOUND,
preserving the single-use guarantee under concurrent refreshes. The
replacement insert and cap enforcement share the same transaction, so a crash
mid-rotation leaves either the old state or the new state — never both.
*/
func (repository *PostgresSessionRepository) Rotate(ctx context.Context, consumedID string, replacement *RefreshTokenRecord, keep int) error {
	if replacement.CreatedAt.IsZero() {
		replacement.CreatedAt = time.Now()
	}

	return repository.inTransaction(ctx, func(tx pgx.Tx) error {
		const consumeQuery = `DELETE FROM users.session WHERE id = $1`

		tag, err := tx.Exec(ctx, consumeQuery, consumedID)
		if err != nil {
			return apperr.Internal(fmt.Errorf("postgres_session_repo_consume_failed: %w", err))
		}
		if tag.RowsAffected() == 0 {
			return apperr.NotFound("Refresh token")
		}

		if err := insertSessionRow(ctx, tx, replacement); err != nil {
			return err
		}
		return enforceCap(ctx, tx, replacement.UserID, keep)
	})
}

/*
FindByTokenHash retrieves a refresh-token row by its hash, regardless of
expiry or revocation.

Description: The service layer classifies the row's state; filtering here
would collapse Expired/Revoked/NotFound into one indistinguishable failure.
*/
func (repository *PostgresSessionRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*RefreshTokenRecord, error) {
	const query = `
		SELECT id, userid, tokenhash, expiresat, isrevoked, createdat
		FROM users.session
		WHERE tokenhash = $1`

	record := &RefreshTokenRecord{}
	err := repository.pool.QueryRow(ctx, query, tokenHash).Scan(
		&record.ID,
		&record.UserID,
		&record.TokenHash,
		&record.ExpiresAt,
		&record.IsRevoked,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Refresh token")
		}
		return nil, apperr.Internal(fmt.Errorf("postgres_session_repo_find_failed: %w", err))
	}

	return record, nil
}

// Revoke marks a single session row revoked.
func (repository *PostgresSessionRepository) Revoke(ctx context.Context, id string) error {
	const query = `UPDATE users.session SET isrevoked = TRUE WHERE id = $1`
	if _, err := repository.pool.Exec(ctx, query, id); err != nil {
		return apperr.Internal(fmt.Errorf("postgres_session_repo_revoke_failed: %w", err))
	}
	return nil
}

// RevokeAll marks every live session row for the user revoked.
func (repository *PostgresSessionRepository) RevokeAll(ctx context.Context, userID string) error {
	const query = `UPDATE users.session SET isrevoked = TRUE WHERE userid = $1 AND isrevoked = FALSE`
	if _, err := repository.pool.Exec(ctx, query, userID); err != nil {
		return apperr.Internal(fmt.Errorf("postgres_session_repo_revoke_all_failed: %w", err))
	}
	return nil
}

// DeleteExpired permanently removes rows past their expiry and reports the
// count. Live rows and their cap bookkeeping are untouched.
func (repository *PostgresSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM users.session WHERE expiresat <= NOW()`

	tag, err := repository.pool.Exec(ctx, query)
	if err != nil {
		return 0, apperr.Internal(fmt.Errorf("postgres_session_repo_delete_expired_failed: %w", err))
	}
	return tag.RowsAffected(), nil
}

// # Transaction Helpers

func (repository *PostgresSessionRepository) inTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := repository.pool.Begin(ctx)
	if err != nil {
		return apperr.Internal(fmt.Errorf("postgres_session_repo_begin_failed: %w", err))
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Internal(fmt.Errorf("postgres_session_repo_commit_failed: %w", err))
	}
	return nil
}

func insertSessionRow(ctx context.Context, tx pgx.Tx, record *RefreshTokenRecord) error {
	_, err := tx.Exec(ctx, insertSessionQuery,
		record.ID,
		record.UserID,
		record.TokenHash,
		record.ExpiresAt,
		record.IsRevoked,
		record.CreatedAt,
	)
	if err != nil {
		return apperr.Internal(fmt.Errorf("postgres_session_repo_insert_failed: %w", err))
	}
	return nil
}

func enforceCap(ctx context.Context, tx pgx.Tx, userID string, keep int) error {
	if _, err := tx.Exec(ctx, enforceCapQuery, userID, userID, keep); err != nil {
		return apperr.Internal(fmt.Errorf("postgres_session_repo_enforce_cap_failed: %w", err))
	}
	return nil
}
