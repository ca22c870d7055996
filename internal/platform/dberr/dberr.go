// Copyright (c) 2026 Memodeck. All rights reserved.
// Author: dev@memodeck.app

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
//
// Storage-specific failures (missing rows, unique-constraint violations)
// are classified here once, so repositories never leak pgx errors upward.
package dberr

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/memodeck/memodeck/internal/platform/apperr"
)

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
//
// # Classification
//
//   - pgx.ErrNoRows        -> 404 NOT_FOUND for the named resource
//   - SQLSTATE 23505       -> 409 CONFLICT (unique constraint)
//   - anything else        -> 500 INTERNAL_ERROR with the cause preserved for logging
func Wrap(err error, resource string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(resource)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return apperr.Conflict(resource + " already exists")
	}

	return apperr.Internal(err)
}

// IsUniqueViolation reports whether err is a PostgreSQL unique-constraint violation.
//
// Repositories use this when the Conflict message must name a specific field
// (e.g. "Username is already taken") instead of the generic resource.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// ConstraintName returns the violated constraint's name, or "" if err is not
// a constraint violation.
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}
