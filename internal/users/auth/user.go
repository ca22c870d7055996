// Copyright (c) 2026 Memodeck. All rights reserved.
// Author: dev@memodeck.app

package auth

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/memodeck/memodeck/internal/platform/sec"
	"github.com/memodeck/memodeck/internal/platform/validate"
)

// # Identity Value Objects

const (
	usernameMinLength = 3
	usernameMaxLength = 20
)

// Username is a validated account name. Invalid input fails at construction;
// an instance is immutable and always well-formed.
type Username struct {
	value string
}

/*
NewUsername validates raw and returns an immutable Username.

Description: Trims surrounding whitespace, then enforces length (3–20
characters), the no-internal-whitespace rule, and the profanity wordlist
(case-insensitive, NFKC-normalized, substring match).

Parameters:
  - raw: string (user-supplied candidate)
  - profanity: *sec.Wordlist (injected, never read from a global)

Returns:
  - Username: Validated value object
  - error: apperr VALIDATION_ERROR naming the violated rule
*/
func NewUsername(raw string, profanity *sec.Wordlist) (Username, error) {
	trimmed := strings.TrimSpace(raw)

	length := utf8.RuneCountInString(trimmed)
	if length < usernameMinLength || length > usernameMaxLength {
		return Username{}, validate.FieldFailure(FieldUsername, "Must be between 3 and 20 characters")
	}

	for _, char := range trimmed {
		if unicode.IsSpace(char) {
			return Username{}, validate.FieldFailure(FieldUsername, "Must not contain whitespace")
		}
	}

	if profanity.ContainsSubstring(trimmed) {
		return Username{}, validate.FieldFailure(FieldUsername, "Is not allowed")
	}

	return Username{value: trimmed}, nil
}

// String returns the validated username.
func (u Username) String() string { return u.value }

// # Entities

// User is the public-safe identity. It never carries the password hash and
// is the only user shape allowed to cross the service boundary outward.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// UserWithPasswordHash is the internal credential record used solely for
// verification. It must never be serialized to a client.
type UserWithPasswordHash struct {
	User
	PasswordHash sec.HashedPassword `json:"-"`
	CreatedAt    time.Time          `json:"-"`
	UpdatedAt    time.Time          `json:"-"`
}

// # Session Wire Model

// IssuedToken pairs a token value with its expiry instant.
type IssuedToken struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Session is returned on register, login, and refresh.
//
// The refresh token's plaintext value appears here exactly once, at
// issuance or rotation; the server keeps only its one-way hash.
type Session struct {
	User         User        `json:"user"`
	AccessToken  IssuedToken `json:"access_token"`
	RefreshToken IssuedToken `json:"refresh_token"`
}

// RefreshTokenRecord is the server-side state of one refresh token. The
// opaque value itself is never stored; TokenHash is its SHA-256 digest.
type RefreshTokenRecord struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	IsRevoked bool
	CreatedAt time.Time
}

// IsExpired reports whether the record's expiry has passed at the given instant.
func (r *RefreshTokenRecord) IsExpired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}
