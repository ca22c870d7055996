// Copyright (c) 2026 Memodeck. All rights reserved.
// Author: dev@memodeck.app

package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// # Access Tokens

// ErrInvalidToken is the single externally-visible failure for access-token
// verification. Signature mismatch, malformed input, and expiry all collapse
// into it so callers cannot probe which check failed.
var ErrInvalidToken = errors.New("sec: invalid or expired access token")

// AuthClaims represents the payload embedded inside a JWT access token.
//
// # Why custom claims?
//
// By embedding the UserID and Email directly inside the JWT, the middleware
// can reconstruct the active user context WITHOUT querying the database on
// every single API request. Validity is fully determined by the signature
// and expiry; the server keeps no per-token record.
type AuthClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID string `json:"uid"`
	Email  string `json:"eml"`
}

// TokenService handles generation and verification of JWT access tokens
// signed with a process-wide symmetric secret (HS256).
//
// # Concurrency
//
// The secret is read-only after construction; TokenService is safe for
// concurrent use.
type TokenService struct {
	secret     []byte
	issuer     string
	timeToLive time.Duration
}

// NewTokenService creates a TokenService.
//
// The secret must be at least 32 bytes; short HMAC keys make brute-forcing
// the signature feasible.
func NewTokenService(secret []byte, issuer string, timeToLive time.Duration) (*TokenService, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("sec: signing secret must be at least 32 bytes, got %d", len(secret))
	}
	return &TokenService{
		secret:     secret,
		issuer:     issuer,
		timeToLive: timeToLive,
	}, nil
}

// GenerateAccessToken creates a signed access token for a user.
//
// # Returns
//   - The compact JWT string.
//   - The token's expiry instant, so callers can surface it without re-parsing.
func (service *TokenService) GenerateAccessToken(userID, email string) (string, time.Time, error) {
	currentTime := time.Now()
	expiresAt := currentTime.Add(service.timeToLive)

	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: userID,
		Email:  email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, expiresAt, nil
}

// VerifyToken checks the signature and validity of a JWT string.
//
// The expiry is re-checked explicitly as a domain rule after the library's
// own validation; claims are trusted only once both checks pass.
func (service *TokenService) VerifyToken(tokenString string) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return service.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.ExpiresAt == nil || !time.Now().Before(claims.ExpiresAt.Time) {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
