// Copyright (c) 2026 Memodeck. All rights reserved.
// Author: dev@memodeck.app

package middleware

import (
	"net/http"
	"strings"

	"github.com/memodeck/memodeck/internal/platform/apperr"
	"github.com/memodeck/memodeck/internal/platform/ctxutil"
	"github.com/memodeck/memodeck/internal/platform/sec"
)

// TokenVerifier defines the interface needed to verify access tokens in middleware.
//
// # Why an interface?
//
// Defining TokenVerifier here decouples the middleware from the [sec.TokenService]
// implementation, allowing us to easily inject mocks during unit testing.
type TokenVerifier interface {
	VerifyToken(tokenString string) (*sec.AuthClaims, error)
}

// Authenticate extracts and verifies the JWT from the Authorization header.
//
// # Flow
//  1. Check for 'Authorization: Bearer <token>' header.
//  2. If absent, request proceeds as anonymous.
//  3. If present, parse and verify the JWT via [TokenVerifier].
//  4. Inject [*sec.AuthClaims] into the request context for downstream use.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			authHeader := request.Header.Get("Authorization")

			// Anonymous access: downstream handlers decide whether to allow it.
			if authHeader == "" {
				next.ServeHTTP(writer, request)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeError(writer, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid authorization format")
				return
			}

			claims, err := verifier.VerifyToken(parts[1])
			if err != nil {
				writeError(writer, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
				return
			}

			ctx := ctxutil.WithAuthUser(request.Context(), claims)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests whose context carries no verified claims.
//
// Mount it inside route groups that must never run anonymously; it assumes
// [Authenticate] already ran earlier in the chain.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if ctxutil.GetAuthUser(request.Context()) == nil {
			appError := apperr.Unauthorized("Authentication required")
			writeError(writer, appError.HTTPStatus, appError.Code, appError.Message)
			return
		}
		next.ServeHTTP(writer, request)
	})
}
