// Copyright (c) 2026 Memodeck. All rights reserved.
// Author: dev@memodeck.app

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
)

// # Opaque Tokens

// GenerateOpaqueToken returns a URL-safe random secret with byteLength bytes
// of CSPRNG entropy. Refresh tokens use 32 bytes (256 bits).
//
// The returned plaintext is shown to the client exactly once; only its
// one-way hash may ever be persisted.
func GenerateOpaqueToken(byteLength int) (string, error) {
	raw := make([]byte, byteLength)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", fmt.Errorf("sec: failed to generate opaque token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// HashOpaqueToken returns the hex-encoded SHA-256 digest of a token value.
//
// SHA-256 (not Argon2) is deliberate: opaque tokens already carry 256 bits
// of entropy, so a fast hash is preimage-safe and keeps lookups by hash
// index-friendly.
func HashOpaqueToken(value string) string {
	digest := sha256.Sum256([]byte(value))
	return hex.EncodeToString(digest[:])
}
