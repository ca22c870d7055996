// Copyright (c) 2026 Memodeck. All rights reserved.
// Author: dev@memodeck.app

package sec_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memodeck/memodeck/internal/platform/sec"
)

/*
TestGenerateOpaqueToken verifies entropy length, URL-safety, and uniqueness.
*/
func TestGenerateOpaqueToken(t *testing.T) {
	first, err := sec.GenerateOpaqueToken(32)
	require.NoError(t, err)
	second, err := sec.GenerateOpaqueToken(32)
	require.NoError(t, err)

	// 1. Two tokens never collide
	assert.NotEqual(t, first, second)

	// 2. Decodes back to exactly 32 bytes
	raw, err := base64.RawURLEncoding.DecodeString(first)
	require.NoError(t, err)
	assert.Len(t, raw, 32)

	// 3. URL-safe alphabet only
	assert.NotContains(t, first, "+")
	assert.NotContains(t, first, "/")
	assert.NotContains(t, first, "=")
}

/*
TestHashOpaqueToken verifies the digest is deterministic, hex-encoded, and
distinct per input.
*/
func TestHashOpaqueToken(t *testing.T) {
	hash := sec.HashOpaqueToken("some-token-value")

	// 1. SHA-256 hex is 64 characters
	assert.Len(t, hash, 64)

	// 2. Deterministic
	assert.Equal(t, hash, sec.HashOpaqueToken("some-token-value"))

	// 3. Input-sensitive
	assert.NotEqual(t, hash, sec.HashOpaqueToken("some-token-valuf"))

	// 4. Never the identity function
	assert.NotEqual(t, "some-token-value", hash)
}
