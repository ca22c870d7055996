// Copyright (c) 2026 Memodeck. All rights reserved.
// Author: dev@memodeck.app

package sec_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memodeck/memodeck/internal/platform/sec"
)

// fastParams keeps derivation cheap enough for unit tests.
func fastParams() sec.Argon2idParams {
	return sec.Argon2idParams{
		MemoryKB:    8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func mustValidate(t *testing.T, raw string) sec.ValidatedPassword {
	t.Helper()
	validated, err := testPolicy().Validate(raw)
	require.NoError(t, err)
	return validated
}

/*
TestArgon2idHasher_HashAndVerify covers the round trip: a hashed password
verifies against its own plaintext and rejects others.
*/
func TestArgon2idHasher_HashAndVerify(t *testing.T) {
	ctx := context.Background()
	hasher := sec.NewArgon2idHasher(fastParams(), 2)

	hash, err := hasher.Hash(ctx, mustValidate(t, "Correct#Horse7"))
	require.NoError(t, err)

	// 1. PHC format is self-describing
	assert.True(t, strings.HasPrefix(string(hash), "$argon2id$v=19$m=8192,t=1,p=1$"))

	// 2. Correct candidate matches
	match, err := hasher.Verify(ctx, hash, "Correct#Horse7")
	require.NoError(t, err)
	assert.True(t, match)

	// 3. Wrong candidate fails without error
	match, err = hasher.Verify(ctx, hash, "Wrong#Horse7")
	require.NoError(t, err)
	assert.False(t, match)
}

/*
TestArgon2idHasher_SaltUniqueness verifies two hashes of the same password
differ (fresh salt per derivation).
*/
func TestArgon2idHasher_SaltUniqueness(t *testing.T) {
	ctx := context.Background()
	hasher := sec.NewArgon2idHasher(fastParams(), 2)
	password := mustValidate(t, "Correct#Horse7")

	first, err := hasher.Hash(ctx, password)
	require.NoError(t, err)
	second, err := hasher.Hash(ctx, password)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

/*
TestArgon2idHasher_Verify_EmbeddedParams verifies a hash produced under old
parameters still verifies after the hasher's parameters change.
*/
func TestArgon2idHasher_Verify_EmbeddedParams(t *testing.T) {
	ctx := context.Background()

	oldHasher := sec.NewArgon2idHasher(fastParams(), 1)
	hash, err := oldHasher.Hash(ctx, mustValidate(t, "Correct#Horse7"))
	require.NoError(t, err)

	upgraded := fastParams()
	upgraded.MemoryKB = 16 * 1024
	upgraded.Time = 2

	newHasher := sec.NewArgon2idHasher(upgraded, 1)
	match, err := newHasher.Verify(ctx, hash, "Correct#Horse7")
	require.NoError(t, err)
	assert.True(t, match)
}

/*
TestArgon2idHasher_Verify_Malformed checks every corruption mode maps to
ErrMalformedHash.
*/
func TestArgon2idHasher_Verify_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		stored string
	}{
		{"empty", ""},
		{"not_phc", "plaintext-leak"},
		{"wrong_algorithm", "$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$ZGlnZXN0"},
		{"missing_sections", "$argon2id$v=19$m=8192,t=1,p=1$c2FsdA"},
		{"bad_params", "$argon2id$v=19$m=abc,t=1,p=1$c2FsdA$ZGlnZXN0"},
		{"bad_salt_base64", "$argon2id$v=19$m=8192,t=1,p=1$!!!$ZGlnZXN0"},
		{"bad_digest_base64", "$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$!!!"},
	}

	ctx := context.Background()
	hasher := sec.NewArgon2idHasher(fastParams(), 1)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, err := hasher.Verify(ctx, sec.HashedPassword(tt.stored), "whatever")
			assert.False(t, match)
			assert.ErrorIs(t, err, sec.ErrMalformedHash)
		})
	}
}
