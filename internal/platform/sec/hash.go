// Copyright (c) 2026 Memodeck. All rights reserved.
// Author: dev@memodeck.app

package sec

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"golang.org/x/crypto/argon2"
)

// # Credential Hashing

// HashedPassword is an opaque, self-describing Argon2id hash string in PHC
// format ($argon2id$v=19$m=..,t=..,p=..$salt$digest).
//
// It must never be compared for equality. The only legal operation is
// [Argon2idHasher.Verify].
type HashedPassword string

// ErrMalformedHash is returned by Verify when the stored hash cannot be
// parsed. This indicates data corruption, never a wrong password.
var ErrMalformedHash = errors.New("sec: malformed password hash")

// Argon2idParams tunes the memory-hard key derivation.
type Argon2idParams struct {
	// MemoryKB is the Argon2 memory cost in KiB.
	MemoryKB uint32
	// Time is the number of passes over memory.
	Time uint32
	// Parallelism is the number of lanes.
	Parallelism uint8
	// SaltLength is the salt size in bytes.
	SaltLength uint32
	// KeyLength is the derived key size in bytes.
	KeyLength uint32
}

// DefaultArgon2idParams returns the production parameters (64 MiB, 3 passes).
func DefaultArgon2idParams() Argon2idParams {
	return Argon2idParams{
		MemoryKB:    64 * 1024,
		Time:        3,
		Parallelism: uint8(min(runtime.NumCPU(), 4)),
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2idHasher converts validated passwords into salted memory-hard hashes
// and verifies candidates against stored hashes.
//
// # Concurrency
//
// Hashing is deliberately CPU/memory expensive. A semaphore caps the number
// of derivations running at once so a burst of logins cannot stall every
// other request; callers block on the cap but honor context cancellation.
type Argon2idHasher struct {
	params Argon2idParams
	sem    chan struct{}
}

// NewArgon2idHasher constructs a hasher with the given parameters.
//
// maxConcurrent bounds simultaneous derivations; values below 1 default to
// the number of CPUs.
func NewArgon2idHasher(params Argon2idParams, maxConcurrent int) *Argon2idHasher {
	if maxConcurrent < 1 {
		maxConcurrent = runtime.NumCPU()
	}
	return &Argon2idHasher{
		params: params,
		sem:    make(chan struct{}, maxConcurrent),
	}
}

/*
Hash derives a fresh salted Argon2id hash for a policy-validated password.

Description: Generates a cryptographically random salt and encodes the
parameters, salt, and digest into a single self-describing PHC string, so
parameter upgrades never invalidate stored credentials.

Parameters:
  - ctx: context.Context (honored while waiting on the concurrency cap)
  - password: ValidatedPassword

Returns:
  - HashedPassword: PHC-encoded hash
  - error: RNG failure or cancelled context (fatal infrastructure faults,
    never a business outcome)
*/
func (h *Argon2idHasher) Hash(ctx context.Context, password ValidatedPassword) (HashedPassword, error) {
	if err := h.acquire(ctx); err != nil {
		return "", err
	}
	defer h.release()

	salt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("sec: failed to generate salt: %w", err)
	}

	digest := argon2.IDKey(
		[]byte(password.value),
		salt,
		h.params.Time,
		h.params.MemoryKB,
		h.params.Parallelism,
		h.params.KeyLength,
	)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.MemoryKB,
		h.params.Time,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	)

	return HashedPassword(encoded), nil
}

/*
Verify recomputes the hash of a candidate under the stored hash's embedded
parameters and compares in constant time.

Description: A wrong password is a business outcome, not an error; only a
stored hash that cannot be parsed (data corruption) produces an error.

Parameters:
  - ctx: context.Context (honored while waiting on the concurrency cap)
  - stored: HashedPassword (PHC string from the credential store)
  - candidate: string (plaintext supplied by the caller)

Returns:
  - bool: true when the candidate matches
  - error: ErrMalformedHash or cancelled context
*/
func (h *Argon2idHasher) Verify(ctx context.Context, stored HashedPassword, candidate string) (bool, error) {
	parsed, err := parsePHC(string(stored))
	if err != nil {
		return false, err
	}

	if err := h.acquire(ctx); err != nil {
		return false, err
	}
	defer h.release()

	computed := argon2.IDKey(
		[]byte(candidate),
		parsed.salt,
		parsed.time,
		parsed.memoryKB,
		parsed.parallelism,
		uint32(len(parsed.digest)),
	)

	return subtle.ConstantTimeCompare(computed, parsed.digest) == 1, nil
}

func (h *Argon2idHasher) acquire(ctx context.Context) error {
	select {
	case h.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Argon2idHasher) release() { <-h.sem }

// # PHC Parsing

type phcFields struct {
	memoryKB    uint32
	time        uint32
	parallelism uint8
	salt        []byte
	digest      []byte
}

// parsePHC splits a $argon2id$v=19$m=..,t=..,p=..$salt$digest string.
// Every malformation maps to ErrMalformedHash so callers cannot distinguish
// corruption modes.
func parsePHC(encoded string) (*phcFields, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, ErrMalformedHash
	}

	fields := &phcFields{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d",
		&fields.memoryKB, &fields.time, &fields.parallelism); err != nil {
		return nil, ErrMalformedHash
	}
	if fields.memoryKB == 0 || fields.time == 0 || fields.parallelism == 0 {
		return nil, ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return nil, ErrMalformedHash
	}
	digest, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(digest) == 0 {
		return nil, ErrMalformedHash
	}

	fields.salt = salt
	fields.digest = digest
	return fields, nil
}
