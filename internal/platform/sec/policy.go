// Copyright (c) 2026 Memodeck. All rights reserved.
// Author: dev@memodeck.app

package sec

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// # Password Policy

// PasswordSymbols is the fixed set of characters accepted as "symbols" by the
// complexity rule. Anything outside letters, digits, and this set still counts
// toward length and distinctness but does not satisfy the symbol requirement.
const PasswordSymbols = "!@#$%^&*()-_=+[]{}|;:'\",.<>/?`~\\"

const (
	passwordMinLength       = 8
	passwordMaxLength       = 128
	passwordMinDistinct     = 6
	passwordMaxIdenticalRun = 3
)

// Violation identifies the specific password-policy rule that failed.
type Violation string

const (
	ViolationTooShort         Violation = "too_short"
	ViolationTooLong          Violation = "too_long"
	ViolationWhitespace       Violation = "whitespace"
	ViolationMissingUppercase Violation = "missing_uppercase"
	ViolationMissingLowercase Violation = "missing_lowercase"
	ViolationMissingDigit     Violation = "missing_digit"
	ViolationMissingSymbol    Violation = "missing_symbol"
	ViolationTooFewDistinct   Violation = "too_few_distinct"
	ViolationRepeatedRun      Violation = "repeated_run"
	ViolationCommonPassword   Violation = "common_password"
)

// violationMessages are the client-safe descriptions per rule.
var violationMessages = map[Violation]string{
	ViolationTooShort:         "Must be at least 8 characters",
	ViolationTooLong:          "Must be at most 128 characters",
	ViolationWhitespace:       "Must not contain whitespace",
	ViolationMissingUppercase: "Must contain at least one uppercase letter",
	ViolationMissingLowercase: "Must contain at least one lowercase letter",
	ViolationMissingDigit:     "Must contain at least one digit",
	ViolationMissingSymbol:    "Must contain at least one symbol (" + PasswordSymbols + ")",
	ViolationTooFewDistinct:   "Must contain at least 6 distinct characters",
	ViolationRepeatedRun:      "Must not repeat the same character more than 3 times in a row",
	ViolationCommonPassword:   "Is too common. Pick a less guessable password",
}

// PolicyError reports the first password-policy rule a candidate violated.
//
// It is an input-validation error in the platform taxonomy: always
// recoverable, surfaced with the specific rule, never logged as a server fault.
type PolicyError struct {
	Violation Violation
}

// Error implements the error interface with the client-safe rule description.
func (e *PolicyError) Error() string { return violationMessages[e.Violation] }

// ValidatedPassword is a plaintext password that has passed every policy rule.
//
// The zero value is unusable: instances exist only transiently between
// [PasswordPolicy.Validate] and [Argon2idHasher.Hash] or credential
// verification, and the raw value is unreachable outside this package.
type ValidatedPassword struct {
	value string
}

// String masks the plaintext so a ValidatedPassword can never leak through
// logging or %v formatting.
func (p ValidatedPassword) String() string { return "[REDACTED]" }

// PasswordPolicy validates candidate passwords against the platform's
// complexity and dictionary rules.
//
// # Concurrency
//
// PasswordPolicy is immutable after construction and safe for concurrent use.
type PasswordPolicy struct {
	common *Wordlist
}

// NewPasswordPolicy constructs a policy backed by the given common-password
// dictionary. The dictionary is injected rather than read from a global so
// tests can supply small doubles.
func NewPasswordPolicy(common *Wordlist) *PasswordPolicy {
	return &PasswordPolicy{common: common}
}

// Validate checks raw against every policy rule in deterministic order and
// returns the first violation found.
//
// # Rule order
//
//  1. Length 8–128 characters.
//  2. Single scan: no whitespace anywhere, no run of more than 3 identical
//     consecutive characters (reported at the first offending position).
//  3. At least one uppercase letter, lowercase letter, digit, and symbol
//     from [PasswordSymbols].
//  4. At least 6 distinct characters.
//  5. Not in the common-password dictionary (case-insensitive).
//
// Validate is a pure function: it has no side effects and never logs the
// candidate.
func (p *PasswordPolicy) Validate(raw string) (ValidatedPassword, error) {
	length := utf8.RuneCountInString(raw)
	if length < passwordMinLength {
		return ValidatedPassword{}, &PolicyError{Violation: ViolationTooShort}
	}
	if length > passwordMaxLength {
		return ValidatedPassword{}, &PolicyError{Violation: ViolationTooLong}
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	distinct := make(map[rune]struct{}, length)

	var previous rune
	run := 0

	for _, char := range raw {
		if unicode.IsSpace(char) {
			return ValidatedPassword{}, &PolicyError{Violation: ViolationWhitespace}
		}

		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasDigit = true
		case strings.ContainsRune(PasswordSymbols, char):
			hasSymbol = true
		}

		distinct[char] = struct{}{}

		if char == previous {
			run++
			if run > passwordMaxIdenticalRun {
				return ValidatedPassword{}, &PolicyError{Violation: ViolationRepeatedRun}
			}
		} else {
			previous = char
			run = 1
		}
	}

	if !hasUpper {
		return ValidatedPassword{}, &PolicyError{Violation: ViolationMissingUppercase}
	}
	if !hasLower {
		return ValidatedPassword{}, &PolicyError{Violation: ViolationMissingLowercase}
	}
	if !hasDigit {
		return ValidatedPassword{}, &PolicyError{Violation: ViolationMissingDigit}
	}
	if !hasSymbol {
		return ValidatedPassword{}, &PolicyError{Violation: ViolationMissingSymbol}
	}
	if len(distinct) < passwordMinDistinct {
		return ValidatedPassword{}, &PolicyError{Violation: ViolationTooFewDistinct}
	}
	if p.common.Contains(raw) {
		return ValidatedPassword{}, &PolicyError{Violation: ViolationCommonPassword}
	}

	return ValidatedPassword{value: raw}, nil
}
