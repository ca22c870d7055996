// Copyright (c) 2026 Memodeck. All rights reserved.
// Author: dev@memodeck.app

/*
Package sec provides the cryptographic and credential-policy primitives for
the Memodeck platform.

It isolates security-sensitive code (password policy, Argon2id hashing, JWT
signing, opaque token generation) from the domain logic. Components here are
constructed once at startup and injected into the application layer; none of
them keep mutable state after construction.

# Review Process

This package is critical for security. Any change to hashing parameters,
token generation, or policy rules must be reviewed by the security team.
*/
package sec

import (
	_ "embed"
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
)

//go:embed wordlists/profanity.txt
var defaultProfanity string

//go:embed wordlists/common_passwords.txt
var defaultCommonPasswords string

// # Wordlists

// Wordlist is an immutable, case-insensitive set of words loaded once at
// startup and shared process-wide.
//
// # Concurrency
//
// Wordlist is read-only after construction and safe for concurrent use.
type Wordlist struct {
	entries map[string]struct{}
	// ordered copy for substring scans
	words []string
}

// NewWordlist builds a wordlist from the given words. Entries are normalized
// (NFKC, lowercased, trimmed); empty entries and comments are skipped.
func NewWordlist(words []string) *Wordlist {
	list := &Wordlist{entries: make(map[string]struct{}, len(words))}
	for _, word := range words {
		normalized := Normalize(word)
		if normalized == "" || strings.HasPrefix(normalized, "#") {
			continue
		}
		if _, seen := list.entries[normalized]; seen {
			continue
		}
		list.entries[normalized] = struct{}{}
		list.words = append(list.words, normalized)
	}
	return list
}

// LoadWordlist reads a newline-separated wordlist file from disk.
//
// Lines starting with '#' are treated as comments.
func LoadWordlist(path string) (*Wordlist, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to open wordlist %s: %w", path, err)
	}
	defer file.Close()

	var words []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		words = append(words, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("sec: failed to read wordlist %s: %w", path, err)
	}

	return NewWordlist(words), nil
}

// DefaultProfanity returns the built-in username profanity list.
func DefaultProfanity() *Wordlist {
	return NewWordlist(strings.Split(defaultProfanity, "\n"))
}

// DefaultCommonPasswords returns the built-in common-password dictionary.
func DefaultCommonPasswords() *Wordlist {
	return NewWordlist(strings.Split(defaultCommonPasswords, "\n"))
}

// Contains reports whether the normalized form of s is an exact entry.
func (w *Wordlist) Contains(s string) bool {
	_, found := w.entries[Normalize(s)]
	return found
}

// ContainsSubstring reports whether any entry appears inside the normalized
// form of s.
func (w *Wordlist) ContainsSubstring(s string) bool {
	normalized := Normalize(s)
	for _, word := range w.words {
		if strings.Contains(normalized, word) {
			return true
		}
	}
	return false
}

// Len returns the number of distinct entries.
func (w *Wordlist) Len() int { return len(w.entries) }

// Normalize trims, NFKC-folds, and lowercases s so visually-equivalent
// Unicode spellings cannot slip past dictionary checks.
func Normalize(s string) string {
	return strings.ToLower(norm.NFKC.String(strings.TrimSpace(s)))
}
