// Copyright (c) 2026 Memodeck. All rights reserved.
// Author: dev@memodeck.app

package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memodeck/memodeck/internal/platform/apperr"
	"github.com/memodeck/memodeck/internal/platform/sec"
	"github.com/memodeck/memodeck/internal/users/auth"
)

func testProfanity() *sec.Wordlist {
	return sec.NewWordlist([]string{"slur"})
}

/*
TestNewUsername_Valid covers accepted usernames, including trimming.
*/
func TestNewUsername_Valid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "kenji", "kenji"},
		{"minimum_length", "abc", "abc"},
		{"maximum_length", "abcdefghij0123456789", "abcdefghij0123456789"},
		{"surrounding_space_trimmed", "  kenji  ", "kenji"},
		{"mixed_case_preserved", "KenjiDeck", "KenjiDeck"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			username, err := auth.NewUsername(tt.input, testProfanity())
			require.NoError(t, err)
			assert.Equal(t, tt.want, username.String())
		})
	}
}

/*
TestNewUsername_Invalid covers each rejection rule.
*/
func TestNewUsername_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"too_short", "ab"},
		{"too_long", "abcdefghij0123456789x"},
		{"interior_space", "ken ji"},
		{"interior_tab", "ken\tji"},
		{"profanity_exact", "slur"},
		{"profanity_embedded", "xxSLURxx"},
		{"empty", ""},
		{"whitespace_only", "     "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.NewUsername(tt.input, testProfanity())
			require.Error(t, err)

			ae := apperr.As(err)
			require.NotNil(t, ae)
			assert.Equal(t, "VALIDATION_ERROR", ae.Code)
			assert.Equal(t, auth.FieldUsername, ae.Details[0].Field)
		})
	}
}

/*
TestRefreshTokenRecord_IsExpired pins the expiry boundary: a record expires
exactly at its ExpiresAt instant, not after it.
*/
func TestRefreshTokenRecord_IsExpired(t *testing.T) {
	now := time.Now()
	record := &auth.RefreshTokenRecord{ExpiresAt: now}

	assert.False(t, record.IsExpired(now.Add(-time.Second)))
	assert.True(t, record.IsExpired(now))
	assert.True(t, record.IsExpired(now.Add(time.Second)))
}
