// Copyright (c) 2026 Memodeck. All rights reserved.
// Author: dev@memodeck.app

package sec_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memodeck/memodeck/internal/platform/sec"
)

/*
TestWordlist_Contains covers exact-entry lookup with normalization.
*/
func TestWordlist_Contains(t *testing.T) {
	list := sec.NewWordlist([]string{"Password", "  qwerty  ", "", "# a comment", "qwerty"})

	// 1. Comments, blanks, and duplicates are dropped
	assert.Equal(t, 2, list.Len())

	// 2. Lookup is case-insensitive and trims
	assert.True(t, list.Contains("password"))
	assert.True(t, list.Contains("PASSWORD"))
	assert.True(t, list.Contains(" qwerty "))

	// 3. Near-misses are not entries
	assert.False(t, list.Contains("password1"))
	assert.False(t, list.Contains(""))
}

/*
TestWordlist_ContainsSubstring covers the username screening mode.
*/
func TestWordlist_ContainsSubstring(t *testing.T) {
	list := sec.NewWordlist([]string{"badword"})

	assert.True(t, list.ContainsSubstring("badword"))
	assert.True(t, list.ContainsSubstring("xXbadwordXx"))
	assert.True(t, list.ContainsSubstring("BadWord99"))
	assert.False(t, list.ContainsSubstring("goodword"))
}

/*
TestLoadWordlist reads a list from disk with comment handling.
*/
func TestLoadWordlist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	content := "# header comment\nalpha\nBeta\n\ngamma\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	list, err := sec.LoadWordlist(path)
	require.NoError(t, err)

	assert.Equal(t, 3, list.Len())
	assert.True(t, list.Contains("beta"))
	assert.False(t, list.Contains("# header comment"))
}

/*
TestLoadWordlist_MissingFile surfaces the open error.
*/
func TestLoadWordlist_MissingFile(t *testing.T) {
	_, err := sec.LoadWordlist(filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}

/*
TestDefaultWordlists verifies the embedded lists are present and usable.
*/
func TestDefaultWordlists(t *testing.T) {
	assert.Greater(t, sec.DefaultProfanity().Len(), 0)
	assert.Greater(t, sec.DefaultCommonPasswords().Len(), 0)
}

/*
TestNormalize pins the NFKC fold used by every dictionary check.
*/
func TestNormalize(t *testing.T) {
	// Fullwidth letters fold to ASCII under NFKC
	assert.Equal(t, "abc", sec.Normalize("ＡＢＣ"))
	assert.Equal(t, "abc", sec.Normalize("  ABC  "))
}
