// ABOUTME: Tests for token resolution and JWT minting.
// ABOUTME: Covers source precedence and HS256 round trips.

package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveToken_ExplicitWins(t *testing.T) {
	t.Setenv("FOLD_TOKEN", "from-env")

	assert.Equal(t, "from-flag", ResolveToken("from-flag", "from-config"))
}

func TestResolveToken_EnvBeatsConfig(t *testing.T) {
	t.Setenv("FOLD_TOKEN", "from-env")

	assert.Equal(t, "from-env", ResolveToken("", "from-config"))
}

func TestResolveToken_ConfigBeatsFile(t *testing.T) {
	t.Setenv("FOLD_TOKEN", "")

	assert.Equal(t, "from-config", ResolveToken("", "from-config"))
}

func TestResolveToken_TokenFileFallback(t *testing.T) {
	configDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(configDir, "fold"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "fold", "token"), []byte("from-file\n"), 0600))

	t.Setenv("FOLD_TOKEN", "")
	t.Setenv("XDG_CONFIG_HOME", configDir)

	assert.Equal(t, "from-file", ResolveToken("", ""))
}

func TestResolveToken_NoSources(t *testing.T) {
	t.Setenv("FOLD_TOKEN", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	assert.Equal(t, "", ResolveToken("", ""))
}

func TestMinter_RoundTrip(t *testing.T) {
	minter := NewMinter([]byte("test-secret"))

	token, err := minter.Mint("principal-123", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	principal, err := minter.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "principal-123", principal)
}

func TestMinter_WrongSecret(t *testing.T) {
	token, err := NewMinter([]byte("secret-a")).Mint("principal-123", time.Hour)
	require.NoError(t, err)

	_, err = NewMinter([]byte("secret-b")).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMinter_ExpiredToken(t *testing.T) {
	minter := NewMinter([]byte("test-secret"))

	token, err := minter.Mint("principal-123", -time.Minute)
	require.NoError(t, err)

	_, err = minter.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestMinter_GarbageToken(t *testing.T) {
	_, err := NewMinter([]byte("test-secret")).Verify("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
