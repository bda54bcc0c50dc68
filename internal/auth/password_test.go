package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	require.NotEqual(t, "secret1", hash)

	require.True(t, CheckPassword("secret1", hash))
	require.False(t, CheckPassword("secret2", hash))
}

func TestHashPassword_Salted(t *testing.T) {
	t.Parallel()

	first, err := HashPassword("secret1")
	require.NoError(t, err)
	second, err := HashPassword("secret1")
	require.NoError(t, err)

	// random salt makes every hash distinct
	require.NotEqual(t, first, second)
}

func TestCheckPassword_NotAHash(t *testing.T) {
	t.Parallel()

	require.False(t, CheckPassword("secret1", "plainly-not-bcrypt"))
}
