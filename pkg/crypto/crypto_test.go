package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeneratePasswordSatisfiesCompositionPolicy(t *testing.T) {
	for i := 0; i < 50; i++ {
		password, err := GeneratePassword()
		require.NoError(t, err)
		require.Len(t, password, GeneratedPasswordLength)
		require.True(t, strings.ContainsAny(password, upperChars), "missing uppercase: %q", password)
		require.True(t, strings.ContainsAny(password, lowerChars), "missing lowercase: %q", password)
		require.True(t, strings.ContainsAny(password, digitChars), "missing digit: %q", password)
		require.True(t, strings.ContainsAny(password, specialChars), "missing special: %q", password)
	}
}

func TestGeneratePasswordUsesOnlyKnownAlphabets(t *testing.T) {
	combined := upperChars + lowerChars + digitChars + specialChars
	password, err := GeneratePassword()
	require.NoError(t, err)
	for _, c := range password {
		require.Contains(t, combined, string(c))
	}
}

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("Sup3rSecret!")
	require.NoError(t, err)
	require.NotEqual(t, "Sup3rSecret!", hash)

	require.True(t, VerifyPassword(hash, "Sup3rSecret!"))
	require.False(t, VerifyPassword(hash, "wrong-password"))
}

func TestHashTokenIsDeterministicHex(t *testing.T) {
	first := HashToken("seed-value")
	second := HashToken("seed-value")
	require.Equal(t, first, second)
	require.Len(t, first, 64)
	require.NotEqual(t, first, HashToken("other-seed"))
}

func TestGenerateTokenProducesURLSafeValues(t *testing.T) {
	token, err := GenerateToken(32)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotContains(t, token, "+")
	require.NotContains(t, token, "/")
	require.NotContains(t, token, "=")

	other, err := GenerateToken(32)
	require.NoError(t, err)
	require.NotEqual(t, token, other)
}
