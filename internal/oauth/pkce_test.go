package oauth

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePKCEChallengeMatchesVerifier(t *testing.T) {
	for i := 0; i < 20; i++ {
		pair, err := GeneratePKCE()
		require.NoError(t, err)

		sum := sha256.Sum256([]byte(pair.Verifier))
		expected := base64.RawURLEncoding.EncodeToString(sum[:])
		assert.Equal(t, expected, pair.Challenge)
	}
}

func TestGeneratePKCEVerifierLength(t *testing.T) {
	// RFC 7636 requires verifiers between 43 and 128 characters
	for i := 0; i < 50; i++ {
		pair, err := GeneratePKCE()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(pair.Verifier), 43)
		assert.LessOrEqual(t, len(pair.Verifier), 128)
	}
}

func TestGeneratePKCEVerifierUnpadded(t *testing.T) {
	pair, err := GeneratePKCE()
	require.NoError(t, err)
	assert.NotContains(t, pair.Verifier, "=")
	assert.NotContains(t, pair.Challenge, "=")
}

func TestGeneratePKCEVerifiersUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		pair, err := GeneratePKCE()
		require.NoError(t, err)
		assert.False(t, seen[pair.Verifier], "verifier reused")
		seen[pair.Verifier] = true
	}
}

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	require.NoError(t, err)
	b, err := GenerateState()
	require.NoError(t, err)

	// 32 random bytes encode to 43 url-safe characters
	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "=")
}
