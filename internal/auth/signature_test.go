package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign_Deterministic(t *testing.T) {
	first, err := Sign("secret", "10.50"+"2026-01-15")
	require.NoError(t, err)
	second, err := Sign("secret", "10.50"+"2026-01-15")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
	assert.Equal(t, strings.ToLower(first), first, "signature must be lowercase hex")
}

func TestSign_EmptySecret(t *testing.T) {
	_, err := Sign("", "payload")
	assert.Error(t, err)
}

func TestSign_DifferentSecretsDiffer(t *testing.T) {
	a, err := Sign("secret-a", "payload")
	require.NoError(t, err)
	b, err := Sign("secret-b", "payload")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestVerify_RoundTrip(t *testing.T) {
	sig, err := Sign("secret", "VES2026-01-15")
	require.NoError(t, err)

	assert.True(t, Verify("secret", "VES2026-01-15", sig))
}

func TestVerify_TamperedPayload(t *testing.T) {
	sig, err := Sign("secret", "100.00")
	require.NoError(t, err)

	assert.False(t, Verify("secret", "999.00", sig))
}

func TestVerify_TamperedSignature(t *testing.T) {
	sig, err := Sign("secret", "payload")
	require.NoError(t, err)

	tampered := "0" + sig[1:]
	if tampered == sig {
		tampered = "1" + sig[1:]
	}
	assert.False(t, Verify("secret", "payload", tampered))
}

func TestVerify_EmptyInputs(t *testing.T) {
	assert.False(t, Verify("", "payload", "deadbeef"))
	assert.False(t, Verify("secret", "payload", ""))
}
