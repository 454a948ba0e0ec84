package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/lystopay/r4-gateway/internal/domain"
)

// Sign computes the lowercase hex HMAC-SHA256 of payload under secret.
func Sign(secret, payload string) (string, error) {
	if secret == "" {
		return "", domain.ErrMissingSecret
	}
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify reports whether signature matches the HMAC of payload under secret.
// Comparison is constant time. Any malformed input yields false, never an error.
func Verify(secret, payload, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected, err := Sign(secret, payload)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(signature), []byte(expected))
}
