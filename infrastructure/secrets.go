package infrastructure

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

// GenerateNumericCode returns a cryptographically random decimal string of
// exactly length digits, uniform over the full range. Codes with leading
// zeros are as likely as any other.
func GenerateNumericCode(length int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", length, n), nil
}

// GenerateResetToken returns an unguessable hex-encoded token built from
// 32 random bytes. The plaintext only ever travels inside the reset email;
// the store keeps its fingerprint.
func GenerateResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Fingerprint returns the hex-encoded SHA-256 of value. Deterministic on
// purpose: codes and reset tokens are single-use and high-entropy, so an
// unsalted digest is safe at rest and still allows lookup by fingerprint.
func Fingerprint(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
