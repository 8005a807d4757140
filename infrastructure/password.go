package infrastructure

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	saltLength = 16
	keyLength  = 64

	// scrypt cost parameters. N is the CPU/memory cost factor; changing it
	// invalidates every stored credential.
	scryptN = 32768
	scryptR = 8
	scryptP = 1
)

// HashPassword derives a credential from the password with a fresh random
// salt. The result encodes both parts as "salt:digest" in hex.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	derived, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return "", fmt.Errorf("failed to derive key: %w", err)
	}

	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(derived), nil
}

// VerifyPassword reports whether password matches the stored credential.
// It fails closed: a malformed, empty, or wrong-length credential is simply
// false, never an error. The digest comparison is constant time.
func VerifyPassword(password, credential string) bool {
	salt, original, ok := decodeCredential(credential)
	if !ok {
		return false
	}

	derived, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(original, derived) == 1
}

func decodeCredential(credential string) (salt, digest []byte, ok bool) {
	parts := strings.SplitN(credential, ":", 2)
	if len(parts) != 2 {
		return nil, nil, false
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return nil, nil, false
	}
	digest, err = hex.DecodeString(parts[1])
	if err != nil || len(digest) != keyLength {
		return nil, nil, false
	}
	return salt, digest, true
}
