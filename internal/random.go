package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

const refreshSecretSize = 32

// NewRefreshSecret returns a fresh 256-bit refresh-token secret.
func NewRefreshSecret() ([refreshSecretSize]byte, error) {
	var secret [refreshSecretSize]byte
	_, err := rand.Read(secret[:])
	return secret, err
}

// HashRefreshSecret derives the registry lookup key from a raw secret.
// Only this hash is ever persisted.
func HashRefreshSecret(secret [refreshSecretSize]byte) [32]byte {
	return sha256.Sum256(secret[:])
}

// EncodeRefreshToken renders a raw secret in the wire format handed to
// clients.
func EncodeRefreshToken(secret [refreshSecretSize]byte) string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(secret[:])
}

// DecodeRefreshToken parses the client wire format back into a raw secret.
func DecodeRefreshToken(token string) ([refreshSecretSize]byte, error) {
	var secret [refreshSecretSize]byte

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return secret, err
	}
	if len(raw) != refreshSecretSize {
		return secret, errors.New("invalid refresh token size")
	}

	copy(secret[:], raw)
	return secret, nil
}
