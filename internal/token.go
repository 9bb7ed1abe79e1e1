package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"

	"github.com/google/uuid"
)

// MinTokenBytes is the smallest allowed raw token size: 16 bytes = 128 bits
// of entropy, the floor for an unguessable session identifier.
const MinTokenBytes = 16

// NewRandomToken returns a fresh session identifier built from n bytes of
// crypto/rand output, encoded as unpadded base64url. n below MinTokenBytes
// is rejected rather than silently widened.
func NewRandomToken(n int) (string, error) {
	if n < MinTokenBytes {
		return "", errors.New("token size below 128-bit minimum")
	}

	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// NewUUIDToken returns a fresh session identifier as a random (version 4)
// UUID string.
func NewUUIDToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ValidRandomToken reports whether s could have been produced by
// NewRandomToken with n raw bytes. It is a cheap syntactic gate for incoming
// identifiers, not an authenticity check.
func ValidRandomToken(s string, n int) bool {
	if len(s) != base64.RawURLEncoding.EncodedLen(n) {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(s)
	return err == nil
}

// ValidUUIDToken reports whether s parses as a UUID.
func ValidUUIDToken(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
