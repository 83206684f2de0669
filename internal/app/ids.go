package app

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

func newID() string {
	return uuid.NewString()
}

// newPassToken returns an opaque 32-byte hex token for gate passes. Tokens are
// bearer credentials, so they come from crypto/rand rather than the uuid
// generator used for row ids.
func newPassToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
