package service

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// secretBytes is the entropy of a generated key secret. The url-safe encoding
// of 48 random bytes yields a 64-character secret.
const secretBytes = 48

// ErrMalformedKey is returned when a presented credential does not have the
// `id:secret` form. The offending value is never included in the error.
var ErrMalformedKey = errors.New("malformed sharing key")

// ParseSharingKey splits a presented credential into its key identifier and
// secret. The value must contain exactly one colon; encoding the identifier in
// the credential turns validation into an indexed point lookup instead of a
// hash scan over every stored key.
func ParseSharingKey(raw string) (id, secret string, err error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 2 {
		return "", "", ErrMalformedKey
	}
	return parts[0], parts[1], nil
}

// FormatSharingKey renders the wire form of a credential for issuance
// responses. Inverse of ParseSharingKey.
func FormatSharingKey(id, secret string) string {
	return id + ":" + secret
}

// GenerateSecret returns a new cryptographically random key secret.
func GenerateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
