package service

import (
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"golang.org/x/crypto/argon2"
)

func TestHashSecretRoundTrip(t *testing.T) {
	hash, err := HashSecret("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashSecret: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$") {
		t.Errorf("unexpected hash prefix: %s", hash)
	}

	if !VerifySecret("correct horse battery staple", hash) {
		t.Error("correct secret rejected")
	}
	if VerifySecret("wrong secret", hash) {
		t.Error("wrong secret accepted")
	}
}

func TestHashSecretSaltsDiffer(t *testing.T) {
	h1, err := HashSecret("same secret")
	if err != nil {
		t.Fatalf("HashSecret: %v", err)
	}
	h2, err := HashSecret("same secret")
	if err != nil {
		t.Fatalf("HashSecret: %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same secret should differ by salt")
	}
	if !VerifySecret("same secret", h1) || !VerifySecret("same secret", h2) {
		t.Error("both hashes should verify")
	}
}

func TestVerifySecretUsesEmbeddedParams(t *testing.T) {
	// A hash produced under weaker parameters than the current defaults must
	// still verify; the parameters come from the encoded hash, not the
	// package constants.
	salt := []byte("somesalt12345678")
	hash := argon2.IDKey([]byte("probe"), salt, 1, 8, 1, 32)
	legacy := fmt.Sprintf("$argon2id$v=%d$m=8,t=1,p=1$%s$%s",
		argon2.Version,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)

	if !VerifySecret("probe", legacy) {
		t.Error("legacy-parameter hash rejected")
	}
	if VerifySecret("wrong", legacy) {
		t.Error("wrong secret accepted against legacy hash")
	}
}

func TestVerifySecretMalformed(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{"empty", ""},
		{"not a hash", "plaintext"},
		{"wrong algorithm", "$argon2i$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA"},
		{"wrong version", "$argon2id$v=18$m=65536,t=3,p=2$c2FsdA$aGFzaA"},
		{"missing params", "$argon2id$v=19$$c2FsdA$aGFzaA"},
		{"bad base64 salt", "$argon2id$v=19$m=65536,t=3,p=2$!!!$aGFzaA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if VerifySecret("anything", tt.encoded) {
				t.Error("malformed hash accepted")
			}
		})
	}
}
