package model

import (
	"strings"
	"time"
)

// APIKey is an issued sharing credential. The plaintext secret is never
// stored; only its argon2id hash is persisted. A key with a nil Expiration
// never expires.
type APIKey struct {
	ID          string     `json:"id" db:"id"`
	Created     time.Time  `json:"created" db:"created"`
	Description string     `json:"description" db:"description"`
	SecretHash  string     `json:"-" db:"secret_hash"`
	Expiration  *time.Time `json:"expiration,omitempty" db:"expiration"`
	Roles       []Role     `json:"roles"`
	Schemas     []Schema   `json:"schemas"`
}

// IsExpired reports whether the key's expiration is set and in the past.
func (k *APIKey) IsExpired(now time.Time) bool {
	return k.Expiration != nil && k.Expiration.Before(now)
}

// RoleIDs returns the identifiers of the key's assigned roles.
func (k *APIKey) RoleIDs() []string {
	ids := make([]string, len(k.Roles))
	for i, r := range k.Roles {
		ids[i] = r.ID
	}
	return ids
}

// SchemaIDs returns the identifiers of the key's directly assigned schemas.
func (k *APIKey) SchemaIDs() []string {
	ids := make([]string, len(k.Schemas))
	for i, s := range k.Schemas {
		ids[i] = s.ID
	}
	return ids
}

// RedactedKey returns a display form of the credential: the first 8 characters
// of the key ID padded with asterisks to 24 characters. Listings never show
// more than this.
func (k *APIKey) RedactedKey() string {
	prefix := k.ID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return prefix + strings.Repeat("*", 24-len(prefix))
}
