package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/giga-sharing/gateway/internal/config"
	"github.com/giga-sharing/gateway/internal/model"
)

// ErrBootstrapKey is returned when revocation targets the bootstrap
// administrative key.
var ErrBootstrapKey = errors.New("bootstrap key cannot be revoked")

// UnknownReferenceError reports role or schema identifiers in a write request
// that do not exist. The whole operation is aborted; nothing is persisted.
type UnknownReferenceError struct {
	Kind string // "roles" or "schemas"
	IDs  []string
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("unknown %s: %s", e.Kind, strings.Join(e.IDs, ", "))
}

// KeyService manages the API key lifecycle: issuance, inspection, revocation,
// and role/schema reassignment.
type KeyService struct {
	store          *config.Store
	endpoint       string
	bootstrapKeyID string
	logger         *slog.Logger
}

// NewKeyService creates a KeyService. endpoint is the externally visible
// gateway URL embedded in issued profile files; bootstrapKeyID names the
// administrative key that is exempt from revocation.
func NewKeyService(store *config.Store, endpoint, bootstrapKeyID string, logger *slog.Logger) *KeyService {
	return &KeyService{
		store:          store,
		endpoint:       endpoint,
		bootstrapKeyID: bootstrapKeyID,
		logger:         logger,
	}
}

// IssueRequest describes a key to create. ValidityDays of 0 means the key
// never expires.
type IssueRequest struct {
	Description  string   `json:"description"`
	ValidityDays int      `json:"validity"`
	Roles        []string `json:"roles"`
	Schemas      []string `json:"schemas,omitempty"`
}

// Issue creates a new API key. Every referenced role and schema must exist,
// otherwise the whole request fails with an UnknownReferenceError before any
// write. The returned ProfileFile contains the full `id:secret` credential;
// this is the only time the plaintext secret is visible. The stored record
// keeps only the hash.
func (s *KeyService) Issue(ctx context.Context, req IssueRequest) (*model.ProfileFile, *model.APIKey, error) {
	if req.ValidityDays < 0 {
		return nil, nil, fmt.Errorf("validity must not be negative")
	}

	roles, err := s.resolveRoles(ctx, req.Roles)
	if err != nil {
		return nil, nil, err
	}
	schemas := req.Schemas
	// ADMIN supersedes any schema scope; granting it clears the set.
	if containsAdmin(req.Roles) {
		schemas = nil
	}
	resolvedSchemas, err := s.resolveSchemas(ctx, schemas)
	if err != nil {
		return nil, nil, err
	}

	secret, err := GenerateSecret()
	if err != nil {
		return nil, nil, err
	}
	hash, err := HashSecret(secret)
	if err != nil {
		return nil, nil, err
	}

	key := &model.APIKey{
		ID:          uuid.NewString(),
		Description: req.Description,
		SecretHash:  hash,
	}
	if req.ValidityDays > 0 {
		exp := time.Now().UTC().AddDate(0, 0, req.ValidityDays)
		key.Expiration = &exp
	}

	if err := s.store.CreateAPIKey(ctx, key, req.Roles, schemas); err != nil {
		return nil, nil, err
	}
	key.Roles = roles
	key.Schemas = resolvedSchemas

	s.logger.Info("api key issued",
		"key_id", key.ID,
		"roles", req.Roles,
		"schemas", schemas,
		"expires", key.Expiration,
	)

	profile := &model.ProfileFile{
		ShareCredentialsVersion: 1,
		Endpoint:                s.endpoint,
		BearerToken:             FormatSharingKey(key.ID, secret),
		ExpirationTime:          key.Expiration,
	}
	return profile, key, nil
}

// List returns all issued keys with secrets redacted (the hash never leaves
// the store layer's model and is excluded from serialization).
func (s *KeyService) List(ctx context.Context) ([]model.APIKey, error) {
	return s.store.ListAPIKeys(ctx)
}

// Get returns a single key's metadata by identifier.
func (s *KeyService) Get(ctx context.Context, id string) (*model.APIKey, error) {
	return s.store.GetAPIKey(ctx, id)
}

// Revoke hard-deletes a key and its associations. Revoking an unknown
// identifier is a no-op success; revoking the bootstrap administrative key
// fails with ErrBootstrapKey.
func (s *KeyService) Revoke(ctx context.Context, id string) error {
	if s.bootstrapKeyID != "" && id == s.bootstrapKeyID {
		return ErrBootstrapKey
	}
	err := s.store.DeleteAPIKey(ctx, id)
	if errors.Is(err, config.ErrNotFound) {
		return nil
	}
	if err == nil {
		s.logger.Info("api key revoked", "key_id", id)
	}
	return err
}

// Update atomically replaces a key's role and/or schema assignments. A nil
// slice leaves that dimension unchanged. Granting ADMIN clears the schema
// scope, since administrative access supersedes it.
func (s *KeyService) Update(ctx context.Context, id string, roles, schemas []string) (*model.APIKey, error) {
	if roles != nil {
		if _, err := s.resolveRoles(ctx, roles); err != nil {
			return nil, err
		}
		if containsAdmin(roles) {
			schemas = []string{}
		}
	}
	if schemas != nil {
		if _, err := s.resolveSchemas(ctx, schemas); err != nil {
			return nil, err
		}
	}

	if err := s.store.ReplaceAPIKeyAssociations(ctx, id, roles, schemas); err != nil {
		return nil, err
	}
	return s.store.GetAPIKey(ctx, id)
}

func (s *KeyService) resolveRoles(ctx context.Context, ids []string) ([]model.Role, error) {
	roles, err := s.store.RolesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if missing := missingIDs(ids, roleIDSet(roles)); len(missing) > 0 {
		return nil, &UnknownReferenceError{Kind: "roles", IDs: missing}
	}
	return roles, nil
}

func (s *KeyService) resolveSchemas(ctx context.Context, ids []string) ([]model.Schema, error) {
	schemas, err := s.store.SchemasByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	found := make(map[string]bool, len(schemas))
	for _, sc := range schemas {
		found[sc.ID] = true
	}
	if missing := missingIDs(ids, found); len(missing) > 0 {
		return nil, &UnknownReferenceError{Kind: "schemas", IDs: missing}
	}
	return schemas, nil
}

func roleIDSet(roles []model.Role) map[string]bool {
	set := make(map[string]bool, len(roles))
	for _, r := range roles {
		set[r.ID] = true
	}
	return set
}

func missingIDs(requested []string, found map[string]bool) []string {
	var missing []string
	for _, id := range requested {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

func containsAdmin(roles []string) bool {
	for _, r := range roles {
		if r == model.AdminRoleID {
			return true
		}
	}
	return false
}
