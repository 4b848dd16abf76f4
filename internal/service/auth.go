package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	"github.com/giga-sharing/gateway/internal/config"
	"github.com/giga-sharing/gateway/internal/model"
)

// ErrInvalidCredentials covers every authentication failure: malformed key,
// unknown identifier, expired key, or secret mismatch. Callers receive no
// finer detail; the distinction is only logged.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService validates presented sharing keys against the credential store.
// Authentication is re-evaluated on every request; nothing is cached.
type AuthService struct {
	store     *config.Store
	rootToken []byte
	logger    *slog.Logger
}

// NewAuthService creates an AuthService. rootToken is the service-level
// bearer secret shared with the upstream sharing server; a credential whose
// secret matches it authenticates as the unrestricted root principal without
// a store lookup.
func NewAuthService(store *config.Store, rootToken string, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:     store,
		rootToken: []byte(rootToken),
		logger:    logger,
	}
}

// Authenticate resolves a raw credential into a Principal.
//
// The credential is decoded as `id:secret`. If the secret matches the root
// token the request is trusted without touching the store. Otherwise the key
// is looked up by identifier, checked for expiry, and the secret is verified
// against the stored hash. All secret comparisons are constant-time.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (*model.Principal, error) {
	id, secret, err := ParseSharingKey(raw)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if len(s.rootToken) > 0 && subtle.ConstantTimeCompare([]byte(secret), s.rootToken) == 1 {
		return &model.Principal{Root: true}, nil
	}

	key, err := s.store.GetAPIKey(ctx, id)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			s.logger.Warn("authentication failed", "key_id", id, "reason", "unknown key")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if key.IsExpired(time.Now().UTC()) {
		s.logger.Warn("authentication failed", "key_id", id, "reason", "expired")
		return nil, ErrInvalidCredentials
	}

	if !VerifySecret(secret, key.SecretHash) {
		s.logger.Warn("authentication failed", "key_id", id, "reason", "secret mismatch")
		return nil, ErrInvalidCredentials
	}

	return &model.Principal{
		KeyID:   key.ID,
		Roles:   key.RoleIDs(),
		Schemas: key.SchemaIDs(),
	}, nil
}
