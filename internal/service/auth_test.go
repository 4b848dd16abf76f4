package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/giga-sharing/gateway/internal/config"
	"github.com/giga-sharing/gateway/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *config.Store {
	t.Helper()
	s, err := config.NewStore("sqlite", "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedKey stores a key with the given secret and returns its identifier.
func seedKey(t *testing.T, store *config.Store, secret string, expiration *time.Time, roles, schemas []string) string {
	t.Helper()
	ctx := context.Background()

	for _, r := range roles {
		if _, err := store.GetRole(ctx, r); errors.Is(err, config.ErrNotFound) {
			if err := store.CreateRole(ctx, &model.Role{ID: r}); err != nil {
				t.Fatalf("CreateRole %s: %v", r, err)
			}
		}
	}
	for _, sc := range schemas {
		if err := store.CreateSchema(ctx, &model.Schema{ID: sc}); err != nil {
			t.Fatalf("CreateSchema %s: %v", sc, err)
		}
	}

	hash, err := HashSecret(secret)
	if err != nil {
		t.Fatalf("HashSecret: %v", err)
	}
	key := &model.APIKey{
		ID:         "aaaaaaaa-0000-0000-0000-000000000001",
		SecretHash: hash,
		Expiration: expiration,
	}
	if err := store.CreateAPIKey(ctx, key, roles, schemas); err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}
	return key.ID
}

func TestAuthenticateStoredKey(t *testing.T) {
	store := newTestStore(t)
	id := seedKey(t, store, "topsecret", nil, []string{"KEN"}, []string{"school-master"})
	svc := NewAuthService(store, "", testLogger())

	p, err := svc.Authenticate(context.Background(), FormatSharingKey(id, "topsecret"))
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if p.Root {
		t.Error("stored key should not be root")
	}
	if p.KeyID != id {
		t.Errorf("got key id %q, want %q", p.KeyID, id)
	}
	if len(p.Roles) != 1 || p.Roles[0] != "KEN" {
		t.Errorf("got roles %v, want [KEN]", p.Roles)
	}
	if len(p.Schemas) != 1 || p.Schemas[0] != "school-master" {
		t.Errorf("got schemas %v, want [school-master]", p.Schemas)
	}
}

func TestAuthenticateWrongSecret(t *testing.T) {
	store := newTestStore(t)
	id := seedKey(t, store, "topsecret", nil, []string{"KEN"}, nil)
	svc := NewAuthService(store, "", testLogger())

	if _, err := svc.Authenticate(context.Background(), FormatSharingKey(id, "guess")); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("got %v, want ErrInvalidCredentials", err)
	}
}

func TestAuthenticateUnknownKey(t *testing.T) {
	store := newTestStore(t)
	svc := NewAuthService(store, "", testLogger())

	if _, err := svc.Authenticate(context.Background(), "nobody:whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("got %v, want ErrInvalidCredentials", err)
	}
}

func TestAuthenticateExpiredKey(t *testing.T) {
	store := newTestStore(t)
	past := time.Now().UTC().Add(-time.Hour)
	id := seedKey(t, store, "topsecret", &past, []string{"KEN"}, nil)
	svc := NewAuthService(store, "", testLogger())

	if _, err := svc.Authenticate(context.Background(), FormatSharingKey(id, "topsecret")); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expired key: got %v, want ErrInvalidCredentials", err)
	}
}

func TestAuthenticateMalformed(t *testing.T) {
	store := newTestStore(t)
	svc := NewAuthService(store, "roottoken", testLogger())

	for _, raw := range []string{"", "nocolon", "a:b:c"} {
		if _, err := svc.Authenticate(context.Background(), raw); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("%q: got %v, want ErrInvalidCredentials", raw, err)
		}
	}
}

func TestAuthenticateRootToken(t *testing.T) {
	store := newTestStore(t)
	svc := NewAuthService(store, "service-bearer-token", testLogger())

	// Any identifier works; only the secret is matched against the root token.
	p, err := svc.Authenticate(context.Background(), "anything:service-bearer-token")
	if err != nil {
		t.Fatalf("Authenticate root: %v", err)
	}
	if !p.Root {
		t.Error("expected root principal")
	}
	if !p.IsAdmin() {
		t.Error("root principal must be admin")
	}
}

func TestAuthenticateEmptyRootTokenNeverMatches(t *testing.T) {
	store := newTestStore(t)
	svc := NewAuthService(store, "", testLogger())

	if _, err := svc.Authenticate(context.Background(), "any:"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("empty secret with unset root token: got %v, want ErrInvalidCredentials", err)
	}
}
