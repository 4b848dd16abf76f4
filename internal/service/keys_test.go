package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/giga-sharing/gateway/internal/config"
	"github.com/giga-sharing/gateway/internal/model"
)

func seedCatalog(t *testing.T, store *config.Store) {
	t.Helper()
	ctx := context.Background()
	for _, r := range []string{"ADMIN", "KEN", "BRA", "SCHM"} {
		if err := store.CreateRole(ctx, &model.Role{ID: r}); err != nil {
			t.Fatalf("CreateRole %s: %v", r, err)
		}
	}
	for _, sc := range []string{"school-master", "qos"} {
		if err := store.CreateSchema(ctx, &model.Schema{ID: sc}); err != nil {
			t.Fatalf("CreateSchema %s: %v", sc, err)
		}
	}
}

func TestIssueKey(t *testing.T) {
	store := newTestStore(t)
	seedCatalog(t, store)
	svc := NewKeyService(store, "https://gateway.example.org", "", testLogger())

	profile, key, err := svc.Issue(context.Background(), IssueRequest{
		Description:  "Kenya ministry",
		ValidityDays: 30,
		Roles:        []string{"KEN", "SCHM"},
		Schemas:      []string{"school-master"},
	})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if profile.ShareCredentialsVersion != 1 {
		t.Errorf("got shareCredentialsVersion %d, want 1", profile.ShareCredentialsVersion)
	}
	if profile.Endpoint != "https://gateway.example.org" {
		t.Errorf("got endpoint %q", profile.Endpoint)
	}
	if profile.ExpirationTime == nil {
		t.Error("expected an expiration on the profile")
	}

	id, secret, err := ParseSharingKey(profile.BearerToken)
	if err != nil {
		t.Fatalf("profile bearer token is malformed: %v", err)
	}
	if id != key.ID {
		t.Errorf("credential id %q does not match record id %q", id, key.ID)
	}
	if !VerifySecret(secret, key.SecretHash) {
		t.Error("issued secret does not verify against stored hash")
	}

	stored, err := store.GetAPIKey(context.Background(), key.ID)
	if err != nil {
		t.Fatalf("GetAPIKey: %v", err)
	}
	if len(stored.Roles) != 2 || len(stored.Schemas) != 1 {
		t.Errorf("got %d roles, %d schemas; want 2, 1", len(stored.Roles), len(stored.Schemas))
	}
}

func TestIssueKeyNoExpiry(t *testing.T) {
	store := newTestStore(t)
	seedCatalog(t, store)
	svc := NewKeyService(store, "https://gw", "", testLogger())

	profile, key, err := svc.Issue(context.Background(), IssueRequest{
		Roles: []string{"KEN"},
	})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if key.Expiration != nil || profile.ExpirationTime != nil {
		t.Error("validity 0 should mean no expiration")
	}
}

func TestIssueKeyUnknownRoleIsAtomic(t *testing.T) {
	store := newTestStore(t)
	seedCatalog(t, store)
	svc := NewKeyService(store, "https://gw", "", testLogger())

	_, _, err := svc.Issue(context.Background(), IssueRequest{
		Roles: []string{"KEN", "XXX"},
	})
	var refErr *UnknownReferenceError
	if !errors.As(err, &refErr) {
		t.Fatalf("got %v, want UnknownReferenceError", err)
	}
	if refErr.Kind != "roles" || strings.Join(refErr.IDs, ",") != "XXX" {
		t.Errorf("got %s %v", refErr.Kind, refErr.IDs)
	}

	keys, err := store.ListAPIKeys(context.Background())
	if err != nil {
		t.Fatalf("ListAPIKeys: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("got %d keys after failed issue, want 0", len(keys))
	}
}

func TestIssueKeyUnknownSchema(t *testing.T) {
	store := newTestStore(t)
	seedCatalog(t, store)
	svc := NewKeyService(store, "https://gw", "", testLogger())

	_, _, err := svc.Issue(context.Background(), IssueRequest{
		Roles:   []string{"KEN"},
		Schemas: []string{"nope"},
	})
	var refErr *UnknownReferenceError
	if !errors.As(err, &refErr) {
		t.Fatalf("got %v, want UnknownReferenceError", err)
	}
	if refErr.Kind != "schemas" {
		t.Errorf("got kind %q, want schemas", refErr.Kind)
	}
}

func TestIssueAdminClearsSchemas(t *testing.T) {
	store := newTestStore(t)
	seedCatalog(t, store)
	svc := NewKeyService(store, "https://gw", "", testLogger())

	_, key, err := svc.Issue(context.Background(), IssueRequest{
		Roles:   []string{"ADMIN"},
		Schemas: []string{"school-master"},
	})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if len(key.Schemas) != 0 {
		t.Errorf("admin key kept schemas %v, want none", key.SchemaIDs())
	}
}

func TestRevoke(t *testing.T) {
	store := newTestStore(t)
	seedCatalog(t, store)
	svc := NewKeyService(store, "https://gw", "", testLogger())

	_, key, err := svc.Issue(context.Background(), IssueRequest{Roles: []string{"KEN"}})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if err := svc.Revoke(context.Background(), key.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	// Revoking again is a no-op success: the desired state already holds.
	if err := svc.Revoke(context.Background(), key.ID); err != nil {
		t.Errorf("second revoke: %v", err)
	}
}

func TestRevokeBootstrapKeyForbidden(t *testing.T) {
	store := newTestStore(t)
	seedCatalog(t, store)
	svc := NewKeyService(store, "https://gw", "bootstrap-id", testLogger())

	if err := svc.Revoke(context.Background(), "bootstrap-id"); !errors.Is(err, ErrBootstrapKey) {
		t.Errorf("got %v, want ErrBootstrapKey", err)
	}
}

func TestUpdate(t *testing.T) {
	store := newTestStore(t)
	seedCatalog(t, store)
	svc := NewKeyService(store, "https://gw", "", testLogger())

	_, key, err := svc.Issue(context.Background(), IssueRequest{
		Roles:   []string{"KEN"},
		Schemas: []string{"school-master"},
	})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Replace roles only.
	got, err := svc.Update(context.Background(), key.ID, []string{"BRA"}, nil)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if strings.Join(got.RoleIDs(), ",") != "BRA" {
		t.Errorf("got roles %v, want [BRA]", got.RoleIDs())
	}
	if len(got.Schemas) != 1 {
		t.Errorf("schemas changed: %v", got.SchemaIDs())
	}

	// Unknown role leaves everything untouched.
	if _, err := svc.Update(context.Background(), key.ID, []string{"XXX"}, nil); err == nil {
		t.Fatal("expected error for unknown role")
	}
	got, _ = svc.Get(context.Background(), key.ID)
	if strings.Join(got.RoleIDs(), ",") != "BRA" {
		t.Errorf("failed update mutated roles: %v", got.RoleIDs())
	}

	// Granting ADMIN clears the schema scope.
	got, err = svc.Update(context.Background(), key.ID, []string{"ADMIN"}, nil)
	if err != nil {
		t.Fatalf("Update to admin: %v", err)
	}
	if len(got.Schemas) != 0 {
		t.Errorf("admin grant kept schemas %v", got.SchemaIDs())
	}

	// Unknown key id.
	if _, err := svc.Update(context.Background(), "missing", []string{"KEN"}, nil); !errors.Is(err, config.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}
