package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/giga-sharing/gateway/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore("sqlite", "") // in-memory
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedCatalog(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	for _, r := range []model.Role{
		{ID: "ADMIN", Description: "Full access"},
		{ID: "KEN", Description: "Kenya"},
		{ID: "SCHM", Description: "School master"},
	} {
		if err := s.CreateRole(ctx, &r); err != nil {
			t.Fatalf("CreateRole %s: %v", r.ID, err)
		}
	}
	for _, sc := range []model.Schema{
		{ID: "school-master", Description: "School master data"},
		{ID: "qos", Description: "Quality of service"},
	} {
		if err := s.CreateSchema(ctx, &sc); err != nil {
			t.Fatalf("CreateSchema %s: %v", sc.ID, err)
		}
	}
}

func TestRoleCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	role := &model.Role{ID: "KEN", Description: "Kenya"}
	if err := s.CreateRole(ctx, role); err != nil {
		t.Fatalf("CreateRole: %v", err)
	}

	got, err := s.GetRole(ctx, "KEN")
	if err != nil {
		t.Fatalf("GetRole: %v", err)
	}
	if got.Description != "Kenya" {
		t.Errorf("got description %q, want %q", got.Description, "Kenya")
	}

	if _, err := s.GetRole(ctx, "BRA"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRole unknown: got %v, want ErrNotFound", err)
	}

	list, err := s.ListRoles(ctx)
	if err != nil {
		t.Fatalf("ListRoles: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("got %d roles, want 1", len(list))
	}
}

func TestRolesByIDs(t *testing.T) {
	s := newTestStore(t)
	seedCatalog(t, s)
	ctx := context.Background()

	roles, err := s.RolesByIDs(ctx, []string{"KEN", "ADMIN", "NOPE"})
	if err != nil {
		t.Fatalf("RolesByIDs: %v", err)
	}
	if len(roles) != 2 {
		t.Errorf("got %d roles, want 2", len(roles))
	}

	empty, err := s.RolesByIDs(ctx, nil)
	if err != nil {
		t.Fatalf("RolesByIDs empty: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("got %d roles for empty input, want 0", len(empty))
	}
}

func TestAPIKeyCRUD(t *testing.T) {
	s := newTestStore(t)
	seedCatalog(t, s)
	ctx := context.Background()

	exp := time.Now().UTC().AddDate(0, 0, 30)
	key := &model.APIKey{
		ID:          "11111111-1111-1111-1111-111111111111",
		Description: "Kenya ministry",
		SecretHash:  "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		Expiration:  &exp,
	}
	if err := s.CreateAPIKey(ctx, key, []string{"KEN", "SCHM"}, []string{"school-master"}); err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}
	if key.Created.IsZero() {
		t.Error("expected Created to be set on insert")
	}

	got, err := s.GetAPIKey(ctx, key.ID)
	if err != nil {
		t.Fatalf("GetAPIKey: %v", err)
	}
	if got.Description != "Kenya ministry" {
		t.Errorf("got description %q, want %q", got.Description, "Kenya ministry")
	}
	if len(got.Roles) != 2 {
		t.Errorf("got %d roles, want 2", len(got.Roles))
	}
	if len(got.Schemas) != 1 || got.Schemas[0].ID != "school-master" {
		t.Errorf("got schemas %v, want [school-master]", got.SchemaIDs())
	}
	if got.Expiration == nil {
		t.Error("expected expiration to round-trip")
	}

	keys, err := s.ListAPIKeys(ctx)
	if err != nil {
		t.Fatalf("ListAPIKeys: %v", err)
	}
	if len(keys) != 1 {
		t.Errorf("got %d keys, want 1", len(keys))
	}

	if err := s.DeleteAPIKey(ctx, key.ID); err != nil {
		t.Fatalf("DeleteAPIKey: %v", err)
	}
	if _, err := s.GetAPIKey(ctx, key.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAPIKey after delete: got %v, want ErrNotFound", err)
	}
	if err := s.DeleteAPIKey(ctx, key.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteAPIKey again: got %v, want ErrNotFound", err)
	}
}

func TestCreateAPIKeyUnknownRoleRollsBack(t *testing.T) {
	s := newTestStore(t)
	seedCatalog(t, s)
	ctx := context.Background()

	key := &model.APIKey{
		ID:         "22222222-2222-2222-2222-222222222222",
		SecretHash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
	}
	err := s.CreateAPIKey(ctx, key, []string{"KEN", "NOPE"}, nil)
	if err == nil {
		t.Fatal("expected error for unknown role")
	}

	// The whole transaction must roll back, including the key row.
	if _, err := s.GetAPIKey(ctx, key.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("key row survived rollback: got %v, want ErrNotFound", err)
	}
}

func TestReplaceAPIKeyAssociations(t *testing.T) {
	s := newTestStore(t)
	seedCatalog(t, s)
	ctx := context.Background()

	key := &model.APIKey{
		ID:         "33333333-3333-3333-3333-333333333333",
		SecretHash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
	}
	if err := s.CreateAPIKey(ctx, key, []string{"KEN"}, []string{"school-master"}); err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}

	// Replace roles only; nil schemas leave the schema set alone.
	if err := s.ReplaceAPIKeyAssociations(ctx, key.ID, []string{"SCHM"}, nil); err != nil {
		t.Fatalf("ReplaceAPIKeyAssociations roles: %v", err)
	}
	got, _ := s.GetAPIKey(ctx, key.ID)
	if len(got.Roles) != 1 || got.Roles[0].ID != "SCHM" {
		t.Errorf("got roles %v, want [SCHM]", got.RoleIDs())
	}
	if len(got.Schemas) != 1 {
		t.Errorf("schemas changed unexpectedly: %v", got.SchemaIDs())
	}

	// Empty non-nil slice clears the dimension.
	if err := s.ReplaceAPIKeyAssociations(ctx, key.ID, nil, []string{}); err != nil {
		t.Fatalf("ReplaceAPIKeyAssociations clear schemas: %v", err)
	}
	got, _ = s.GetAPIKey(ctx, key.ID)
	if len(got.Schemas) != 0 {
		t.Errorf("got schemas %v, want none", got.SchemaIDs())
	}

	if err := s.ReplaceAPIKeyAssociations(ctx, "missing", []string{"KEN"}, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown key: got %v, want ErrNotFound", err)
	}
}

func TestDeleteAPIKeyCascades(t *testing.T) {
	s := newTestStore(t)
	seedCatalog(t, s)
	ctx := context.Background()

	key := &model.APIKey{
		ID:         "44444444-4444-4444-4444-444444444444",
		SecretHash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
	}
	if err := s.CreateAPIKey(ctx, key, []string{"KEN"}, []string{"qos"}); err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}
	if err := s.DeleteAPIKey(ctx, key.ID); err != nil {
		t.Fatalf("DeleteAPIKey: %v", err)
	}

	var n int
	if err := s.db.Get(&n, "SELECT COUNT(*) FROM api_key_roles"); err != nil {
		t.Fatalf("count junction rows: %v", err)
	}
	if n != 0 {
		t.Errorf("got %d junction rows after delete, want 0", n)
	}
}
