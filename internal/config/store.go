package config

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/giga-sharing/gateway/internal/model"
)

// Store persists issued API keys, roles, schemas, and their associations.
// It supports PostgreSQL (production) and SQLite (development and tests).
type Store struct {
	db *sqlx.DB
}

// NewStore opens the credential store. Supported drivers are "postgres" and
// "sqlite". For SQLite, pass an empty DSN for an in-memory database.
func NewStore(driver, dsn string) (*Store, error) {
	var db *sqlx.DB
	var err error

	switch driver {
	case "postgres":
		db, err = sqlx.Connect("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

	case "sqlite":
		if dsn == "" {
			dsn = ":memory:?_journal_mode=WAL"
		}
		db, err = sqlx.Connect("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate credential store: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies store connectivity, used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ---------------------------------------------------------------------------
// Roles
// ---------------------------------------------------------------------------

// CreateRole inserts a new role.
func (s *Store) CreateRole(ctx context.Context, role *model.Role) error {
	q := s.db.Rebind("INSERT INTO roles (id, description) VALUES (?, ?)")
	if _, err := s.db.ExecContext(ctx, q, role.ID, role.Description); err != nil {
		return fmt.Errorf("insert role: %w", err)
	}
	return nil
}

// GetRole returns a role by its identifier.
func (s *Store) GetRole(ctx context.Context, id string) (*model.Role, error) {
	var role model.Role
	q := s.db.Rebind("SELECT * FROM roles WHERE id = ?")
	if err := s.db.GetContext(ctx, &role, q, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get role: %w", err)
	}
	return &role, nil
}

// ListRoles returns all roles ordered by identifier.
func (s *Store) ListRoles(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	if err := s.db.SelectContext(ctx, &roles, "SELECT * FROM roles ORDER BY id"); err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// RolesByIDs returns the roles matching the given identifiers. Identifiers
// with no matching role are simply absent from the result; callers validate
// completeness.
func (s *Store) RolesByIDs(ctx context.Context, ids []string) ([]model.Role, error) {
	if len(ids) == 0 {
		return []model.Role{}, nil
	}
	q, args, err := sqlx.In("SELECT * FROM roles WHERE id IN (?) ORDER BY id", ids)
	if err != nil {
		return nil, fmt.Errorf("build role query: %w", err)
	}
	var roles []model.Role
	if err := s.db.SelectContext(ctx, &roles, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("select roles by id: %w", err)
	}
	return roles, nil
}

// ---------------------------------------------------------------------------
// Schemas
// ---------------------------------------------------------------------------

// CreateSchema inserts a new schema record.
func (s *Store) CreateSchema(ctx context.Context, schema *model.Schema) error {
	q := s.db.Rebind("INSERT INTO schemas (id, description) VALUES (?, ?)")
	if _, err := s.db.ExecContext(ctx, q, schema.ID, schema.Description); err != nil {
		return fmt.Errorf("insert schema: %w", err)
	}
	return nil
}

// ListSchemas returns all schema records ordered by identifier.
func (s *Store) ListSchemas(ctx context.Context) ([]model.Schema, error) {
	var schemas []model.Schema
	if err := s.db.SelectContext(ctx, &schemas, "SELECT * FROM schemas ORDER BY id"); err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	return schemas, nil
}

// SchemasByIDs returns the schema records matching the given identifiers.
func (s *Store) SchemasByIDs(ctx context.Context, ids []string) ([]model.Schema, error) {
	if len(ids) == 0 {
		return []model.Schema{}, nil
	}
	q, args, err := sqlx.In("SELECT * FROM schemas WHERE id IN (?) ORDER BY id", ids)
	if err != nil {
		return nil, fmt.Errorf("build schema query: %w", err)
	}
	var schemas []model.Schema
	if err := s.db.SelectContext(ctx, &schemas, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("select schemas by id: %w", err)
	}
	return schemas, nil
}

// ---------------------------------------------------------------------------
// API keys
// ---------------------------------------------------------------------------

// apiKeyRow maps 1:1 to the api_keys table columns; the role and schema
// associations live in junction tables and are loaded separately.
type apiKeyRow struct {
	ID          string     `db:"id"`
	Created     time.Time  `db:"created"`
	Description string     `db:"description"`
	SecretHash  string     `db:"secret_hash"`
	Expiration  *time.Time `db:"expiration"`
}

func (r apiKeyRow) toModel() model.APIKey {
	return model.APIKey{
		ID:          r.ID,
		Created:     r.Created,
		Description: r.Description,
		SecretHash:  r.SecretHash,
		Expiration:  r.Expiration,
	}
}

// CreateAPIKey inserts a new key together with its role and schema
// associations in a single transaction. The referenced roles and schemas must
// already exist; callers validate references before the insert so the
// operation either fully applies or not at all.
func (s *Store) CreateAPIKey(ctx context.Context, key *model.APIKey, roleIDs, schemaIDs []string) error {
	key.Created = time.Now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	insertKey := tx.Rebind(`INSERT INTO api_keys (id, created, description, secret_hash, expiration)
		VALUES (?, ?, ?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, insertKey,
		key.ID, key.Created, key.Description, key.SecretHash, key.Expiration); err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}

	if err := insertAssociations(ctx, tx, key.ID, roleIDs, schemaIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit api key: %w", err)
	}
	return nil
}

func insertAssociations(ctx context.Context, tx *sqlx.Tx, keyID string, roleIDs, schemaIDs []string) error {
	insertRole := tx.Rebind("INSERT INTO api_key_roles (api_key_id, role_id) VALUES (?, ?)")
	for _, roleID := range roleIDs {
		if _, err := tx.ExecContext(ctx, insertRole, keyID, roleID); err != nil {
			return fmt.Errorf("insert key role %s: %w", roleID, err)
		}
	}
	insertSchema := tx.Rebind("INSERT INTO api_key_schemas (api_key_id, schema_id) VALUES (?, ?)")
	for _, schemaID := range schemaIDs {
		if _, err := tx.ExecContext(ctx, insertSchema, keyID, schemaID); err != nil {
			return fmt.Errorf("insert key schema %s: %w", schemaID, err)
		}
	}
	return nil
}

// GetAPIKey returns a key by identifier with its roles and schemas loaded.
func (s *Store) GetAPIKey(ctx context.Context, id string) (*model.APIKey, error) {
	var row apiKeyRow
	q := s.db.Rebind("SELECT * FROM api_keys WHERE id = ?")
	if err := s.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get api key: %w", err)
	}

	key := row.toModel()
	if err := s.loadAssociations(ctx, &key); err != nil {
		return nil, err
	}
	return &key, nil
}

// ListAPIKeys returns all keys, newest first, with associations loaded.
func (s *Store) ListAPIKeys(ctx context.Context) ([]model.APIKey, error) {
	var rows []apiKeyRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT * FROM api_keys ORDER BY created DESC"); err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}

	keys := make([]model.APIKey, len(rows))
	for i, r := range rows {
		keys[i] = r.toModel()
		if err := s.loadAssociations(ctx, &keys[i]); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func (s *Store) loadAssociations(ctx context.Context, key *model.APIKey) error {
	roleQ := s.db.Rebind(`SELECT r.* FROM roles r
		JOIN api_key_roles kr ON kr.role_id = r.id
		WHERE kr.api_key_id = ? ORDER BY r.id`)
	if err := s.db.SelectContext(ctx, &key.Roles, roleQ, key.ID); err != nil {
		return fmt.Errorf("load key roles: %w", err)
	}
	if key.Roles == nil {
		key.Roles = []model.Role{}
	}

	schemaQ := s.db.Rebind(`SELECT sc.* FROM schemas sc
		JOIN api_key_schemas ks ON ks.schema_id = sc.id
		WHERE ks.api_key_id = ? ORDER BY sc.id`)
	if err := s.db.SelectContext(ctx, &key.Schemas, schemaQ, key.ID); err != nil {
		return fmt.Errorf("load key schemas: %w", err)
	}
	if key.Schemas == nil {
		key.Schemas = []model.Schema{}
	}
	return nil
}

// DeleteAPIKey removes a key by identifier. The junction rows are cascade
// deleted by the foreign key constraints. Returns ErrNotFound when no row
// matched; callers decide whether that is an error.
func (s *Store) DeleteAPIKey(ctx context.Context, id string) error {
	q := s.db.Rebind("DELETE FROM api_keys WHERE id = ?")
	result, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete api key rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceAPIKeyAssociations atomically replaces a key's role and/or schema
// assignment sets. A nil slice leaves that dimension unchanged; an empty
// non-nil slice clears it.
func (s *Store) ReplaceAPIKeyAssociations(ctx context.Context, id string, roleIDs, schemaIDs []string) error {
	var exists int
	q := s.db.Rebind("SELECT COUNT(*) FROM api_keys WHERE id = ?")
	if err := s.db.GetContext(ctx, &exists, q, id); err != nil {
		return fmt.Errorf("check api key: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if roleIDs != nil {
		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM api_key_roles WHERE api_key_id = ?"), id); err != nil {
			return fmt.Errorf("clear key roles: %w", err)
		}
	}
	if schemaIDs != nil {
		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM api_key_schemas WHERE api_key_id = ?"), id); err != nil {
			return fmt.Errorf("clear key schemas: %w", err)
		}
	}
	if err := insertAssociations(ctx, tx, id, roleIDs, schemaIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit key associations: %w", err)
	}
	return nil
}
