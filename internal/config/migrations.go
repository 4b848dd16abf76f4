package config

import "fmt"

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS roles (
			id VARCHAR(5) PRIMARY KEY,
			description TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS schemas (
			id VARCHAR(50) PRIMARY KEY,
			description TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS api_keys (
			id VARCHAR(36) PRIMARY KEY,
			created TIMESTAMP NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			secret_hash TEXT NOT NULL,
			expiration TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS api_key_roles (
			api_key_id VARCHAR(36) NOT NULL REFERENCES api_keys(id) ON DELETE CASCADE,
			role_id VARCHAR(5) NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
			PRIMARY KEY (api_key_id, role_id)
		)`,

		`CREATE TABLE IF NOT EXISTS api_key_schemas (
			api_key_id VARCHAR(36) NOT NULL REFERENCES api_keys(id) ON DELETE CASCADE,
			schema_id VARCHAR(50) NOT NULL REFERENCES schemas(id) ON DELETE CASCADE,
			PRIMARY KEY (api_key_id, schema_id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_api_keys_expiration ON api_keys(expiration)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
