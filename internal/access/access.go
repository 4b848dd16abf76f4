// Package access is the single authorization module for the gateway. Every
// route resolves a Scope here and calls the same pure predicates; no route
// reimplements role parsing or table filtering.
package access

import (
	"strings"

	"github.com/giga-sharing/gateway/internal/model"
)

// roleToSchema maps short schema-alias role codes to the upstream schema they
// grant. Role identifiers outside this table (and other than ADMIN) are
// treated as country codes.
var roleToSchema = map[string]string{
	"SCHM": "school-master",
	"QOS":  "qos",
	"REF":  "school-reference",
	"GERR": "school-geolocation-error",
}

// Scope is a principal's resolved access: unrestricted (Admin), or a set of
// permitted schemas and/or country codes. An empty Schemas set with Admin
// unset means the principal holds no schema grant; an empty Countries set
// means no per-table restriction within permitted schemas.
type Scope struct {
	Admin     bool
	Schemas   map[string]bool
	Countries map[string]bool
}

// Resolve computes the Scope for a principal. Schema grants come from alias
// roles and from schemas assigned to the key directly; country grants are
// every role identifier that is neither ADMIN nor a known alias. ADMIN
// short-circuits both dimensions.
func Resolve(p *model.Principal) Scope {
	scope := Scope{
		Schemas:   make(map[string]bool),
		Countries: make(map[string]bool),
	}
	if p.Root {
		scope.Admin = true
		return scope
	}

	for _, role := range p.Roles {
		switch {
		case role == model.AdminRoleID:
			scope.Admin = true
		case roleToSchema[role] != "":
			scope.Schemas[roleToSchema[role]] = true
		default:
			scope.Countries[role] = true
		}
	}
	for _, schema := range p.Schemas {
		scope.Schemas[schema] = true
	}
	return scope
}

// AllowsSchema reports whether the scope grants the named schema. Used for
// filtering schema listings: without ADMIN, only explicitly granted schemas
// are visible.
func (s Scope) AllowsSchema(name string) bool {
	if s.Admin {
		return true
	}
	return s.Schemas[name]
}

// AllowsTable reports whether the scope grants a specific table. Precedence:
// ADMIN grants everything; a schema grant set that excludes the table's
// schema denies; no country grants means full access within permitted
// schemas; otherwise the table name's prefix before the first underscore
// must be a granted country code.
func (s Scope) AllowsTable(schemaName, tableName string) bool {
	if s.Admin {
		return true
	}
	if len(s.Schemas) > 0 && !s.Schemas[schemaName] {
		return false
	}
	if len(s.Countries) == 0 {
		return true
	}
	return s.Countries[TablePrefix(tableName)]
}

// TablePrefix returns the partition prefix of a table name: the text before
// the first underscore, or the whole name if it has none.
func TablePrefix(tableName string) string {
	prefix, _, _ := strings.Cut(tableName, "_")
	return prefix
}

// SchemaForRole returns the schema granted by an alias role code, or ""
// when the role is not a schema alias.
func SchemaForRole(role string) string {
	return roleToSchema[role]
}
