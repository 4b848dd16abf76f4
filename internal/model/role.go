package model

// Role is an access grouping assigned to API keys. The identifier is a short
// code of 3 to 5 characters: "ADMIN" for unrestricted access, a schema alias
// (e.g. "SCHM"), or an ISO-3166 alpha-3 country code used to filter tables by
// their name prefix. Roles are operator-managed reference data.
type Role struct {
	ID          string `json:"id" db:"id"`
	Description string `json:"description" db:"description"`
}

// AdminRoleID is the distinguished role granting unrestricted access to every
// schema and table.
const AdminRoleID = "ADMIN"
