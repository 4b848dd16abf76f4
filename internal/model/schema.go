package model

// Schema is a named schema in the upstream share that API keys can be scoped
// to directly, independent of role-based country scoping.
type Schema struct {
	ID          string `json:"id" db:"id"`
	Description string `json:"description" db:"description"`
}
