package model

// Principal is the resolved identity for a single request. It is derived from
// an authenticated API key (or the service root token) and never persisted;
// every request re-authenticates from scratch.
type Principal struct {
	// KeyID is the authenticated key's identifier, empty for the root token.
	KeyID string
	// Root is set when the request authenticated with the service-level
	// bearer token rather than an issued key.
	Root    bool
	Roles   []string
	Schemas []string
}

// IsAdmin reports whether the principal has unrestricted access: either the
// service root token or a key holding the ADMIN role.
func (p *Principal) IsAdmin() bool {
	if p.Root {
		return true
	}
	for _, r := range p.Roles {
		if r == AdminRoleID {
			return true
		}
	}
	return false
}
