package handler

import (
	"log/slog"
	"net/http"

	"github.com/giga-sharing/gateway/internal/config"
	"github.com/giga-sharing/gateway/internal/model"
)

// CatalogHandler serves the role and schema catalogs that keys are granted
// against. Both listings are admin-only.
type CatalogHandler struct {
	store  *config.Store
	logger *slog.Logger
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(store *config.Store, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{store: store, logger: logger}
}

// ListRoles returns every known role.
// GET /roles
func (h *CatalogHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.store.ListRoles(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}

// CreateRole registers a new role code.
// POST /roles
func (h *CatalogHandler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var role model.Role
	if err := readJSON(r, &role); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if role.ID == "" {
		writeError(w, http.StatusBadRequest, "Role id is required")
		return
	}
	if len(role.ID) < 3 || len(role.ID) > 5 {
		writeError(w, http.StatusBadRequest, "Role id must be 3 to 5 characters")
		return
	}
	if err := h.store.CreateRole(r.Context(), &role); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, role)
}

// ListSchemas returns every schema registered in the grant catalog. This is
// the catalog used for key assignment, not the live upstream listing.
// GET /schemas
func (h *CatalogHandler) ListSchemas(w http.ResponseWriter, r *http.Request) {
	schemas, err := h.store.ListSchemas(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schemas)
}

// CreateSchema registers a schema in the grant catalog.
// POST /schemas
func (h *CatalogHandler) CreateSchema(w http.ResponseWriter, r *http.Request) {
	var schema model.Schema
	if err := readJSON(r, &schema); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if schema.ID == "" {
		writeError(w, http.StatusBadRequest, "Schema id is required")
		return
	}
	if len(schema.ID) > 50 {
		writeError(w, http.StatusBadRequest, "Schema id must be at most 50 characters")
		return
	}
	if err := h.store.CreateSchema(r.Context(), &schema); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, schema)
}
