package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/giga-sharing/gateway/internal/server/middleware"
	"github.com/giga-sharing/gateway/internal/service"
)

// APIKeyHandler exposes the key lifecycle over HTTP: issuance, inspection,
// role/schema reassignment, and revocation.
type APIKeyHandler struct {
	keys   *service.KeyService
	logger *slog.Logger
}

// NewAPIKeyHandler creates an APIKeyHandler.
func NewAPIKeyHandler(keys *service.KeyService, logger *slog.Logger) *APIKeyHandler {
	return &APIKeyHandler{keys: keys, logger: logger}
}

// List returns all issued keys with secrets redacted.
// GET /api-keys
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.keys.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, keys)
}

// Me returns the record of the key the caller authenticated with. The root
// token has no stored record and gets a 404.
// GET /api-keys/me
func (h *APIKeyHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil || principal.KeyID == "" {
		writeError(w, http.StatusNotFound, "No key record for this credential")
		return
	}
	key, err := h.keys.Get(r.Context(), principal.KeyID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, key)
}

// Get returns a single key's metadata.
// GET /api-keys/{keyId}
func (h *APIKeyHandler) Get(w http.ResponseWriter, r *http.Request) {
	key, err := h.keys.Get(r.Context(), chi.URLParam(r, "keyId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, key)
}

// Create issues a new key. The response is a Delta Sharing profile file
// carrying the full credential; it is shown exactly once and cannot be
// recovered later.
// POST /api-keys
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.IssueRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Roles) == 0 {
		writeError(w, http.StatusBadRequest, "At least one role is required")
		return
	}
	if req.ValidityDays < 0 {
		writeError(w, http.StatusBadRequest, "validity must be >= 0")
		return
	}

	profile, _, err := h.keys.Issue(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

// updateAPIKeyRequest carries the PATCH payload. A nil slice leaves the
// dimension unchanged; an empty slice clears it.
type updateAPIKeyRequest struct {
	Roles   []string `json:"roles"`
	Schemas []string `json:"schemas"`
}

// Update atomically replaces a key's role and/or schema assignments.
// PATCH /api-keys/{keyId}
func (h *APIKeyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateAPIKeyRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Roles == nil && req.Schemas == nil {
		writeError(w, http.StatusBadRequest, "Nothing to update: provide roles and/or schemas")
		return
	}

	key, err := h.keys.Update(r.Context(), chi.URLParam(r, "keyId"), req.Roles, req.Schemas)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, key)
}

// Revoke hard-deletes a key. Revoking an unknown identifier succeeds with 204
// (the desired state already holds); revoking the bootstrap key is forbidden.
// DELETE /api-keys/{keyId}
func (h *APIKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	if err := h.keys.Revoke(r.Context(), chi.URLParam(r, "keyId")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
