package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/giga-sharing/gateway/internal/access"
	"github.com/giga-sharing/gateway/internal/server/middleware"
	"github.com/giga-sharing/gateway/internal/sharing"
)

// SharingHandler forwards Delta Sharing protocol requests to the upstream
// server, gating table endpoints on the caller's resolved scope and filtering
// listing responses down to what the scope covers.
type SharingHandler struct {
	client *sharing.Client
	logger *slog.Logger
}

// NewSharingHandler creates a SharingHandler.
func NewSharingHandler(client *sharing.Client, logger *slog.Logger) *SharingHandler {
	return &SharingHandler{client: client, logger: logger}
}

// relay writes an upstream response to the caller unchanged: status, body,
// and content type. Used for error passthrough and opaque bodies.
func relay(w http.ResponseWriter, resp *sharing.Response) {
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.Status)
	w.Write(resp.Body)
}

// callerScope resolves the authenticated principal's scope. The Authenticate
// middleware guarantees a principal is present on these routes.
func callerScope(r *http.Request) access.Scope {
	return access.Resolve(middleware.GetPrincipal(r.Context()))
}

// ---------------------------------------------------------------------------
// Listings
// ---------------------------------------------------------------------------

// ListShares relays the share listing. Share identity is not scoped by roles,
// so the listing passes through for any authenticated caller.
// GET /shares
func (h *SharingHandler) ListShares(w http.ResponseWriter, r *http.Request) {
	resp, err := h.client.Forward(r.Context(), sharing.Request{
		Method: http.MethodGet,
		Path:   "/shares",
		Query:  forwardedQuery(r, "maxResults", "pageToken"),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	relay(w, resp)
}

// GetShare relays a single share lookup.
// GET /shares/{share}
func (h *SharingHandler) GetShare(w http.ResponseWriter, r *http.Request) {
	resp, err := h.client.Forward(r.Context(), sharing.Request{
		Method: http.MethodGet,
		Path:   "/shares/" + chi.URLParam(r, "share"),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	relay(w, resp)
}

// ListSchemas relays the schema listing, keeping only schemas the caller's
// scope grants. Ordering and the pagination token are preserved.
// GET /shares/{share}/schemas
func (h *SharingHandler) ListSchemas(w http.ResponseWriter, r *http.Request) {
	resp, err := h.client.Forward(r.Context(), sharing.Request{
		Method: http.MethodGet,
		Path:   "/shares/" + chi.URLParam(r, "share") + "/schemas",
		Query:  forwardedQuery(r, "maxResults", "pageToken"),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if resp.IsError() {
		relay(w, resp)
		return
	}

	scope := callerScope(r)
	body := resp.Body
	if !scope.Admin {
		body, err = sharing.FilterListing(resp.Body, func(item sharing.ListedItem) bool {
			return scope.AllowsSchema(item.Name)
		})
		if err != nil {
			h.logger.Error("filter schema listing", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal error")
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	w.Write(body)
}

// ListTables relays a schema's table listing filtered by the caller's scope.
// GET /shares/{share}/schemas/{schema}/tables
func (h *SharingHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	share := chi.URLParam(r, "share")
	schema := chi.URLParam(r, "schema")

	resp, err := h.client.Forward(r.Context(), sharing.Request{
		Method: http.MethodGet,
		Path:   "/shares/" + share + "/schemas/" + schema + "/tables",
		Query:  forwardedQuery(r, "maxResults", "pageToken"),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if resp.IsError() {
		relay(w, resp)
		return
	}

	scope := callerScope(r)
	body := resp.Body
	if !scope.Admin {
		body, err = sharing.FilterListing(resp.Body, func(item sharing.ListedItem) bool {
			return scope.AllowsTable(schema, item.Name)
		})
		if err != nil {
			h.logger.Error("filter table listing", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal error")
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	w.Write(body)
}

// ListAllTables relays the share-wide table listing filtered by scope. Each
// item names its own schema, which the predicate uses per entry.
// GET /shares/{share}/all-tables
func (h *SharingHandler) ListAllTables(w http.ResponseWriter, r *http.Request) {
	resp, err := h.client.Forward(r.Context(), sharing.Request{
		Method: http.MethodGet,
		Path:   "/shares/" + chi.URLParam(r, "share") + "/all-tables",
		Query:  forwardedQuery(r, "maxResults", "pageToken"),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if resp.IsError() {
		relay(w, resp)
		return
	}

	scope := callerScope(r)
	body := resp.Body
	if !scope.Admin {
		body, err = sharing.FilterListing(resp.Body, func(item sharing.ListedItem) bool {
			return scope.AllowsTable(item.Schema, item.Name)
		})
		if err != nil {
			h.logger.Error("filter all-tables listing", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal error")
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	w.Write(body)
}

// ---------------------------------------------------------------------------
// Table endpoints
// ---------------------------------------------------------------------------

// gateTable enforces the per-table permission check. Denial is reported as
// 404 rather than 403, so callers cannot probe for the existence of tables
// outside their scope.
func (h *SharingHandler) gateTable(w http.ResponseWriter, r *http.Request) (share, schema, table string, ok bool) {
	share = chi.URLParam(r, "share")
	schema = chi.URLParam(r, "schema")
	table = chi.URLParam(r, "table")

	if !callerScope(r).AllowsTable(schema, table) {
		writeError(w, http.StatusNotFound,
			fmt.Sprintf("Table `%s`.`%s`.`%s` not found", share, schema, table))
		return "", "", "", false
	}
	return share, schema, table, true
}

// capabilities validates and returns the caller's capability-negotiation
// header. The value is forwarded verbatim; validation only rejects values
// that do not parse as key=value pairs at all.
func capabilities(w http.ResponseWriter, r *http.Request) (string, bool) {
	header := r.Header.Get(sharing.HeaderCapabilities)
	if _, err := sharing.ParseCapabilities(header); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed "+sharing.HeaderCapabilities+" header")
		return "", false
	}
	return header, true
}

// TableVersion surfaces a table's current version via the delta-table-version
// response header. The upstream offers no other signal at this endpoint, so a
// missing header is reported as not-found.
// GET /shares/{share}/schemas/{schema}/tables/{table}/version
func (h *SharingHandler) TableVersion(w http.ResponseWriter, r *http.Request) {
	share, schema, table, ok := h.gateTable(w, r)
	if !ok {
		return
	}

	resp, err := h.client.Forward(r.Context(), sharing.Request{
		Method: http.MethodGet,
		Path:   tablePath(share, schema, table, "/version"),
		Query:  forwardedQuery(r, "startingTimestamp"),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if resp.IsError() {
		relay(w, resp)
		return
	}

	version := resp.TableVersion()
	if version == "" {
		writeError(w, http.StatusNotFound, fmt.Sprintf(
			"Could not find version for table `%s`.`%s`.`%s`. Ensure that all parameters are spelled correctly.",
			share, schema, table))
		return
	}

	w.Header().Set(sharing.HeaderTableVersion, version)
	writeJSON(w, http.StatusOK, map[string]string{"deltaTableVersion": version})
}

// TableMetadata relays a table's metadata NDJSON body. Once the table-level
// permission check has passed the body is opaque: it is relayed byte-for-byte.
// GET /shares/{share}/schemas/{schema}/tables/{table}/metadata
func (h *SharingHandler) TableMetadata(w http.ResponseWriter, r *http.Request) {
	share, schema, table, ok := h.gateTable(w, r)
	if !ok {
		return
	}
	caps, ok := capabilities(w, r)
	if !ok {
		return
	}

	resp, err := h.client.Forward(r.Context(), sharing.Request{
		Method:       http.MethodGet,
		Path:         tablePath(share, schema, table, "/metadata"),
		Capabilities: caps,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.relayNDJSON(w, resp)
}

// TableQuery relays a data query. The request body (predicate hints, version
// selectors) and the response body both pass through untouched.
// POST /shares/{share}/schemas/{schema}/tables/{table}/query
func (h *SharingHandler) TableQuery(w http.ResponseWriter, r *http.Request) {
	share, schema, table, ok := h.gateTable(w, r)
	if !ok {
		return
	}
	caps, ok := capabilities(w, r)
	if !ok {
		return
	}

	resp, err := h.client.Forward(r.Context(), sharing.Request{
		Method:       http.MethodPost,
		Path:         tablePath(share, schema, table, "/query"),
		Capabilities: caps,
		ContentType:  r.Header.Get("Content-Type"),
		Body:         r.Body,
		Bulk:         true,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.relayNDJSON(w, resp)
}

// TableChanges relays a change data feed query.
// GET /shares/{share}/schemas/{schema}/tables/{table}/changes
func (h *SharingHandler) TableChanges(w http.ResponseWriter, r *http.Request) {
	share, schema, table, ok := h.gateTable(w, r)
	if !ok {
		return
	}
	caps, ok := capabilities(w, r)
	if !ok {
		return
	}

	resp, err := h.client.Forward(r.Context(), sharing.Request{
		Method: http.MethodGet,
		Path:   tablePath(share, schema, table, "/changes"),
		Query: forwardedQuery(r,
			"startingVersion", "startingTimestamp",
			"endingVersion", "endingTimestamp",
			"includeHistoricalMetadata"),
		Capabilities: caps,
		Bulk:         true,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.relayNDJSON(w, resp)
}

// relayNDJSON writes an NDJSON response byte-for-byte, surfacing the
// table-version header. Authorization granularity is the whole table:
// individual protocol, metadata, and file lines are never filtered here, only
// decoded for debug accounting.
func (h *SharingHandler) relayNDJSON(w http.ResponseWriter, resp *sharing.Response) {
	if resp.IsError() {
		relay(w, resp)
		return
	}

	if h.logger.Enabled(nil, slog.LevelDebug) {
		counts := sharing.CountActions(sharing.DecodeActions(resp.Body))
		h.logger.Debug("relayed table response", "actions", counts, "bytes", len(resp.Body))
	}

	if version := resp.TableVersion(); version != "" {
		w.Header().Set(sharing.HeaderTableVersion, version)
	}
	w.Header().Set("Content-Type", "application/x-ndjson; charset=utf-8")
	w.WriteHeader(resp.Status)
	w.Write(resp.Body)
}

func tablePath(share, schema, table, suffix string) string {
	return "/shares/" + share + "/schemas/" + schema + "/tables/" + table + suffix
}
