package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/giga-sharing/gateway/internal/config"
	"github.com/giga-sharing/gateway/internal/model"
	"github.com/giga-sharing/gateway/internal/service"
	"github.com/giga-sharing/gateway/internal/sharing"
)

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a structured error response using the standard error
// envelope. The optional ctx map provides additional context fields.
func writeError(w http.ResponseWriter, code int, message string, ctx ...map[string]interface{}) {
	var ctxMap map[string]interface{}
	if len(ctx) > 0 {
		ctxMap = ctx[0]
	}
	writeJSON(w, code, model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:    code,
			Message: message,
			Context: ctxMap,
		},
	})
}

// writeServiceError maps service and store errors to the HTTP taxonomy.
// Internal detail (stack traces, hashes, store errors) never reaches the
// client; 5xx responses carry a generic message only.
func writeServiceError(w http.ResponseWriter, err error) {
	var unknownRef *service.UnknownReferenceError
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid sharing key")
	case errors.Is(err, service.ErrBootstrapKey):
		writeError(w, http.StatusForbidden, "The bootstrap key cannot be revoked")
	case errors.As(err, &unknownRef):
		writeError(w, http.StatusBadRequest, unknownRef.Error(), map[string]interface{}{
			unknownRef.Kind: unknownRef.IDs,
		})
	case errors.Is(err, config.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, sharing.ErrUpstreamUnavailable):
		writeError(w, http.StatusBadGateway, "Upstream sharing server unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "Internal error")
	}
}

// readJSON decodes the request body as JSON into v. The body is closed after
// decoding regardless of success or failure.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// forwardedQuery copies the named query parameters from the inbound request,
// dropping empty values so the upstream sees only what the caller actually
// set.
func forwardedQuery(r *http.Request, keys ...string) url.Values {
	out := url.Values{}
	in := r.URL.Query()
	for _, key := range keys {
		if v := in.Get(key); v != "" {
			out.Set(key, v)
		}
	}
	return out
}
