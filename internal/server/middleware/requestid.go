package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

// RequestIDKey is the context key for the request ID.
const RequestIDKey contextKey = "request_id"

const keyIDHolderKey contextKey = "key_id_holder"

// HeaderRequestID carries the request ID on both requests and responses.
const HeaderRequestID = "X-Request-ID"

// keyIDHolder is filled in by Authenticate further down the chain so the
// access log can report which key made the request. Logger runs before
// authentication, so a mutable holder is the only way the value can travel
// back up the chain.
type keyIDHolder struct {
	id string
}

// RequestID is an HTTP middleware that attaches the request-scoped log
// identity: a UUID v7 request ID plus the holder for the sharing key ID that
// authentication resolves later. A client-supplied X-Request-ID is honored
// only when it parses as a UUID, so upstream correlation works without
// letting clients inject arbitrary strings into log lines. The ID is set on
// both the response header and the request context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.Must(uuid.NewV7()).String()
		}
		w.Header().Set(HeaderRequestID, id)
		ctx := context.WithValue(r.Context(), RequestIDKey, id)
		ctx = context.WithValue(ctx, keyIDHolderKey, &keyIDHolder{})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID extracts the request ID from the context. Returns an empty
// string if no request ID is present.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
