package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/giga-sharing/gateway/internal/model"
	"github.com/giga-sharing/gateway/internal/service"
	"github.com/giga-sharing/gateway/internal/sharing"
)

type contextKeyAuth string

// AuthPrincipalKey is the context key for the authenticated principal.
const AuthPrincipalKey contextKeyAuth = "auth_principal"

// sharingCredential extracts the raw credential from the request: the
// X-Giga-Sharing-Key header, or an Authorization Bearer token as a fallback.
// Both Authenticate and the per-key rate limiter key on this value, so a
// client is throttled the same way whichever header it uses.
func sharingCredential(r *http.Request) string {
	if raw := r.Header.Get(sharing.HeaderSharingKey); raw != "" {
		return raw
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// Authenticate returns an HTTP middleware that validates the request's
// sharing credential. The credential is read from the X-Giga-Sharing-Key
// header, or from an Authorization Bearer token as a fallback. On success the
// resolved Principal is attached to the request context; on failure a 401
// JSON response is written with no detail about the cause.
func Authenticate(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := sharingCredential(r)
			if raw == "" {
				writeAuthError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			principal, err := authSvc.Authenticate(r.Context(), raw)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "Invalid sharing key")
				return
			}

			if holder, ok := r.Context().Value(keyIDHolderKey).(*keyIDHolder); ok {
				holder.id = principal.KeyID
				if principal.Root {
					holder.id = "root"
				}
			}

			ctx := context.WithValue(r.Context(), AuthPrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin returns an HTTP middleware that enforces administrative
// access. It must be used after Authenticate in the middleware chain.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r.Context())
			if principal == nil || !principal.IsAdmin() {
				writeAuthError(w, http.StatusForbidden, "Admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetPrincipal extracts the authenticated principal from the context.
// Returns nil if no principal is present.
func GetPrincipal(ctx context.Context) *model.Principal {
	if p, ok := ctx.Value(AuthPrincipalKey).(*model.Principal); ok {
		return p
	}
	return nil
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Manually construct JSON to avoid import cycle with handler package
	w.Write([]byte(`{"error":{"code":` + statusString(status) + `,"message":"` + message + `"}}`))
}

func statusString(code int) string {
	switch code {
	case 401:
		return "401"
	case 403:
		return "403"
	default:
		return "500"
	}
}
