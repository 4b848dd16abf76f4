package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimit returns an HTTP middleware that limits requests per IP address
// to the specified number per minute. Uses a sliding window algorithm.
func RateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.LimitByIP(requestsPerMinute, time.Minute)
}

// RateLimitByKey returns an HTTP middleware that limits requests per
// presented sharing credential to the specified number per minute. The
// window keys on the raw credential, extracted the same way Authenticate
// reads it, and must run before Authenticate so invalid credentials are
// throttled without paying for a hash verification each time.
func RateLimitByKey(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return sharingCredential(r), nil
		}),
	)
}
