package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimit creates IP-based rate limiting middleware. httprate sets the
// X-RateLimit-Limit, X-RateLimit-Remaining and X-RateLimit-Reset headers on
// every response; the limit handler adds Retry-After on 429s.
func RateLimit(requestLimit int, windowLength time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestLimit,
		windowLength,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(windowLength.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"Too many requests. Please try again later.","code":"RATE_LIMIT_EXCEEDED"}}`))
		}),
	)
}
