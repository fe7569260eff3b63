package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
}

// ValidateRateLimit returns the rate limit config for the validation endpoint.
// Validation is the brute-force surface: the limit throttles token guessing
// without getting in the way of a reader retrying a flaky connection.
func ValidateRateLimit(requestsPerMinute int) RateLimitConfig {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 10
	}
	return RateLimitConfig{
		RequestsPerMinute: requestsPerMinute,
	}
}

// RateLimitByIP creates a middleware that rate limits requests by client IP
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"Rate limit exceeded"}`))
		}),
	)
}
