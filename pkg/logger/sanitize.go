package logger

import (
	"log/slog"
	"strings"
)

// TruncatedToken masks an access token for logging: first 8 chars plus length.
// Full token strings are credentials and must never reach the logs.
func TruncatedToken(token string) string {
	if len(token) <= 8 {
		return "[short-token]"
	}
	return token[:8] + "…"
}

// RedactedAttr returns a redacted slog attribute for sensitive values
// In production, returns "[REDACTED]"; in development, returns the actual value
func RedactedAttr(key, value, env string) slog.Attr {
	if env == "production" {
		return slog.String(key, "[REDACTED]")
	}
	return slog.String(key, value)
}

// SanitizeQueryString checks if query string contains sensitive parameters
// and returns true if the entire query string should be redacted. Access
// links carry the token in the query, so "token" stays in this list.
func SanitizeQueryString(rawQuery string) bool {
	sensitiveParams := map[string]bool{
		"token":   true,
		"secret":  true,
		"api_key": true,
		"apikey":  true,
		"auth":    true,
	}

	query := strings.ToLower(rawQuery)
	for param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
