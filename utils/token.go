package utils

import "strings"

// BearerToken extracts the session token from an Authorization header value.
// Accepts "Bearer <token>" and falls back to the raw value when the prefix
// is missing.
func BearerToken(header string) string {
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header {
		// no "Bearer " prefix, accept the raw value
		token = header
	}
	return strings.TrimSpace(token)
}
