package auth

import "strings"

// normalizeEmail lowercases and trims so lookups and uniqueness checks
// agree regardless of how the client typed the address.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
