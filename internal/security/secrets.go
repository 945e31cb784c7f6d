package security

import (
	"fmt"
	"strings"
	"unicode"
)

// MinAPIKeyLength is the shortest key worth sending to the platform.
const MinAPIKeyLength = 16

// redacted replaces secrets in logs and error output
const redacted = "***REDACTED***"

var placeholderKeys = map[string]bool{
	"rnd_xxx":              true,
	"your-api-key":         true,
	"your_api_key":         true,
	"replace-with-api-key": true,
	"changeme":             true,
	"secret":               true,
	"password":             true,
}

// ValidateAPIKey catches keys that can never authenticate: empty values,
// values with whitespace inside and obvious placeholders copied from docs.
func ValidateAPIKey(key string) error {
	if key == "" {
		return fmt.Errorf("api key is required (set --api-key or RENDER_API_KEY)")
	}
	if strings.IndexFunc(key, unicode.IsSpace) >= 0 {
		return fmt.Errorf("api key contains whitespace")
	}

	lower := strings.ToLower(key)
	if placeholderKeys[lower] || strings.Contains(lower, "replace") || strings.Contains(lower, "changeme") {
		return fmt.Errorf("api key appears to be a placeholder value")
	}

	if len(key) < MinAPIKeyLength {
		return fmt.Errorf("api key too short (minimum %d characters, got %d)", MinAPIKeyLength, len(key))
	}

	return nil
}

// Redact replaces every occurrence of the given secrets in s.
// Empty secrets are ignored.
func Redact(s string, secrets ...string) string {
	for _, secret := range secrets {
		if secret != "" {
			s = strings.ReplaceAll(s, secret, redacted)
		}
	}
	return s
}

// Mask shows only the last four characters of a secret, for diagnostics.
func Mask(secret string) string {
	if len(secret) <= 8 {
		return redacted
	}
	return strings.Repeat("*", 4) + secret[len(secret)-4:]
}
