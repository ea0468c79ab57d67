// File: internal/observability/redact.go
package observability

import (
	"regexp"
	"strings"
)

// passwordField matches password-like values inside JSON diagnostic payloads
// so upstream response bodies can be logged without leaking credentials.
var passwordField = regexp.MustCompile(`(?i)("(?:password|pass|pwd|secret)"\s*:\s*)"(?:[^"\\]|\\.)*"`)

// RedactBody masks credential-looking fields and truncates the body to max
// bytes. Upstream error bodies are useful for diagnosis but must never carry
// a plaintext password into the logs.
func RedactBody(body string, max int) string {
	redacted := passwordField.ReplaceAllString(body, `$1"[REDACTED]"`)
	if max > 0 && len(redacted) > max {
		redacted = redacted[:max] + "...(truncated)"
	}
	return strings.TrimSpace(redacted)
}
