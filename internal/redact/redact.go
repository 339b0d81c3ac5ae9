// Package redact provides utilities for redacting sensitive information from strings
// before they are logged or returned in error responses. It prevents credentials,
// connection strings, tokens, email addresses and file paths that might be embedded
// in error messages from leaking into logs or clients.
package redact

import (
	"log/slog"
	"regexp"
)

// Placeholders substituted for redacted values.
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedTokenPlaceholder      = "[REDACTED_TOKEN]"
	RedactedJWTPlaceholder        = "[REDACTED_JWT]"
	RedactedEmailPlaceholder      = "[REDACTED_EMAIL]"
	RedactedStackPlaceholder      = "[STACK_TRACE_REDACTED]"
)

// rule pairs a pattern with its replacement template. Replacements may reference
// capture groups with ${n}.
type rule struct {
	name        string
	pattern     *regexp.Regexp
	replacement string
}

// rules are applied in order. JWTs go first so the key/token rules never see
// the raw token, and stack traces go last so path rules have already run on
// the frames that precede them.
var rules = []rule{
	{
		name:        "jwt",
		pattern:     regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`),
		replacement: RedactedJWTPlaceholder,
	},
	{
		name:        "connection_url",
		pattern:     regexp.MustCompile(`(?i)\b(postgres(?:ql)?|mysql|mongodb|rediss?|amqp|smtp)://[^@\s/]+@`),
		replacement: "${1}://" + RedactedCredentialPlaceholder + "@",
	},
	{
		name:        "bearer",
		pattern:     regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/=-]{8,}`),
		replacement: "Bearer " + RedactedTokenPlaceholder,
	},
	{
		name:        "password",
		pattern:     regexp.MustCompile(`(?i)\b(password|passwd|pwd)(\s*[=:]\s*)['"]?[^'"&\s,]+['"]?`),
		replacement: "${1}${2}" + RedactedCredentialPlaceholder,
	},
	{
		name:        "key",
		pattern:     regexp.MustCompile(`(?i)\b(api[_-]?key|secret|token|access[_-]?key)(\s*[=:]\s*)['"]?[A-Za-z0-9_\-.~+/]{8,}['"]?`),
		replacement: "${1}${2}" + RedactedKeyPlaceholder,
	},
	{
		name:        "email",
		pattern:     regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
		replacement: RedactedEmailPlaceholder,
	},
	{
		name:        "unix_path",
		pattern:     regexp.MustCompile(`(?:^|[\s"'(=])(/[\w.-]+(?:/[\w.-]+)+)`),
		replacement: "",
	},
	{
		name:        "stack_trace",
		pattern:     regexp.MustCompile(`(?s)goroutine \d+ \[[^\]]*\]:.*`),
		replacement: RedactedStackPlaceholder,
	},
}

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules {
		if r.name == "unix_path" {
			result = redactPaths(r.pattern, result)
			continue
		}
		result = r.pattern.ReplaceAllString(result, r.replacement)
	}

	return result
}

// redactPaths replaces the path portion of each match while keeping the
// delimiter that precedes it.
func redactPaths(pattern *regexp.Regexp, input string) string {
	return pattern.ReplaceAllStringFunc(input, func(match string) string {
		if match[0] == '/' {
			return RedactedPathPlaceholder
		}
		return match[:1] + RedactedPathPlaceholder
	})
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}

	return String(err.Error())
}

// ErrorAttr returns a slog attribute named "error" holding the redacted error text.
func ErrorAttr(err error) slog.Attr {
	return slog.String("error", Error(err))
}
