package logging

import (
	"regexp"
	"strings"
)

// Redactor masks sensitive values in structured log arguments.
// Two mechanisms apply: key-based masking for attribute names that
// indicate secrets, and pattern-based masking of value contents
// (emails, bearer tokens, API key shapes).
type Redactor struct {
	sensitiveKeys map[string]struct{}
	patterns      []*regexp.Regexp
}

// NewRedactor creates a Redactor with the built-in key list and patterns.
func NewRedactor() *Redactor {
	keys := []string{
		"api_key", "apikey", "token", "password", "secret",
		"authorization", "credential", "private_key",
	}
	km := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		km[k] = struct{}{}
	}

	return &Redactor{
		sensitiveKeys: km,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
			regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._\-]+`),
			regexp.MustCompile(`\bsk-[A-Za-z0-9]{16,}\b`),
			regexp.MustCompile(`\bghp_[A-Za-z0-9]{20,}\b`),
		},
	}
}

// RedactArgs redacts alternating key/value log arguments.
// Values under sensitive keys are replaced wholesale; string values under
// other keys have sensitive substrings masked in place.
func (r *Redactor) RedactArgs(args ...any) []any {
	out := make([]any, len(args))
	copy(out, args)

	for i := 0; i+1 < len(out); i += 2 {
		key, ok := out[i].(string)
		if !ok {
			continue
		}
		if r.isSensitiveKey(key) {
			out[i+1] = "[REDACTED]"
			continue
		}
		if s, ok := out[i+1].(string); ok {
			out[i+1] = r.RedactString(s)
		}
	}
	return out
}

// RedactString masks sensitive substrings in a value.
func (r *Redactor) RedactString(s string) string {
	for _, p := range r.patterns {
		s = p.ReplaceAllString(s, "[REDACTED]")
	}
	return s
}

func (r *Redactor) isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	if _, ok := r.sensitiveKeys[key]; ok {
		return true
	}
	// Compound keys like "provider_api_key".
	for k := range r.sensitiveKeys {
		if strings.HasSuffix(key, "_"+k) {
			return true
		}
	}
	return false
}
