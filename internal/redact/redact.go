// Package redact masks PII-looking substrings before text leaves the
// process boundary toward a generation provider.
package redact

import "regexp"

// Compiled patterns for PII-like substrings.
var (
	// Email addresses.
	emailRe = regexp.MustCompile(`(?i)\b[A-Z0-9._%+\-]+@[A-Z0-9.\-]+\.[A-Z]{2,}\b`)

	// Long digit runs: national IDs, phone numbers, account numbers.
	longDigitRe = regexp.MustCompile(`\b\d{6,}\b`)

	// ISO dates, which in this domain are usually birth or incident dates.
	dateRe = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
)

// Redact masks email-like, long-digit, and date-like substrings. Empty input
// passes through unchanged.
func Redact(input string) string {
	if input == "" {
		return input
	}

	out := emailRe.ReplaceAllString(input, "[EMAIL_REDACTED]")
	out = longDigitRe.ReplaceAllString(out, "[ID_REDACTED]")
	out = dateRe.ReplaceAllString(out, "[DATE_REDACTED]")
	return out
}
