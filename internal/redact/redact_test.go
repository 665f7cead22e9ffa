package redact

import (
	"strings"
	"testing"
)

func TestRedact(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"email", "Contact jane.doe@example.com for details", "Contact [EMAIL_REDACTED] for details"},
		{"long_digits", "SSN 123456789 on file", "SSN [ID_REDACTED] on file"},
		{"short_digits_kept", "Retention 30 days, port 8080", "Retention 30 days, port 8080"},
		{"iso_date", "Born 1990-05-17 in Oslo", "Born [DATE_REDACTED] in Oslo"},
		{"mixed", "jane@x.io id 9988776655 dob 1990-05-17", "[EMAIL_REDACTED] id [ID_REDACTED] dob [DATE_REDACTED]"},
		{"empty", "", ""},
		{"clean", "No PII here.", "No PII here."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Redact(tc.in); got != tc.want {
				t.Errorf("Redact(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestRedactLeavesStructureIntact(t *testing.T) {
	in := `{"summary": "credit scoring", "contact": "ops@corp.example"}`
	got := Redact(in)

	if !strings.Contains(got, `"summary": "credit scoring"`) {
		t.Errorf("non-PII content altered: %q", got)
	}
	if strings.Contains(got, "ops@corp.example") {
		t.Errorf("email survived redaction: %q", got)
	}
}
