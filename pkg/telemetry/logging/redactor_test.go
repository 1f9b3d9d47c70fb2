package logging

import (
	"errors"
	"log/slog"
	"strings"
	"testing"

	"mercator-hq/underwriter/pkg/config"
)

func newRedactor(t *testing.T, custom ...config.RedactPattern) *Redactor {
	t.Helper()
	r, err := NewRedactor(custom)
	if err != nil {
		t.Fatalf("NewRedactor() error = %v", err)
	}
	return r
}

func TestNewRedactor(t *testing.T) {
	r := newRedactor(t, config.RedactPattern{Name: "loan_id", Pattern: `LN-\d+`, Replacement: "LN-***"})
	got := strings.Join(r.Patterns(), ",")
	want := "credit_card,ssn,phone,email,bearer_token,loan_id"
	if got != want {
		t.Errorf("Patterns() = %s, want %s", got, want)
	}

	if _, err := NewRedactor([]config.RedactPattern{{Name: "bad", Pattern: "[unclosed"}}); err == nil {
		t.Error("NewRedactor() with invalid pattern should fail")
	}
}

func TestRedactor_RedactString(t *testing.T) {
	r := newRedactor(t, config.RedactPattern{Name: "loan_id", Pattern: `LN-\d+`, Replacement: "LN-***"})

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"ssn", "applicant ssn 123-45-6789 on file", "applicant ssn ***-**-**** on file"},
		{"card dashed", "card 4111-1111-1111-1111", "card ****-****-****-1111"},
		{"card plain", "card 4111111111111234", "card ****-****-****-1234"},
		{"phone", "call (555) 123-4567", "call ***-***-****"},
		{"email", "contact jane.doe@example.com", "contact j***@example.com"},
		{"bearer", "Authorization: Bearer abc.def.ghi", "Authorization: Bearer ***"},
		{"custom", "loan LN-99812 declined", "loan LN-*** declined"},
		{"income untouched", "annual income 85000", "annual income 85000"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.RedactString(tt.input); got != tt.want {
				t.Errorf("RedactString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRedactor_RedactAttr(t *testing.T) {
	r := newRedactor(t)

	tests := []struct {
		name string
		attr slog.Attr
		want string
	}{
		{"sensitive key", slog.String("ssn", "123456789"), "***89"},
		{"sensitive short", slog.String("dob", "1990"), "***"},
		{"sensitive non-string", slog.Int("account_number", 12345678), "***"},
		{"string value", slog.String("note", "mail a@b.io"), "mail a***@b.io"},
		{"plain int", slog.Int("age", 42), "42"},
		{"error value", slog.Any("error", errors.New("bad ssn 123-45-6789")), "bad ssn ***-**-****"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.RedactAttr(tt.attr)
			if got.Key != tt.attr.Key {
				t.Errorf("key = %q, want %q", got.Key, tt.attr.Key)
			}
			if s := got.Value.String(); s != tt.want {
				t.Errorf("value = %q, want %q", s, tt.want)
			}
		})
	}
}

func TestRedactor_RedactRecordMap(t *testing.T) {
	r := newRedactor(t)
	rec := map[string]any{
		"age":            35,
		"ssn":            "123-45-6789",
		"email":          "sam@example.org",
		"history":        []any{"tel 555-123-4567"},
		"co_applicant":   map[string]any{"date_of_birth": "1980-01-01"},
		"account_number": 42,
	}

	got := r.RedactAttr(slog.Any("input", rec)).Value.Any().(map[string]any)

	if got["age"] != 35 {
		t.Errorf("age = %v, want 35", got["age"])
	}
	if got["ssn"] != "***" || got["account_number"] != "***" {
		t.Errorf("sensitive keys not masked: ssn=%v account_number=%v", got["ssn"], got["account_number"])
	}
	if got["email"] != "s***@example.org" {
		t.Errorf("email = %v", got["email"])
	}
	if h := got["history"].([]any)[0]; h != "tel ***-***-****" {
		t.Errorf("history = %v", h)
	}
	if dob := got["co_applicant"].(map[string]any)["date_of_birth"]; dob != "***" {
		t.Errorf("nested dob = %v", dob)
	}
	if rec["ssn"] != "123-45-6789" {
		t.Error("redaction mutated the caller's map")
	}
}

func TestRedactNilRedactor(t *testing.T) {
	var r *Redactor
	if got := r.RedactString("123-45-6789"); got != "123-45-6789" {
		t.Errorf("nil redactor changed value: %q", got)
	}
	if got := r.RedactAttr(slog.String("ssn", "x")); got.Value.String() != "x" {
		t.Errorf("nil redactor changed attr: %v", got)
	}
}

func TestRedactHelpers(t *testing.T) {
	if got := RedactEmail("@example.com"); got != "***@example.com" {
		t.Errorf("RedactEmail() = %q", got)
	}
	if got := RedactEmail("not-an-email"); got != "not-an-email" {
		t.Errorf("RedactEmail() = %q", got)
	}
	if got := RedactCreditCard("1234"); got != "1234" {
		t.Errorf("RedactCreditCard() = %q", got)
	}
	if !IsSensitiveKey("Applicant_SSN") {
		t.Error("IsSensitiveKey should be case-insensitive")
	}
	if IsSensitiveKey("income") {
		t.Error("income should not be sensitive")
	}
}

func TestRedactor_RedactMap(t *testing.T) {
	r := newRedactor(t)
	in := map[string]any{"ssn": "123-45-6789", "income": 85000.0}
	out := r.RedactMap(in)
	if out["ssn"] != "***" || out["income"] != 85000.0 {
		t.Errorf("RedactMap() = %v", out)
	}
	if in["ssn"] != "123-45-6789" {
		t.Error("RedactMap() modified its input")
	}

	var nilRedactor *Redactor
	if got := nilRedactor.RedactMap(in); got["ssn"] != "123-45-6789" {
		t.Errorf("nil redactor = %v", got)
	}
}
