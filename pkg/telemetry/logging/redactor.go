package logging

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"mercator-hq/underwriter/pkg/config"
)

// Built-in pattern names.
const (
	PatternCreditCard  = "credit_card"
	PatternSSN         = "ssn"
	PatternPhone       = "phone"
	PatternEmail       = "email"
	PatternBearerToken = "bearer_token"
)

// Redactor masks applicant PII in log messages and attributes.
type Redactor struct {
	patterns []*redactPattern
}

type redactPattern struct {
	name    string
	regex   *regexp.Regexp
	replace func(string) string
}

// sensitiveKeys are attribute keys whose values are masked regardless of
// content. Matching is by substring on the lowercased key.
var sensitiveKeys = []string{
	"ssn", "social_security", "tax_id",
	"dob", "date_of_birth", "birth_date",
	"account_number", "routing_number", "card_number", "credit_card",
	"password", "secret", "token", "authorization", "api_key",
}

// NewRedactor returns a Redactor with the built-in patterns followed by the
// custom ones. Built-ins run in a fixed order so longer digit runs are masked
// before shorter ones can claim a prefix of them.
func NewRedactor(custom []config.RedactPattern) (*Redactor, error) {
	r := &Redactor{}
	r.add(PatternCreditCard, `\b(?:\d[ -]?){12,15}\d\b`, RedactCreditCard)
	r.add(PatternSSN, `\b\d{3}-\d{2}-\d{4}\b`, fixed("***-**-****"))
	r.add(PatternPhone, `(?:\+?1[-.\s]?)?\(?\b\d{3}\)?[-.\s]\d{3}[-.\s]\d{4}\b`, fixed("***-***-****"))
	r.add(PatternEmail, `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`, RedactEmail)
	r.add(PatternBearerToken, `Bearer\s+[a-zA-Z0-9\-._~+/]+=*`, fixed("Bearer ***"))

	for _, p := range custom {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("redact pattern %q: %w", p.Name, err)
		}
		replacement := p.Replacement
		r.patterns = append(r.patterns, &redactPattern{
			name:    p.Name,
			regex:   re,
			replace: func(s string) string { return re.ReplaceAllString(s, replacement) },
		})
	}
	return r, nil
}

func (r *Redactor) add(name, expr string, replace func(string) string) {
	r.patterns = append(r.patterns, &redactPattern{
		name:    name,
		regex:   regexp.MustCompile(expr),
		replace: replace,
	})
}

func fixed(s string) func(string) string {
	return func(string) string { return s }
}

// Patterns returns the pattern names in application order.
func (r *Redactor) Patterns() []string {
	names := make([]string, len(r.patterns))
	for i, p := range r.patterns {
		names[i] = p.name
	}
	return names
}

// RedactString masks every pattern match in value.
func (r *Redactor) RedactString(value string) string {
	if r == nil || value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllStringFunc(value, p.replace)
	}
	return value
}

// RedactAttr masks a single attribute, descending into groups and into
// map-shaped values such as applicant records.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	if r == nil {
		return a
	}
	if IsSensitiveKey(a.Key) {
		return slog.String(a.Key, maskValue(a.Value))
	}

	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, r.RedactString(v.String()))
	case slog.KindGroup:
		attrs := v.Group()
		out := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			out[i] = r.RedactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindAny:
		return slog.Any(a.Key, r.redactAny(v.Any()))
	}
	return slog.Attr{Key: a.Key, Value: v}
}

// RedactMap returns a masked copy of m. The input is not modified.
func (r *Redactor) RedactMap(m map[string]any) map[string]any {
	if r == nil || m == nil {
		return m
	}
	return r.redactAny(m).(map[string]any)
}

func (r *Redactor) redactAny(v any) any {
	switch t := v.(type) {
	case string:
		return r.RedactString(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if IsSensitiveKey(k) {
				out[k] = "***"
				continue
			}
			out[k] = r.redactAny(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = r.redactAny(val)
		}
		return out
	case error:
		return r.RedactString(t.Error())
	}
	return v
}

// IsSensitiveKey reports whether key names data that is always masked.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

func maskValue(v slog.Value) string {
	if v.Kind() != slog.KindString {
		return "***"
	}
	s := v.String()
	if len(s) <= 4 {
		return "***"
	}
	return "***" + s[len(s)-2:]
}

// RedactEmail keeps the first character of the local part and the domain.
func RedactEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return email
	}
	if local == "" {
		return "***@" + domain
	}
	return local[:1] + "***@" + domain
}

// RedactCreditCard keeps the last four digits of a card number.
func RedactCreditCard(cc string) string {
	cleaned := strings.NewReplacer(" ", "", "-", "").Replace(cc)
	if len(cleaned) < 13 || len(cleaned) > 16 {
		return cc
	}
	return "****-****-****-" + cleaned[len(cleaned)-4:]
}
