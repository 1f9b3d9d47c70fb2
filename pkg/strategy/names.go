package strategy

import (
	"regexp"
	"strings"
	"unicode"
)

// versionSuffix matches names such as "loan_checks.v2", "loan_checks.v1.3"
// and "loan_checks.v10.2.1-draft".
var versionSuffix = regexp.MustCompile(`^(.+)(\.v\d{1,2}(.\d{1,2}){0,2}.*)$`)

// NormalizeName strips a version suffix from an engine or segment name.
func NormalizeName(name string) string {
	return versionSuffix.ReplaceAllString(name, "$1")
}

// TitleWords converts a snake_case stage name into title-cased words,
// e.g. "ml_module" becomes "Ml Module". Every underscore becomes one space,
// so "a__b" keeps both: "A  B".
func TitleWords(name string) string {
	words := strings.Split(strings.ReplaceAll(name, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
