// Package identity canonicalizes participant names and group labels into
// comparison keys. Display strings are never compared directly.
package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// cases.Caser is stateful and not safe for concurrent use, so a caser is
// built per call from this tag.
var lowerTag = language.Und

// NormalizeName trims text, collapses internal whitespace runs to a single
// space and lower-cases the result. "Ivanov  Ivan " and "ivanov ivan" map to
// the same key.
func NormalizeName(text string) string {
	fields := strings.Fields(norm.NFC.String(text))
	if len(fields) == 0 {
		return ""
	}
	return norm.NFC.String(cases.Lower(lowerTag).String(strings.Join(fields, " ")))
}

// NormalizeGroup trims text and strips all whitespace. Group labels carry no
// meaningful internal spaces and keep their case.
func NormalizeGroup(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, norm.NFC.String(text))
}

// SameName reports whether a and b normalize to the same key.
func SameName(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b)
}

// MatchName reports whether filter matches name as a substring of either the
// lower-cased raw display name or its normalized key. An empty filter
// matches everything.
func MatchName(name, filter string) bool {
	f := strings.TrimSpace(filter)
	if f == "" {
		return true
	}
	if strings.Contains(strings.ToLower(name), strings.ToLower(f)) {
		return true
	}
	return strings.Contains(NormalizeName(name), NormalizeName(f))
}

// MatchGroup reports whether the normalized filter is a substring of the
// normalized group. An empty filter matches everything.
func MatchGroup(group, filter string) bool {
	f := NormalizeGroup(filter)
	if f == "" {
		return true
	}
	return strings.Contains(NormalizeGroup(group), f)
}
