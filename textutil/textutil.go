// Package textutil normalizes free-text attributes (brands, colors,
// materials) so that comparisons and map lookups are case and
// whitespace insensitive.
package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lower = cases.Lower(language.English)

// Canonical lowercases and trims a user-entered attribute value.
func Canonical(s string) string {
	return strings.TrimSpace(lower.String(s))
}

// CanonicalSlice canonicalizes every element, dropping empties and
// duplicates while keeping first-seen order.
func CanonicalSlice(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		c := Canonical(v)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// Title renders a canonical value for display, e.g. "louis vuitton"
// to "Louis Vuitton".
func Title(s string) string {
	return cases.Title(language.English).String(s)
}
