package graph

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalize canonicalises a model-supplied concept id into the key space used
// for uniqueness and reference checks. The input is lower-cased, every rune
// that is not a letter, digit, underscore, whitespace or hyphen is removed,
// runs of whitespace and hyphens collapse into a single underscore, and
// leading/trailing underscores are trimmed.
//
// An empty result means the id is unusable; callers drop the concept.
func Normalize(raw string) string {
	lowered := cases.Lower(language.Und).String(raw)

	var b strings.Builder
	b.Grow(len(lowered))
	inSep := false
	for _, r := range lowered {
		switch {
		case unicode.IsSpace(r) || r == '-':
			if !inSep {
				b.WriteByte('_')
				inSep = true
			}
		case r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(r)
			inSep = false
		default:
			// Stripped runes do not break a separator run: "a - b" and
			// "a -- b" both become "a_b".
		}
	}
	return strings.Trim(b.String(), "_")
}
