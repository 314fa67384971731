package analysis

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes text for fuzzy comparison: NFC composition,
// lowercasing, removal of every rune that is neither a word character
// (letter, number, underscore) nor whitespace, then trimming.
// The result is a comparison key only and is never stored back.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	// A Caser keeps state between calls, so each call gets its own.
	lowered := cases.Lower(language.Und).String(norm.NFC.String(text))

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if isWordRune(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}
