package assistant

import (
	"strings"
	"unicode"
)

// ExtractCity returns the first whitespace-separated token of text that is
// title case, with surrounding punctuation removed, or "" if there is none.
// It is a heuristic: "The weather in Paris" yields "The".
func ExtractCity(text string) string {
	for _, field := range strings.Fields(text) {
		word := strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if isTitle(word) {
			return word
		}
	}
	return ""
}

// isTitle reports whether every cased run in s starts with an upper-case
// letter followed only by lower-case letters, and s has at least one cased
// letter ("Paris", "O'Brien" but not "PARIS", "McDonald" or "paris").
func isTitle(s string) bool {
	cased, previousCased := false, false
	for _, r := range s {
		switch {
		case unicode.IsUpper(r) || unicode.IsTitle(r):
			if previousCased {
				return false
			}
			previousCased, cased = true, true
		case unicode.IsLower(r):
			if !previousCased {
				return false
			}
		default:
			previousCased = false
		}
	}
	return cased
}
