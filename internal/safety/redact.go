package safety

import "strings"

// RedactGlyph replaces every character of a profane word except the first.
const RedactGlyph = "★"

// Redact masks profane words, keeping their first character. Matching is case-insensitive and word-bounded.
func Redact(text string) string {
	return profanityPattern.ReplaceAllStringFunc(text, func(word string) string {
		runes := []rune(word)
		return string(runes[0]) + strings.Repeat(RedactGlyph, len(runes)-1)
	})
}
