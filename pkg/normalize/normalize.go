// Package normalize holds the pure canonicalisation helpers applied to
// operator input before validation and storage. All functions are idempotent
// and free of side effects.
package normalize

import (
	"strings"
	"unicode"
)

// Name strips characters that are not letters or spaces, lowercases the
// remainder, and title-cases each space-delimited word.
func Name(value string) string {
	var cleaned strings.Builder
	for _, r := range value {
		if unicode.IsLetter(r) || r == ' ' {
			cleaned.WriteRune(unicode.ToLower(r))
		}
	}

	words := strings.Fields(cleaned.String())
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}

	return strings.Join(words, " ")
}

// Email trims surrounding whitespace and lowercases the address.
func Email(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// PhoneDigits returns the number of digit runes after stripping everything
// else. Formatting characters like spaces, dashes, and a leading plus are
// ignored on purpose.
func PhoneDigits(value string) int {
	count := 0
	for _, r := range value {
		if unicode.IsDigit(r) {
			count++
		}
	}
	return count
}
