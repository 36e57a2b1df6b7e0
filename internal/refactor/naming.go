package refactor

import (
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"
	"github.com/surgebase/porter2"
)

// nameStem reduces an identifier to a canonical stem key: camelCase and
// snake_case split into words, each word lowercased and stemmed. Identifiers
// that differ only in inflection or word separators collapse to one key
// ("fetchUsers", "fetch_user" → "fetch user").
func nameStem(identifier string) string {
	words := splitIdentifier(identifier)
	stems := make([]string, 0, len(words))
	for _, w := range words {
		stems = append(stems, porter2.Stem(strings.ToLower(w)))
	}
	return strings.Join(stems, " ")
}

func splitIdentifier(identifier string) []string {
	var words []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			words = append(words, string(current))
			current = nil
		}
	}

	runes := []rune(identifier)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == '.':
			flush()
		case unicode.IsUpper(r):
			// word boundary at lower→Upper and at the last capital of an
			// acronym run (HTTPServer → HTTP, Server)
			if i > 0 && (unicode.IsLower(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				flush()
			}
			current = append(current, r)
		default:
			current = append(current, r)
		}
	}
	flush()
	return words
}

// nameSimilarity is the normalized Levenshtein similarity of two raw names.
func nameSimilarity(a, b string) float64 {
	sim, err := edlib.StringsSimilarity(strings.ToLower(a), strings.ToLower(b), edlib.Levenshtein)
	if err != nil {
		return 0
	}
	return float64(sim)
}
