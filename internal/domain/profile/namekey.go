package profile

import (
	"sort"
	"strings"
	"unicode"

	"github.com/biopulse/biopulse/pkg/translit"
)

// NameKey derives the canonical comparison key for a person's name.
// The key is invariant under script (Cyrillic vs Latin), letter case,
// hyphenation and word order, so "Краснова Евгения" and
// "Evgeniia Krasnova" collapse to the same key.
func NameKey(name string) string {
	s := translit.Latinize(name)
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		if r == '-' || r == '_' {
			return ' '
		}
		return r
	}, s)
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// DisplayName normalizes a free-form name for storage: trimmed,
// single-spaced, each word capitalized.
func DisplayName(name string) string {
	tokens := strings.Fields(name)
	for i, tok := range tokens {
		runes := []rune(strings.ToLower(tok))
		runes[0] = unicode.ToUpper(runes[0])
		tokens[i] = string(runes)
	}
	return strings.Join(tokens, " ")
}
