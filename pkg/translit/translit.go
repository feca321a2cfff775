// Package translit converts Cyrillic text into a fixed Latin
// representation so that the same name written in either script
// produces the same comparison key.
package translit

import (
	"strings"
	"unicode"
)

// ISO 9-derived table, simplified the way lab portals print names.
// Soft and hard signs are dropped entirely.
var cyrillic = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d",
	'е': "e", 'ё': "e", 'ж': "zh", 'з': "z", 'и': "i",
	'й': "i", 'к': "k", 'л': "l", 'м': "m", 'н': "n",
	'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t",
	'у': "u", 'ф': "f", 'х': "kh", 'ц': "ts", 'ч': "ch",
	'ш': "sh", 'щ': "shch", 'ъ': "", 'ы': "y", 'ь': "",
	'э': "e", 'ю': "iu", 'я': "ia",
	'і': "i", 'ї': "i", 'є': "ie", 'ґ': "g",
}

// Latinize replaces every Cyrillic rune in s with its Latin
// spelling and leaves all other runes untouched. Case is preserved:
// an uppercase Cyrillic letter maps to a replacement with an
// uppercase first letter.
func Latinize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		lower := unicode.ToLower(r)
		repl, ok := cyrillic[lower]
		if !ok {
			b.WriteRune(r)
			continue
		}
		if repl != "" && r != lower {
			b.WriteString(strings.ToUpper(repl[:1]))
			b.WriteString(repl[1:])
			continue
		}
		b.WriteString(repl)
	}
	return b.String()
}
