package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes runes and removes the combining marks, so that for
// example "é" survives as "e" instead of being dropped entirely.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// replacements covers common typographic characters that decomposition alone
// does not reduce to ASCII.
var replacements = strings.NewReplacer(
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
	"–", "-",
	"—", "-",
	"…", "...",
	"Ø", "O",
	"ø", "o",
	"Æ", "AE",
	"æ", "ae",
	"ß", "ss",
	" ", " ",
)

// Transliterate reduces a string to printable ASCII. Accented letters lose
// their accents, a handful of typographic characters map to ASCII
// equivalents, and anything else outside the printable range is dropped.
func Transliterate(value string) string {
	value = replacements.Replace(value)
	if out, _, err := transform.String(stripMarks, value); err == nil {
		value = out
	}
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r >= 0x20 && r < 0x7F {
			b.WriteRune(r)
		}
	}
	return b.String()
}
