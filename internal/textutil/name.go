package textutil

import "strings"

// MaxDeckName is the longest name the deck accepts for a track or disc.
const MaxDeckName = 100

// DeckName converts an arbitrary title into text the deck can store:
// transliterated to ASCII, whitespace collapsed, and truncated to
// MaxDeckName characters. Returns "" when nothing printable remains.
func DeckName(value string) string {
	value = Transliterate(value)
	value = strings.Join(strings.Fields(value), " ")
	if len(value) > MaxDeckName {
		value = strings.TrimSpace(value[:MaxDeckName])
	}
	return value
}
