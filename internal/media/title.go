package media

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"deckhand/internal/textutil"
)

// TrackTitle decides the name written to the deck for one file: "Artist -
// Title" when both tags are present, the bare title when only that exists,
// and otherwise a cleaned-up form of the filename stem. The result is always
// deck-safe and never empty.
func TrackTitle(meta Metadata, path string) string {
	candidates := make([]string, 0, 3)
	title := strings.TrimSpace(meta.Title)
	artist := strings.TrimSpace(meta.Artist)
	if title != "" && artist != "" {
		candidates = append(candidates, artist+" - "+title)
	}
	if title != "" {
		candidates = append(candidates, title)
	}
	candidates = append(candidates, stemTitle(path))

	for _, candidate := range candidates {
		if name := textutil.DeckName(candidate); name != "" {
			return name
		}
	}
	return "Untitled"
}

func stemTitle(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range base {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	stem := strings.TrimSpace(cleaned.String())
	if stem == "" {
		return ""
	}
	return cases.Title(language.Und).String(stem)
}
