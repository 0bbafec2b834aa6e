// Package textutil prepares track and disc titles for the deck's name
// memory.
//
// The MDS-E12 stores names as plain single-byte characters, so tagged titles
// are transliterated to ASCII (accents stripped, unmappable runes dropped),
// cleaned of control characters, and truncated to the deck's name length
// before they are written to the TOC.
package textutil
