// Package disccache remembers the contents of discs the deck has seen.
// Track names take seconds each to read over the serial link, so the cache
// lets disc inspection answer from SQLite when the disc's table of contents
// still matches what was stored.
package disccache
