// Package preflight provides readiness checks for the serial link, the
// player binary, and the filesystem paths deckhand depends on.
//
// The checks run in two contexts:
//   - The record command runs RunAll before opening the port, so a doomed
//     session fails in milliseconds instead of mid-disc.
//   - The CLI "deckhand status" command renders the results, plus the
//     deck-side checks once a port is open.
package preflight
