// Package session drives a whole recording session: one deck, one playback
// monitor, and a list of audio files recorded strictly in order, one track
// job at a time. The orchestrator owns setup (deck handshake and disc
// checks), the per-track state machine, the failure policy, and a teardown
// that always returns the deck's front panel to its owner.
package session
