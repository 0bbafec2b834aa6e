// Package playback plays audio files on the workstation while the deck
// records its analog or digital input. Playback runs through an external
// player binary; the engine launches it and the monitor tracks one playing
// track at a time, deciding when it has finished or failed.
package playback
