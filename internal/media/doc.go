// Package media extracts title, artist, and duration metadata from the audio
// files a session records.
//
// Read never fails: unreadable or untagged files produce a Metadata value
// with the affected fields left zero, and the title falls back to the
// filename downstream. Tags come from the file's ID3 or Vorbis comments;
// duration comes from the FLAC stream info or an MP3 frame walk, since the
// playback engine offers no blocking join and the session needs an upper
// bound on each track's length.
package media
