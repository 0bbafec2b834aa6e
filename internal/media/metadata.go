package media

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/mewkiz/flac"
	"github.com/tcolgate/mp3"
)

// Metadata carries the fields a session needs from one audio file. Absent
// fields stay zero valued.
type Metadata struct {
	Title    string
	Artist   string
	Duration time.Duration
}

// HasDuration reports whether the file's length is known.
func (m Metadata) HasDuration() bool { return m.Duration > 0 }

// Read extracts metadata from the file at path. It never returns an error:
// files that cannot be opened, parsed, or that simply carry no tags produce
// a Metadata with the affected fields left zero.
func Read(path string) Metadata {
	var meta Metadata

	if f, err := os.Open(path); err == nil {
		if tags, err := tag.ReadFrom(f); err == nil {
			meta.Title = strings.TrimSpace(tags.Title())
			meta.Artist = strings.TrimSpace(tags.Artist())
		}
		f.Close()
	}

	meta.Duration = probeDuration(path)
	return meta
}

func probeDuration(path string) time.Duration {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".flac":
		return flacDuration(path)
	case ".mp3":
		return mp3Duration(path)
	default:
		return 0
	}
}

func flacDuration(path string) time.Duration {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return 0
	}
	defer stream.Close()

	info := stream.Info
	if info == nil || info.SampleRate == 0 {
		return 0
	}
	samples := info.NSamples
	if samples == 0 {
		return 0
	}
	return time.Duration(samples) * time.Second / time.Duration(info.SampleRate)
}

// mp3Duration walks every frame and sums their durations. Frame headers lie
// less often than tagged length fields, and a full walk of a typical track
// is still milliseconds of work.
func mp3Duration(path string) time.Duration {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	var (
		frame   mp3.Frame
		skipped int
		total   time.Duration
	)
	for {
		if err := dec.Decode(&frame, &skipped); err != nil {
			if err != io.EOF && total == 0 {
				return 0
			}
			break
		}
		total += frame.Duration()
	}
	return total
}
