package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"deckhand/internal/media"
)

// Status represents the lifecycle of a track job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusArming    Status = "arming"
	StatusStarting  Status = "starting"
	StatusRecording Status = "recording"
	StatusStopping  Status = "stopping"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusArming,
	StatusStarting,
	StatusRecording,
	StatusStopping,
	StatusDone,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// ParseStatus normalizes and validates a status string.
func ParseStatus(value string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := statusSet[status]; !ok {
		return "", fmt.Errorf("session: unknown status %q", value)
	}
	return status, nil
}

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

func (s Status) String() string { return string(s) }

// TrackJob is one unit of work: one audio file recorded as one disc track.
type TrackJob struct {
	ID       string
	Seq      int
	Path     string
	Title    string
	Artist   string
	Duration time.Duration

	Status Status
	// FailureStage names the step that failed: arm, playback, start,
	// record, stop, or cancel.
	FailureStage string
	Err          error
	// Track is the deck-assigned track number after a successful stop.
	Track int
	// Degraded marks jobs whose playback completion was forced past the
	// expected duration rather than observed.
	Degraded bool

	Started  time.Time
	Finished time.Time
}

// newTrackJob builds a pending job from a file path and its metadata.
func newTrackJob(seq int, path string, meta media.Metadata) *TrackJob {
	return &TrackJob{
		ID:       uuid.NewString(),
		Seq:      seq,
		Path:     path,
		Title:    media.TrackTitle(meta, path),
		Artist:   meta.Artist,
		Duration: meta.Duration,
		Status:   StatusPending,
	}
}

func (j *TrackJob) fail(stage string, err error) error {
	j.Status = StatusFailed
	j.FailureStage = stage
	j.Err = err
	j.Finished = time.Now()
	return err
}
