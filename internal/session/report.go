package session

import "time"

// Report summarizes one session: every job's terminal outcome plus the disc
// context the session ran against.
type Report struct {
	SessionID string
	DeckModel string
	DiscName  string
	Jobs      []*TrackJob
	Started   time.Time
	Finished  time.Time
	// Aborted is set when the failure policy or a cancel stopped the
	// session before every job was attempted.
	Aborted bool
}

// Done counts jobs that recorded successfully.
func (r *Report) Done() int { return r.count(StatusDone) }

// Failed counts jobs that reached a failure.
func (r *Report) Failed() int { return r.count(StatusFailed) }

// Unattempted counts jobs the session never started.
func (r *Report) Unattempted() int { return r.count(StatusPending) }

func (r *Report) count(status Status) int {
	n := 0
	for _, job := range r.Jobs {
		if job.Status == status {
			n++
		}
	}
	return n
}

// Succeeded reports whether every job recorded.
func (r *Report) Succeeded() bool {
	return len(r.Jobs) > 0 && r.Done() == len(r.Jobs)
}
