package deck

// State is the controller's view of the deck's recording lifecycle. It
// advances only on confirmed exchanges, never optimistically.
type State int

const (
	// StateIdle means no recording is prepared or running.
	StateIdle State = iota
	// StateArmed means the deck sits in record-pause with a staged track
	// title, waiting for the record start.
	StateArmed
	// StateRecording means the deck is writing audio to the disc.
	StateRecording
	// StateError means an exchange failed while recording and the deck's
	// real state is unknown. It must be cleared explicitly; no operation
	// besides ClearError and LeaveRemote is accepted.
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateRecording:
		return "recording"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
