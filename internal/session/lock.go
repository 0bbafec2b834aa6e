package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrSessionActive reports that another deckhand process already owns the
// deck.
var ErrSessionActive = errors.New("session: another session is already running")

// Lock is the single-session guard. The deck and its serial port are one
// shared resource; the lock keeps two sessions from interleaving commands.
type Lock struct {
	fl *flock.Flock
}

// AcquireLock takes the session lock without blocking.
func AcquireLock(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("session: ensure lock directory: %w", err)
	}
	fl := flock.New(filepath.Join(dir, "deckhand.lock"))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("session: acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (lock file %s)", ErrSessionActive, fl.Path())
	}
	return &Lock{fl: fl}, nil
}

// Release gives the lock up. Releasing twice is harmless.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	if l == nil || l.fl == nil {
		return ""
	}
	return l.fl.Path()
}
