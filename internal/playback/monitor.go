package playback

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"deckhand/internal/config"
	"deckhand/internal/logging"
)

// State is the monitor's verdict on the current track.
type State int

const (
	StateIdle State = iota
	StatePlaying
	StateFinished
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StateFinished:
		return "finished"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Progress is one Poll observation.
type Progress struct {
	State   State
	Elapsed time.Duration
	// Degraded marks a completion the monitor forced because the player ran
	// past the expected duration plus slack. The track likely recorded fine
	// but deserves a review.
	Degraded bool
	Err      error
}

// Monitor follows one playing track at a time. It decides completion from
// the player process: the track is done when the player exits, or when it
// overstays the duration hint by more than the completion slack.
type Monitor struct {
	engine Engine
	slack  time.Duration
	logger *slog.Logger

	handle  Handle
	started time.Time
	hint    time.Duration
}

// NewMonitor wires a monitor over an engine. The completion slack comes
// from the playback configuration section.
func NewMonitor(engine Engine, cfg config.Playback, logger *slog.Logger) *Monitor {
	return &Monitor{
		engine: engine,
		slack:  cfg.CompletionSlack(),
		logger: logging.NewComponentLogger(logger, "playback"),
	}
}

// Begin starts playback of one file. The duration hint may be zero when the
// file's metadata gave no duration; the overstay check is skipped then.
func (m *Monitor) Begin(ctx context.Context, path string, durationHint time.Duration) error {
	handle, err := m.engine.Start(ctx, path)
	if err != nil {
		return err
	}
	m.handle = handle
	m.started = time.Now()
	m.hint = durationHint
	m.logger.Info("playback started",
		logging.String("file", filepath.Base(path)),
		logging.Duration("expected", durationHint),
	)
	return nil
}

// Poll returns the current track's progress. It never blocks.
func (m *Monitor) Poll() Progress {
	if m.handle == nil {
		return Progress{State: StateIdle}
	}
	elapsed := time.Since(m.started)

	if m.handle.Playing() {
		if m.hint > 0 && elapsed > m.hint+m.slack {
			// The player should be long done. Force completion so a hung
			// player cannot stall the session, and mark the track.
			m.logger.Warn("player overstayed expected duration, forcing stop",
				logging.Duration("elapsed", elapsed),
				logging.Duration("expected", m.hint),
			)
			_ = m.handle.Stop()
			m.handle = nil
			return Progress{State: StateFinished, Elapsed: elapsed, Degraded: true}
		}
		return Progress{State: StatePlaying, Elapsed: elapsed}
	}

	err := m.handle.Err()
	m.handle = nil
	if err != nil {
		return Progress{State: StateFailed, Elapsed: elapsed, Err: err}
	}
	return Progress{State: StateFinished, Elapsed: elapsed}
}

// Stop terminates the current track's player, if one is still running.
func (m *Monitor) Stop() error {
	if m.handle == nil {
		return nil
	}
	err := m.handle.Stop()
	m.handle = nil
	return err
}
