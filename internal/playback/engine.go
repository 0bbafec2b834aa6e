package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"deckhand/internal/config"
	"deckhand/internal/logging"
)

// ErrStartFailed reports that the player binary could not be launched or
// refused the file.
var ErrStartFailed = errors.New("playback: player failed to start")

// preferredPlayers is the auto-discovery order when no player is pinned in
// the configuration. All of them exit on their own when the file ends.
var preferredPlayers = []string{"mpv", "ffplay", "pw-play", "paplay", "aplay"}

// Handle follows one launched player process.
type Handle interface {
	// Playing reports whether the process is still running. It never blocks.
	Playing() bool
	// Stop terminates the process. Stopping a finished handle is a no-op.
	Stop() error
	// Err returns the process failure, if any, once it has exited. A player
	// that was stopped through Stop never reports its exit as a failure.
	Err() error
}

// Engine launches playback of one audio file.
type Engine interface {
	Start(ctx context.Context, path string) (Handle, error)
}

// ExecEngine runs playback through an external player binary.
type ExecEngine struct {
	player    string
	device    string
	stopGrace time.Duration
	logger    *slog.Logger
}

// NewEngine resolves the player binary from the configuration, falling back
// to the first available entry of the preference list.
func NewEngine(cfg config.Playback, logger *slog.Logger) (*ExecEngine, error) {
	player, err := ResolvePlayer(cfg.Player)
	if err != nil {
		return nil, err
	}
	return &ExecEngine{
		player:    player,
		device:    cfg.Device,
		stopGrace: cfg.StopGrace(),
		logger:    logging.NewComponentLogger(logger, "playback"),
	}, nil
}

// Player returns the resolved player binary path.
func (e *ExecEngine) Player() string { return e.player }

// ResolvePlayer finds the player binary: the pinned one when configured,
// otherwise the first available entry of the preference list.
func ResolvePlayer(pinned string) (string, error) {
	if pinned != "" {
		path, err := exec.LookPath(pinned)
		if err != nil {
			return "", fmt.Errorf("playback: configured player %q not found: %w", pinned, err)
		}
		return path, nil
	}
	for _, candidate := range preferredPlayers {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", errors.New("playback: no player binary found; install mpv or ffplay, or set playback.player")
}

// playerArgs shapes the command line for the known players so they run
// headless, quiet, and exit when the file ends.
func playerArgs(player, device, path string) []string {
	switch filepath.Base(player) {
	case "mpv":
		args := []string{"--no-video", "--really-quiet", "--keep-open=no"}
		if device != "" {
			args = append(args, "--audio-device="+device)
		}
		return append(args, path)
	case "ffplay":
		return []string{"-nodisp", "-autoexit", "-loglevel", "error", path}
	case "pw-play":
		if device != "" {
			return []string{"--target", device, path}
		}
		return []string{path}
	case "paplay":
		if device != "" {
			return []string{"--device", device, path}
		}
		return []string{path}
	case "aplay":
		args := []string{"-q"}
		if device != "" {
			args = append(args, "-D", device)
		}
		return append(args, path)
	default:
		return []string{path}
	}
}

// Start launches the player on one file. The returned handle latches the
// process exit in the background; cancelling ctx terminates the player with
// the same term-then-kill sequence Stop uses.
func (e *ExecEngine) Start(ctx context.Context, path string) (Handle, error) {
	args := playerArgs(e.player, e.device, path)
	cmd := exec.CommandContext(ctx, e.player, args...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(unix.SIGTERM)
	}
	cmd.WaitDelay = e.stopGrace

	h := &execHandle{
		cmd:    cmd,
		grace:  e.stopGrace,
		waited: make(chan struct{}),
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStartFailed, filepath.Base(e.player), err)
	}
	e.logger.Debug("player started",
		logging.String("player", filepath.Base(e.player)),
		logging.String("file", filepath.Base(path)),
		logging.Int("pid", cmd.Process.Pid),
	)
	go func() {
		err := cmd.Wait()
		h.mu.Lock()
		h.err = err
		h.mu.Unlock()
		close(h.waited)
	}()
	return h, nil
}

type execHandle struct {
	cmd    *exec.Cmd
	grace  time.Duration
	waited chan struct{}

	mu      sync.Mutex
	err     error
	stopped bool
}

func (h *execHandle) Playing() bool {
	select {
	case <-h.waited:
		return false
	default:
		return true
	}
}

func (h *execHandle) Err() error {
	select {
	case <-h.waited:
	default:
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return nil
	}
	return h.err
}

// Stop terminates the player with SIGTERM and escalates to SIGKILL when the
// process outlives the grace period.
func (h *execHandle) Stop() error {
	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()

	select {
	case <-h.waited:
		return nil
	default:
	}

	if err := h.cmd.Process.Signal(unix.SIGTERM); err != nil {
		// Already gone.
		return nil
	}
	select {
	case <-h.waited:
		return nil
	case <-time.After(h.grace):
	}
	if err := h.cmd.Process.Kill(); err != nil {
		return nil
	}
	<-h.waited
	return nil
}
