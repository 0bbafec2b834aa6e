package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"deckhand/internal/config"
	"deckhand/internal/deck"
	"deckhand/internal/playback"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}

// RunAll executes the checks that need no open serial port.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckSerialDevice(cfg.Serial.Port),
		CheckPlayer(cfg.Playback.Player),
		CheckDirectoryAccess("Lock directory", cfg.Session.LockDir),
		CheckDirectoryAccess("Log directory", cfg.Logging.Dir),
	}
	if cfg.Cache.Enabled {
		results = append(results, CheckDirectoryAccess("Cache directory", filepath.Dir(cfg.Cache.Path)))
	}
	return results
}

// CheckSerialDevice verifies the serial device node exists and this process
// may read and write it.
func CheckSerialDevice(port string) Result {
	const name = "Serial device"
	if port == "" {
		return Result{Name: name, Detail: "serial.port not configured"}
	}
	info, err := os.Stat(port)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s does not exist (is the adapter plugged in?)", port)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (stat: %v)", port, err)}
	}
	if info.Mode()&os.ModeCharDevice == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s is not a character device", port)}
	}
	if err := unix.Access(port, unix.R_OK|unix.W_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s not read/write accessible (add your user to the dialout group?)", port)}
	}
	return Result{Name: name, Passed: true, Detail: port}
}

// CheckPlayer verifies an audio player binary can be found.
func CheckPlayer(pinned string) Result {
	const name = "Audio player"
	player, err := playback.ResolvePlayer(pinned)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: player}
}

// CheckDirectoryAccess verifies the directory exists or can be created, and
// is read/write accessible.
func CheckDirectoryAccess(name, path string) Result {
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: access: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckDeck verifies the deck answers on the open port and reports a loaded
// disc. It belongs after RunAll, once the serial port and remote mode are
// up.
func CheckDeck(ctx context.Context, ctrl *deck.Controller) []Result {
	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	model, err := ctrl.ModelName(checkCtx)
	if err != nil {
		return []Result{{Name: "Deck", Detail: fmt.Sprintf("no response (%v)", err)}}
	}
	results := []Result{{Name: "Deck", Passed: true, Detail: model}}

	status, err := ctrl.Status(checkCtx)
	if err != nil {
		return append(results, Result{Name: "Disc", Detail: fmt.Sprintf("status unavailable (%v)", err)})
	}
	if !status.DiscLoaded {
		return append(results, Result{Name: "Disc", Detail: "no disc loaded"})
	}
	detail := fmt.Sprintf("loaded, %s", status.Mode)
	if !status.RecPossible {
		return append(results, Result{Name: "Disc", Detail: detail + ", recording not possible"})
	}
	return append(results, Result{Name: "Disc", Passed: true, Detail: detail})
}
