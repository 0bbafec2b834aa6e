package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Serial contains the RS232 link settings for the deck's remote port.
type Serial struct {
	Port string `toml:"port"`
	Baud int    `toml:"baud"`
}

// Deck contains command timing and retry budgets for the deck controller.
type Deck struct {
	CommandTimeoutSeconds int `toml:"command_timeout_seconds"`
	ArmRetries            int `toml:"arm_retries"`
	StartRetries          int `toml:"start_retries"`
	StopRetries           int `toml:"stop_retries"`
	StatusRetries         int `toml:"status_retries"`
	PrerollMs             int `toml:"preroll_ms"`
	PostrollMs            int `toml:"postroll_ms"`
}

// CommandTimeout returns the per-exchange response deadline.
func (d Deck) CommandTimeout() time.Duration {
	return time.Duration(d.CommandTimeoutSeconds) * time.Second
}

// Preroll returns the delay between playback start and record start.
func (d Deck) Preroll() time.Duration {
	return time.Duration(d.PrerollMs) * time.Millisecond
}

// Postroll returns the delay between detected playback completion and the
// record-stop command.
func (d Deck) Postroll() time.Duration {
	return time.Duration(d.PostrollMs) * time.Millisecond
}

// Playback contains the external player selection and monitoring cadence.
type Playback struct {
	Player                 string `toml:"player"`
	Device                 string `toml:"device"`
	PollIntervalMs         int    `toml:"poll_interval_ms"`
	CompletionSlackSeconds int    `toml:"completion_slack_seconds"`
	StopGraceMs            int    `toml:"stop_grace_ms"`
}

// PollInterval returns the cadence for playback completion polling.
func (p Playback) PollInterval() time.Duration {
	return time.Duration(p.PollIntervalMs) * time.Millisecond
}

// CompletionSlack returns the grace past the known track duration before a
// still-playing engine is treated as finished.
func (p Playback) CompletionSlack() time.Duration {
	return time.Duration(p.CompletionSlackSeconds) * time.Second
}

// StopGrace returns how long a stopped player may take to exit before it is
// killed.
func (p Playback) StopGrace() time.Duration {
	return time.Duration(p.StopGraceMs) * time.Millisecond
}

// FailurePolicy selects how a recording session reacts to a failed track.
type FailurePolicy string

const (
	// PolicyAbort stops the session at the first failed track.
	PolicyAbort FailurePolicy = "abort"
	// PolicySkip records the failure and continues with the next track.
	PolicySkip FailurePolicy = "skip"
)

// ParseFailurePolicy normalizes and validates a failure policy string.
func ParseFailurePolicy(value string) (FailurePolicy, error) {
	policy := FailurePolicy(strings.ToLower(strings.TrimSpace(value)))
	switch policy {
	case PolicyAbort, PolicySkip:
		return policy, nil
	default:
		return "", fmt.Errorf("failure policy must be %q or %q, got %q", PolicyAbort, PolicySkip, value)
	}
}

// Session contains whole-session behaviour.
type Session struct {
	FailurePolicy FailurePolicy `toml:"failure_policy"`
	LockDir       string        `toml:"lock_dir"`
}

// Cache contains the disc cache settings.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Dir    string `toml:"dir"`
}

// Config encapsulates all configuration values for deckhand.
//
// Configuration sections by subsystem:
//   - Serial: RS232 port and baud rate for the deck remote link
//   - Deck: command timeout, per-operation retry budgets, pre/post-roll
//   - Playback: external player binary, output device, polling cadence
//   - Session: failure policy and lock directory
//   - Cache: disc TOC and track-name cache
//   - Logging: log format, level, and directory
type Config struct {
	Serial   Serial   `toml:"serial"`
	Deck     Deck     `toml:"deck"`
	Playback Playback `toml:"playback"`
	Session  Session  `toml:"session"`
	Cache    Cache    `toml:"cache"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/deckhand/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("deckhand.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories deckhand writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Logging.Dir, c.Session.LockDir}
	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Path) != "" {
		dirs = append(dirs, filepath.Dir(c.Cache.Path))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
