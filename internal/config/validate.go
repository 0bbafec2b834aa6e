package config

import (
	"errors"
	"fmt"
	"sort"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSerial(); err != nil {
		return err
	}
	if err := c.validateDeck(); err != nil {
		return err
	}
	if err := c.validatePlayback(); err != nil {
		return err
	}
	if err := c.validateSession(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateSerial() error {
	if c.Serial.Port == "" {
		return errors.New("serial.port must be set")
	}
	if c.Serial.Baud <= 0 {
		return errors.New("serial.baud must be positive")
	}
	return nil
}

func (c *Config) validateDeck() error {
	if err := ensurePositiveMap(map[string]int{
		"deck.command_timeout_seconds": c.Deck.CommandTimeoutSeconds,
	}); err != nil {
		return err
	}
	if err := ensureNonNegativeMap(map[string]int{
		"deck.arm_retries":    c.Deck.ArmRetries,
		"deck.start_retries":  c.Deck.StartRetries,
		"deck.stop_retries":   c.Deck.StopRetries,
		"deck.status_retries": c.Deck.StatusRetries,
		"deck.preroll_ms":     c.Deck.PrerollMs,
		"deck.postroll_ms":    c.Deck.PostrollMs,
	}); err != nil {
		return err
	}
	// A retried record start is not idempotent: the deck would split the
	// recording across two tracks.
	if c.Deck.StartRetries > 1 {
		return errors.New("deck.start_retries must be 0 or 1")
	}
	return nil
}

func (c *Config) validatePlayback() error {
	if err := ensurePositiveMap(map[string]int{
		"playback.poll_interval_ms": c.Playback.PollIntervalMs,
		"playback.stop_grace_ms":    c.Playback.StopGraceMs,
	}); err != nil {
		return err
	}
	if c.Playback.CompletionSlackSeconds < 0 {
		return errors.New("playback.completion_slack_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateSession() error {
	switch c.Session.FailurePolicy {
	case PolicyAbort, PolicySkip:
		return nil
	default:
		return fmt.Errorf("session.failure_policy must be %q or %q", PolicyAbort, PolicySkip)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be %q or %q", "console", "json")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return errors.New("logging.level must be one of debug, info, warn, error")
	}
}

func ensurePositiveMap(values map[string]int) error {
	for _, key := range sortedKeys(values) {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

func ensureNonNegativeMap(values map[string]int) error {
	for _, key := range sortedKeys(values) {
		if values[key] < 0 {
			return fmt.Errorf("%s must not be negative", key)
		}
	}
	return nil
}

func sortedKeys(values map[string]int) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
