package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeSerial(); err != nil {
		return err
	}
	c.normalizePlayback()
	if err := c.normalizeSession(); err != nil {
		return err
	}
	if err := c.normalizeCache(); err != nil {
		return err
	}
	return c.normalizeLogging()
}

func (c *Config) normalizeSerial() error {
	c.Serial.Port = strings.TrimSpace(c.Serial.Port)
	if c.Serial.Port == "" {
		c.Serial.Port = defaultSerialPort
	}
	if c.Serial.Baud == 0 {
		c.Serial.Baud = defaultBaud
	}
	return nil
}

func (c *Config) normalizePlayback() {
	c.Playback.Player = strings.TrimSpace(c.Playback.Player)
	c.Playback.Device = strings.TrimSpace(c.Playback.Device)
}

func (c *Config) normalizeSession() error {
	policy := FailurePolicy(strings.ToLower(strings.TrimSpace(string(c.Session.FailurePolicy))))
	if policy == "" {
		policy = PolicyAbort
	}
	c.Session.FailurePolicy = policy

	var err error
	if strings.TrimSpace(c.Session.LockDir) == "" {
		c.Session.LockDir = defaultLockDir
	}
	if c.Session.LockDir, err = expandPath(c.Session.LockDir); err != nil {
		return fmt.Errorf("session.lock_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCache() error {
	var err error
	if strings.TrimSpace(c.Cache.Path) == "" {
		c.Cache.Path = defaultCachePath
	}
	if c.Cache.Path, err = expandPath(c.Cache.Path); err != nil {
		return fmt.Errorf("cache.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}

	var err error
	if strings.TrimSpace(c.Logging.Dir) == "" {
		c.Logging.Dir = defaultLogDir
	}
	if c.Logging.Dir, err = expandPath(c.Logging.Dir); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	return nil
}
