package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"deckhand/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Serial.Port = filepath.Join(base, "ttyTEST0")
	cfgVal.Session.LockDir = filepath.Join(base, "locks")
	cfgVal.Logging.Dir = filepath.Join(base, "logs")
	cfgVal.Cache.Path = filepath.Join(base, "cache", "discs.db")
	cfgVal.Deck.PrerollMs = 0
	cfgVal.Deck.PostrollMs = 0
	cfgVal.Playback.PollIntervalMs = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithSerialPort overrides the serial device path on the test config.
func WithSerialPort(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Serial.Port = path
	}
}

// WithFailurePolicy sets the session failure policy on the test config.
func WithFailurePolicy(policy config.FailurePolicy) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Session.FailurePolicy = policy
	}
}

// WithCacheEnabled turns the disc cache on for the test config.
func WithCacheEnabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Enabled = true
	}
}

// WithStubbedPlayer writes a stub player executable for each of the given
// names and prepends the stub directory to PATH. With no names the default
// preference-list players are stubbed.
func WithStubbedPlayer(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"mpv", "ffplay"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Session.LockDir)
}
