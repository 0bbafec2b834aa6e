package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"deckhand/internal/config"
	"deckhand/internal/deck"
	"deckhand/internal/logging"
	"deckhand/internal/serialport"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	var loggerErr error
	c.loggerOnce.Do(func() {
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			loggerErr = err
			return
		}
		c.logger = logger
	})
	if c.logger == nil && loggerErr == nil {
		loggerErr = fmt.Errorf("logger unavailable")
	}
	return c.logger, loggerErr
}

// withController opens the serial port, wraps it in a deck controller, and
// guarantees the port closes when fn returns. Remote mode is fn's business:
// commands that claim it must also release it.
func (c *commandContext) withController(fn func(*deck.Controller) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	port, err := serialport.Open(cfg.Serial)
	if err != nil {
		return fmt.Errorf("open serial port %s: %w", cfg.Serial.Port, err)
	}
	ctrl := deck.NewController(port, cfg.Deck, logger)
	defer func() { _ = ctrl.Close() }()
	return fn(ctrl)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
