package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"deckhand/internal/config"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand())
	configCmd.AddCommand(newConfigPathCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set serial.port for your RS232 adapter before recording.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "show",
		Short:       "Show the effective configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load("")
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			if exists {
				fmt.Fprintf(out, "# loaded from %s\n", path)
			} else {
				fmt.Fprintln(out, "# no config file found, showing defaults")
			}

			rows := [][]string{
				{"serial.port", cfg.Serial.Port},
				{"serial.baud", fmt.Sprintf("%d", cfg.Serial.Baud)},
				{"deck.command_timeout", cfg.Deck.CommandTimeout().String()},
				{"deck.preroll", cfg.Deck.Preroll().String()},
				{"deck.postroll", cfg.Deck.Postroll().String()},
				{"playback.player", orAuto(cfg.Playback.Player)},
				{"playback.device", orDefault(cfg.Playback.Device)},
				{"playback.poll_interval", cfg.Playback.PollInterval().String()},
				{"playback.completion_slack", cfg.Playback.CompletionSlack().String()},
				{"session.failure_policy", string(cfg.Session.FailurePolicy)},
				{"session.lock_dir", cfg.Session.LockDir},
				{"cache.enabled", yesNo(cfg.Cache.Enabled)},
				{"cache.path", cfg.Cache.Path},
				{"logging.level", cfg.Logging.Level},
				{"logging.format", cfg.Logging.Format},
				{"logging.dir", cfg.Logging.Dir},
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Setting", "Value"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newConfigPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "path",
		Short:       "Print the configuration file location",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, path, exists, err := config.Load("")
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			if !exists {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s (not created yet, run `deckhand config init`)\n", defaultPath)
				return nil
			}
			fmt.Fprintln(out, path)
			return nil
		},
	}
}

func orAuto(value string) string {
	if value == "" {
		return "(auto)"
	}
	return value
}

func orDefault(value string) string {
	if value == "" {
		return "(default)"
	}
	return value
}
