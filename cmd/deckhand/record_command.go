package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"deckhand/internal/config"
	"deckhand/internal/deck"
	"deckhand/internal/disccache"
	"deckhand/internal/media"
	"deckhand/internal/playback"
	"deckhand/internal/preflight"
	"deckhand/internal/session"
)

func newRecordCommand(ctx *commandContext) *cobra.Command {
	var policyFlag string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "record <file>...",
		Short: "Record audio files onto the loaded disc, one track per file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if policyFlag != "" {
				policy, err := config.ParseFailurePolicy(policyFlag)
				if err != nil {
					return err
				}
				cfg.Session.FailurePolicy = policy
			}

			paths, err := resolveAudioPaths(args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if dryRun {
				fmt.Fprintln(out, renderPlan(paths))
				return nil
			}

			checks := preflight.RunAll(cmd.Context(), cfg)
			if !preflight.AllPassed(checks) {
				colorize := shouldColorize(out)
				for _, check := range checks {
					kind := statusOK
					if !check.Passed {
						kind = statusError
					}
					fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
				}
				return fmt.Errorf("preflight failed, session not started")
			}

			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			return ctx.withController(func(ctrl *deck.Controller) error {
				engine, err := playback.NewEngine(cfg.Playback, logger)
				if err != nil {
					return err
				}
				monitor := playback.NewMonitor(engine, cfg.Playback, logger)

				var cache *disccache.Store
				if cfg.Cache.Enabled {
					cache, err = disccache.Open(cfg.Cache)
					if err != nil {
						return fmt.Errorf("open disc cache: %w", err)
					}
					defer func() { _ = cache.Close() }()
				}

				orc := session.NewOrchestratorWithDependencies(cfg, ctrl, monitor, cache, nil, logger)

				runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				report, runErr := orc.Run(runCtx, paths)
				if report != nil {
					fmt.Fprintln(out, renderReport(report))
				}
				return runErr
			})
		},
	}

	cmd.Flags().StringVar(&policyFlag, "policy", "", `Failure policy override ("abort" or "skip")`)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Resolve metadata and titles, print the plan, touch no hardware")
	return cmd
}

func resolveAudioPaths(args []string) ([]string, error) {
	paths := make([]string, 0, len(args))
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", arg, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", arg, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory, expected an audio file", arg)
		}
		paths = append(paths, abs)
	}
	return paths, nil
}

func renderPlan(paths []string) string {
	rows := make([][]string, 0, len(paths))
	for i, path := range paths {
		meta := media.Read(path)
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			filepath.Base(path),
			media.TrackTitle(meta, path),
			formatDuration(meta.Duration),
		})
	}
	return renderTable(
		[]string{"#", "File", "Track name", "Duration"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
	)
}

func renderReport(report *session.Report) string {
	rows := make([][]string, 0, len(report.Jobs))
	for _, job := range report.Jobs {
		detail := ""
		if job.Err != nil {
			detail = job.Err.Error()
		} else if job.Degraded {
			detail = "completion forced past expected duration"
		}
		track := ""
		if job.Track > 0 {
			track = strconv.Itoa(job.Track)
		}
		rows = append(rows, []string{
			strconv.Itoa(job.Seq),
			filepath.Base(job.Path),
			job.Title,
			formatDuration(job.Duration),
			string(job.Status),
			track,
			detail,
		})
	}
	return renderTable(
		[]string{"#", "File", "Track name", "Duration", "Status", "Track", "Detail"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
	)
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	d = d.Round(time.Second)
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
