package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"deckhand/internal/deck"
	"deckhand/internal/disccache"
	"deckhand/internal/protocol"
)

func newDiscCommand(ctx *commandContext) *cobra.Command {
	discCmd := &cobra.Command{
		Use:   "disc",
		Short: "Inspect the loaded disc",
	}
	discCmd.AddCommand(newDiscInfoCommand(ctx))
	return discCmd
}

func newDiscInfoCommand(ctx *commandContext) *cobra.Command {
	var fresh bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show disc name, type, table of contents, and track names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			return ctx.withController(func(ctrl *deck.Controller) error {
				run := cmd.Context()
				if err := ctrl.EnterRemote(run); err != nil {
					return fmt.Errorf("enter remote mode: %w", err)
				}
				defer func() { _ = ctrl.LeaveRemote(run) }()

				status, err := ctrl.Status(run)
				if err != nil {
					return fmt.Errorf("read deck status: %w", err)
				}
				if !status.DiscLoaded {
					fmt.Fprintln(out, renderStatusLine("Disc", statusWarn, "no disc loaded", colorize))
					return nil
				}
				data, err := ctrl.DiscData(run)
				if err != nil {
					return fmt.Errorf("read disc data: %w", err)
				}
				toc, err := ctrl.TOC(run)
				if err != nil {
					return fmt.Errorf("read table of contents: %w", err)
				}
				name, err := ctrl.DiscName(run)
				if err != nil {
					return fmt.Errorf("read disc name: %w", err)
				}
				remain, err := ctrl.RecRemain(run)
				if err != nil {
					return fmt.Errorf("read remaining time: %w", err)
				}

				for _, line := range renderSectionHeader("Disc", colorize) {
					fmt.Fprintln(out, line)
				}
				displayName := name
				if displayName == "" {
					displayName = "(unnamed)"
				}
				fmt.Fprintln(out, renderStatusLine("Name", statusInfo, displayName, colorize))
				fmt.Fprintln(out, renderStatusLine("Type", statusInfo, data.Kind.String(), colorize))
				fmt.Fprintln(out, renderStatusLine("Write protected", statusInfo, yesNo(data.Protected), colorize))
				fmt.Fprintln(out, renderStatusLine("Tracks", statusInfo, strconv.Itoa(toc.Tracks()), colorize))
				fmt.Fprintln(out, renderStatusLine("Recorded", statusInfo, formatDuration(toc.Total()), colorize))
				fmt.Fprintln(out, renderStatusLine("Remaining", statusInfo, formatDuration(remain), colorize))

				if toc.Tracks() == 0 {
					return nil
				}

				titles, source, err := trackTitles(cmd, ctx, ctrl, cfg.Cache.Enabled && !fresh, name, toc)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(titles))
				for i, title := range titles {
					if title == "" {
						title = "(unnamed)"
					}
					rows = append(rows, []string{strconv.Itoa(toc.FirstTrack + i), title})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"#", "Track name"},
					rows,
					[]columnAlignment{alignRight, alignLeft},
				))
				if source != "" {
					fmt.Fprintln(out, source)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&fresh, "fresh", false, "Read every track name from the deck, bypassing the cache")
	return cmd
}

// trackTitles lists the disc's track names, serving them from the cache
// when its fingerprint still matches and refreshing it after a hardware
// read.
func trackTitles(cmd *cobra.Command, ctx *commandContext, ctrl *deck.Controller, useCache bool, discName string, toc protocol.TOC) ([]string, string, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, "", err
	}
	run := cmd.Context()

	var store *disccache.Store
	if cfg.Cache.Enabled {
		store, err = disccache.Open(cfg.Cache)
		if err != nil {
			return nil, "", fmt.Errorf("open disc cache: %w", err)
		}
		defer func() { _ = store.Close() }()
	}

	if useCache && store != nil {
		disc, hit, err := store.LookupDisc(run, discName, toc)
		if err == nil && hit {
			cached, err := store.Tracks(run, disc.ID)
			if err == nil && len(cached) > 0 {
				titles := make([]string, toc.Tracks())
				for _, track := range cached {
					idx := track.Number - toc.FirstTrack
					if idx >= 0 && idx < len(titles) {
						titles[idx] = track.Title
					}
				}
				return titles, "(track names served from cache; --fresh re-reads the deck)", nil
			}
		}
	}

	titles := make([]string, 0, toc.Tracks())
	for n := toc.FirstTrack; n <= toc.LastTrack; n++ {
		title, err := ctrl.TrackName(run, n)
		if err != nil {
			return nil, "", fmt.Errorf("read name of track %d: %w", n, err)
		}
		titles = append(titles, title)
	}

	if store != nil {
		if disc, err := store.RememberDisc(run, discName, toc); err == nil {
			for i, title := range titles {
				if title == "" {
					continue
				}
				_ = store.RememberTrack(run, disc.ID, toc.FirstTrack+i, title)
			}
		}
	}
	return titles, "", nil
}
