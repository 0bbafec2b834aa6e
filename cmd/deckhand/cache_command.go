package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"deckhand/internal/disccache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Disc cache maintenance",
	}
	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

func (c *commandContext) withCache(fn func(*disccache.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := disccache.Open(cfg.Cache)
	if err != nil {
		return fmt.Errorf("open disc cache: %w", err)
	}
	defer func() { _ = store.Close() }()
	return fn(store)
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached discs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCache(func(store *disccache.Store) error {
				discs, err := store.All(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(discs) == 0 {
					fmt.Fprintln(out, "Cache is empty")
					return nil
				}
				rows := make([][]string, 0, len(discs))
				for _, disc := range discs {
					name := disc.Name
					if name == "" {
						name = "(unnamed)"
					}
					rows = append(rows, []string{
						strconv.FormatInt(disc.ID, 10),
						name,
						strconv.Itoa(disc.TrackCount),
						formatDuration(disc.TotalTime),
						disc.UpdatedAt.Local().Format(time.DateTime),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Disc", "Tracks", "Recorded", "Updated"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	var discID int64

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget cached discs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCache(func(store *disccache.Store) error {
				out := cmd.OutOrStdout()
				if discID > 0 {
					if err := store.Forget(cmd.Context(), discID); err != nil {
						return err
					}
					fmt.Fprintf(out, "Forgot disc %d\n", discID)
					return nil
				}
				if err := store.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(out, "Cache cleared")
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&discID, "disc", 0, "Forget only the disc with this cache ID")
	return cmd
}
