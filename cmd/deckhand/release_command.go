package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"deckhand/internal/deck"
)

func newReleaseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "release",
		Short: "Take the deck out of remote mode, unlocking the front panel",
		Long: "Take the deck out of remote mode, unlocking the front panel.\n\n" +
			"Use this after an interrupted session: the deck keeps its panel locked\n" +
			"until remote mode is released, and pulling the cable does not release it.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withController(func(ctrl *deck.Controller) error {
				if err := ctrl.LeaveRemote(cmd.Context()); err != nil {
					return fmt.Errorf("leave remote mode: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Front panel released")
				return nil
			})
		},
	}
}
