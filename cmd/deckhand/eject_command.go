package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"deckhand/internal/deck"
)

func newEjectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "eject",
		Short: "Eject the loaded disc",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withController(func(ctrl *deck.Controller) error {
				run := cmd.Context()
				if err := ctrl.EnterRemote(run); err != nil {
					return fmt.Errorf("enter remote mode: %w", err)
				}
				defer func() { _ = ctrl.LeaveRemote(run) }()
				if err := ctrl.Eject(run); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Disc ejected")
				return nil
			})
		},
	}
}
