package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"deckhand/internal/deck"
	"deckhand/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Run readiness checks and show the deck state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Environment", colorize) {
				fmt.Fprintln(out, line)
			}
			checks := preflight.RunAll(cmd.Context(), cfg)
			for _, check := range checks {
				kind := statusOK
				if !check.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
			}

			for _, line := range renderSectionHeader("Deck", colorize) {
				fmt.Fprintln(out, line)
			}
			if !preflight.AllPassed(checks[:1]) {
				fmt.Fprintln(out, renderStatusLine("Deck", statusWarn, "skipped, serial device unavailable", colorize))
				return nil
			}
			err = ctx.withController(func(ctrl *deck.Controller) error {
				run := cmd.Context()
				if err := ctrl.EnterRemote(run); err != nil {
					return err
				}
				defer func() { _ = ctrl.LeaveRemote(run) }()
				for _, check := range preflight.CheckDeck(run, ctrl) {
					kind := statusOK
					if !check.Passed {
						kind = statusWarn
					}
					fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
				}
				return nil
			})
			if err != nil {
				fmt.Fprintln(out, renderStatusLine("Deck", statusError, err.Error(), colorize))
			}
			return nil
		},
	}
}
