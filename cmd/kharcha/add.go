package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"kharcha/internal/guard"
	"kharcha/internal/services"
)

func newAddCmd(get func() *app) *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Log expenses described in plain language",
		Example: `  kharcha add "coffee 4.50 and groceries 62"
  kharcha add --confirm "new headphones 180"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return add(cmd, get(), strings.Join(args, " "), confirm)
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "Chase the confirm button until a held spend is committed")
	return cmd
}

func add(cmd *cobra.Command, a *app, text string, confirm bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	res, state, err := a.svc.Submit(ctx, guard.State{}, text)
	if err != nil {
		return err
	}
	if res.Commentary != "" {
		fmt.Fprintln(out, res.Commentary)
	}

	switch res.Outcome {
	case services.OutcomeCommitted:
		printEntries(out, "Logged", res.Committed)
		return nil
	case services.OutcomeCommentary:
		fmt.Fprintln(out, "Nothing logged.")
		return nil
	}

	printEntries(out, "Held for confirmation", res.Pending)
	if !confirm {
		a.svc.Cancel(ctx, state)
		fmt.Fprintln(out, "That is a big want. Run again with --confirm if you really mean it.")
		return nil
	}

	for {
		var cr services.ConfirmResult
		cr, state, err = a.svc.Confirm(ctx, state)
		if err != nil {
			return err
		}
		if !cr.Evaded {
			printEntries(out, "Logged", cr.Committed)
			return nil
		}
		fmt.Fprintf(out, "The button dodged to (%d, %d). Attempt %d of %d.\n",
			cr.Offset.X, cr.Offset.Y, cr.Current, cr.Required)
	}
}
