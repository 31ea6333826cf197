package main

import (
	"github.com/spf13/cobra"
)

// newRootCmd builds the command tree. load runs once per invocation in the
// persistent pre-run hook; the returned function releases what it opened and
// must be called after Execute.
func newRootCmd(load appLoader) (*cobra.Command, func() error) {
	var current *app

	root := &cobra.Command{
		Use:   "kharcha",
		Short: "Log expenses in plain language and see where the money went.",
		Long: `kharcha turns free-form text such as "coffee 4.50 and a cab for 20" into
ledger entries, holds large discretionary spends for confirmation and reports
streaks, activity and need/want splits.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(cmd.Context())
			if err != nil {
				return err
			}
			current = a
			return nil
		},
	}

	get := func() *app { return current }

	root.AddCommand(
		newServeCmd(get),
		newAddCmd(get),
		newStatsCmd(get),
		newExportCmd(get),
		newDeleteCmd(get),
		newRoastCmd(get),
	)

	closeApp := func() error {
		if current == nil {
			return nil
		}
		return current.close()
	}
	return root, closeApp
}
