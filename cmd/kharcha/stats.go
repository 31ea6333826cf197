package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"kharcha/internal/core"
)

func newStatsCmd(get func() *app) *cobra.Command {
	var (
		today  string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show streak, 28-day activity and the need/want split",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			day := a.svc.Today()
			if today != "" {
				d, err := core.ParseDate(today)
				if err != nil {
					return fmt.Errorf("invalid --today %q: %w", today, err)
				}
				day = d
			}

			summary, err := a.svc.Dashboard(cmd.Context(), day)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			printSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	cmd.Flags().StringVar(&today, "today", "", "Reference date (YYYY-MM-DD), defaults to the current day")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	return cmd
}
